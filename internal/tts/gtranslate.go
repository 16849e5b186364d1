package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// GoogleTranslateProvider is the free fallback. It needs no credential and
// uses the public translate TTS endpoint. Text is sent as a single request;
// chunking is left to the endpoint's own limits.
type GoogleTranslateProvider struct {
	Language string
	Client   *http.Client
}

func NewGoogleTranslateProvider(language string) *GoogleTranslateProvider {
	if language == "" {
		language = "en"
	}
	return &GoogleTranslateProvider{
		Language: language,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *GoogleTranslateProvider) Name() string { return "gtranslate" }

func (p *GoogleTranslateProvider) Synthesize(ctx context.Context, text string, outputPath string, _ Voice) error {
	maxRetries := 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			// Simple linear backoff, abandoned when the caller gives up.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * time.Second):
			}
		}

		if err := p.fetch(ctx, text, outputPath); err != nil {
			lastErr = err
			continue
		}
		if err := verifyAudioFile(outputPath, p.Name()); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("synthesis failed after %d attempts: %v", maxRetries, lastErr)
}

func (p *GoogleTranslateProvider) fetch(ctx context.Context, text string, outputPath string) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", p.Language)
	q.Set("q", text)

	endpoint := "https://translate.google.com/translate_tts?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	// The endpoint rejects requests without a browser-like agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("translate tts failed with status %d: %s", resp.StatusCode, string(body))
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	_, err = io.Copy(outFile, resp.Body)
	return err
}
