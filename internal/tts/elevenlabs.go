package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/LeonRhapsody/slidecast/internal/config"
)

// Named voice presets. A gender hint selects one of these; an explicit
// voice name that is not a preset is assumed to already be a voice ID.
var elevenVoices = map[string]string{
	"Rachel": "21m00Tcm4TlvDq8ikWAM",
	"Adam":   "pNInz6obpgDQGcFmaJgB",
}

// ElevenLabsProvider is the premium provider. It fails fast when no API
// key is configured so the caller can fall through to the free provider.
type ElevenLabsProvider struct {
	Config *config.Config
	Client *http.Client
}

func NewElevenLabsProvider(cfg *config.Config) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		Config: cfg,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, outputPath string, voice Voice) error {
	// Snapshot: the config endpoint can change credentials mid-run.
	cfg := p.Config.Snapshot()
	apiKey := cfg.ElevenLabsAPIKey
	if apiKey == "" {
		return fmt.Errorf("ElevenLabs API key not configured")
	}

	baseURL := cfg.ElevenLabsBaseURL
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io"
	}

	voiceID := resolveVoiceID(voice)
	url := fmt.Sprintf("%s/v1/text-to-speech/%s", baseURL, voiceID)

	reqBody := map[string]interface{}{
		"text":     text,
		"model_id": "eleven_monolingual_v1",
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", apiKey)
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ElevenLabs API failed with status %d: %s", resp.StatusCode, string(body))
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, resp.Body); err != nil {
		return err
	}

	return verifyAudioFile(outputPath, p.Name())
}

func resolveVoiceID(voice Voice) string {
	if voice.Name != "" {
		if id, ok := elevenVoices[voice.Name]; ok {
			return id
		}
		return voice.Name
	}
	preset := "Adam"
	if len(voice.Gender) > 0 && (voice.Gender[0] == 'f' || voice.Gender[0] == 'F') {
		preset = "Rachel"
	}
	return elevenVoices[preset]
}

// verifyAudioFile guards against providers that return 200 with an empty body.
func verifyAudioFile(path string, provider string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s output: %w", provider, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s generated empty audio file", provider)
	}
	return nil
}
