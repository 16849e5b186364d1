package tts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/LeonRhapsody/slidecast/internal/config"
)

// Chain tries providers in priority order; the first success wins.
// Provider errors short-circuit to the next entry, so a premium provider
// with a missing credential simply hands over to the free fallback.
type Chain struct {
	providers []Synthesizer
	logger    *zap.SugaredLogger
}

func NewChain(logger *zap.SugaredLogger, providers ...Synthesizer) *Chain {
	return &Chain{providers: providers, logger: logger}
}

// NewSynthesizer builds the default chain: ElevenLabs first (skipped
// internally when no key is configured), then the free Google Translate
// fallback.
func NewSynthesizer(cfg *config.Config, logger *zap.SugaredLogger) *Chain {
	return NewChain(logger,
		NewElevenLabsProvider(cfg),
		NewGoogleTranslateProvider(cfg.TTSLanguage),
	)
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Synthesize(ctx context.Context, text string, outputPath string, voice Voice) error {
	if text == "" {
		return errors.New("empty text")
	}

	var errs []error
	for _, p := range c.providers {
		err := p.Synthesize(ctx, text, outputPath, voice)
		if err == nil {
			return nil
		}
		if c.logger != nil {
			c.logger.Warnw("tts provider failed, trying next", "provider", p.Name(), "error", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}

	return fmt.Errorf("all %d tts providers failed: %w", len(c.providers), errors.Join(errs...))
}
