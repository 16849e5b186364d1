package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type stubProvider struct {
	name  string
	err   error
	calls int
	texts []string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Synthesize(_ context.Context, text string, outputPath string, _ Voice) error {
	s.calls++
	s.texts = append(s.texts, text)
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(outputPath, []byte("audio"), 0644)
}

func TestChainFirstSuccessWins(t *testing.T) {
	primary := &stubProvider{name: "primary"}
	fallback := &stubProvider{name: "fallback"}
	chain := NewChain(nil, primary, fallback)

	out := filepath.Join(t.TempDir(), "a.mp3")
	if err := chain.Synthesize(context.Background(), "hello", out, Voice{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary.calls != 1 || fallback.calls != 0 {
		t.Errorf("expected only primary to be called, got primary=%d fallback=%d", primary.calls, fallback.calls)
	}
}

func TestChainFallsBackWithSameText(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("quota exceeded")}
	fallback := &stubProvider{name: "fallback"}
	chain := NewChain(nil, primary, fallback)

	out := filepath.Join(t.TempDir(), "a.mp3")
	if err := chain.Synthesize(context.Background(), "hello", out, Voice{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fallback.calls != 1 {
		t.Fatalf("fallback not invoked")
	}
	if fallback.texts[0] != "hello" {
		t.Errorf("fallback received different text: %q", fallback.texts[0])
	}
	if data, err := os.ReadFile(out); err != nil || len(data) == 0 {
		t.Errorf("expected non-empty audio file, err=%v", err)
	}
}

func TestChainAllFail(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("network")}
	fallback := &stubProvider{name: "fallback", err: errors.New("also down")}
	chain := NewChain(nil, primary, fallback)

	err := chain.Synthesize(context.Background(), "hello", filepath.Join(t.TempDir(), "a.mp3"), Voice{})
	if err == nil {
		t.Fatal("expected error when every provider fails")
	}
}

func TestChainRejectsEmptyText(t *testing.T) {
	primary := &stubProvider{name: "primary"}
	chain := NewChain(nil, primary)
	if err := chain.Synthesize(context.Background(), "", "out.mp3", Voice{}); err == nil {
		t.Fatal("expected error for empty text")
	}
	if primary.calls != 0 {
		t.Error("provider should not be called for empty text")
	}
}

func TestResolveVoiceID(t *testing.T) {
	if got := resolveVoiceID(Voice{Gender: "female"}); got != elevenVoices["Rachel"] {
		t.Errorf("female hint should map to Rachel, got %s", got)
	}
	if got := resolveVoiceID(Voice{Gender: "male"}); got != elevenVoices["Adam"] {
		t.Errorf("male hint should map to Adam, got %s", got)
	}
	// Explicit name takes precedence over gender.
	if got := resolveVoiceID(Voice{Gender: "female", Name: "Adam"}); got != elevenVoices["Adam"] {
		t.Errorf("explicit name should win, got %s", got)
	}
	// Unknown names are treated as raw voice IDs.
	if got := resolveVoiceID(Voice{Name: "customVoice123"}); got != "customVoice123" {
		t.Errorf("unknown name should pass through, got %s", got)
	}
}
