package tts

import "context"

// Voice is a loose hint for provider voice selection. An explicit Name
// takes precedence over Gender.
type Voice struct {
	Gender string `json:"gender,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Synthesizer converts text to speech and saves it to the given output path.
// On success the file at outputPath exists and is non-empty.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, outputPath string, voice Voice) error
	Name() string
}
