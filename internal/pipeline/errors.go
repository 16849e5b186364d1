package pipeline

import "fmt"

// The pipeline is all-or-nothing: these errors identify which stage and
// which slide failed so callers can diagnose without log spelunking.
// Recoverable concerns (backgrounds, style) never surface as errors.

// SynthesisError means both speech providers failed for a slide.
type SynthesisError struct {
	SlideIndex int
	Err        error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed for slide %d: %v", e.SlideIndex, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// EncodingError means frame writing or muxing failed for a slide.
type EncodingError struct {
	SlideIndex int
	Step       string // "frames" or "mux"
	Err        error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding (%s) failed for slide %d: %v", e.Step, e.SlideIndex, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// ConcatenationError means final assembly failed; no output file is
// guaranteed to exist.
type ConcatenationError struct {
	Err error
}

func (e *ConcatenationError) Error() string {
	return fmt.Sprintf("final concatenation failed: %v", e.Err)
}

func (e *ConcatenationError) Unwrap() error { return e.Err }
