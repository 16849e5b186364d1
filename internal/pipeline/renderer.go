package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/LeonRhapsody/slidecast/internal/compositor"
	"github.com/LeonRhapsody/slidecast/internal/media"
	"github.com/LeonRhapsody/slidecast/internal/slides"
	"github.com/LeonRhapsody/slidecast/internal/style"
)

// slideState tracks the per-slide render state machine. Failed is absorbing;
// every transition is logged so a stuck pipeline can be diagnosed per stage.
type slideState int

const (
	stateStart slideState = iota
	stateAudioReady
	stateDurationDecided
	stateFramesWritten
	stateMuxed
	stateDone
	stateFailed
)

func (s slideState) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateAudioReady:
		return "audio_ready"
	case stateDurationDecided:
		return "duration_decided"
	case stateFramesWritten:
		return "frames_written"
	case stateMuxed:
		return "muxed"
	case stateDone:
		return "done"
	default:
		return "failed"
	}
}

// slideAudio is the phase-1 result for one slide: a synthesized audio file
// and its probed duration (0 when probing failed).
type slideAudio struct {
	path     string
	duration float64
}

// segment is one muxed per-slide video, consumed by the assembler.
type segment struct {
	path     string
	duration float64
}

// renderRequest carries everything one slide render needs. Audio comes
// pre-synthesized from phase 1.
type renderRequest struct {
	slide      slides.Slide
	index      int
	background image.Image
	audio      slideAudio
	minSeconds float64
	style      style.Style
	workDir    string
}

// slideRenderer drives one slide through the state machine:
// start → audio ready → duration decided → frames written → muxed → done.
type slideRenderer struct {
	encoder    media.Encoder
	compositor *compositor.Compositor
	logger     *zap.SugaredLogger
}

// decideDuration implements the duration invariant: the slide is never
// shorter than the configured minimum and never cuts off narration.
func decideDuration(minSeconds, audioSeconds float64) float64 {
	if audioSeconds > minSeconds {
		return audioSeconds
	}
	return minSeconds
}

func (r *slideRenderer) render(ctx context.Context, req renderRequest) (segment, error) {
	state := stateStart

	fail := func(err error) (segment, error) {
		r.logger.Warnw("slide render failed", "slide", req.index, "state", state.String(), "error", err)
		state = stateFailed
		return segment{}, err
	}

	// Audio was synthesized up front; reaching here means it is ready.
	state = stateAudioReady
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	duration := decideDuration(req.minSeconds, req.audio.duration)
	state = stateDurationDecided
	r.logger.Debugw("slide duration decided",
		"slide", req.index, "audio_seconds", req.audio.duration, "min_seconds", req.minSeconds, "decided", duration)

	silentPath := filepath.Join(req.workDir, fmt.Sprintf("silent_%d.mp4", req.index))
	spec := media.ClipSpec{
		Width:      r.compositor.Width,
		Height:     r.compositor.Height,
		FPS:        r.compositor.FPS,
		FrameCount: r.compositor.FrameCount(duration),
	}
	frames := func(i int) (*image.RGBA, error) {
		t := float64(i) / float64(r.compositor.FPS)
		return r.compositor.Frame(req.background, req.slide, t, duration, req.style), nil
	}
	if err := r.encoder.WriteFrames(frames, spec, silentPath); err != nil {
		return fail(&EncodingError{SlideIndex: req.index, Step: "frames", Err: err})
	}
	state = stateFramesWritten

	muxedPath := filepath.Join(req.workDir, fmt.Sprintf("segment_%d.mp4", req.index))
	if err := r.encoder.Mux(silentPath, req.audio.path, duration, muxedPath); err != nil {
		return fail(&EncodingError{SlideIndex: req.index, Step: "mux", Err: err})
	}
	state = stateMuxed

	// The silent clip and raw audio are single-owner intermediates; gone
	// as soon as the muxed segment exists.
	os.Remove(silentPath)
	os.Remove(req.audio.path)

	state = stateDone
	r.logger.Infow("slide rendered", "slide", req.index, "seconds", duration, "segment", filepath.Base(muxedPath))
	return segment{path: muxedPath, duration: duration}, nil
}
