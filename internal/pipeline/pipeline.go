// Package pipeline turns a slide deck into one narrated MP4: synthesize and
// measure all narration up front, render and mux each slide in order, then
// concatenate the segments. All-or-nothing: a playable file or a typed error.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LeonRhapsody/slidecast/internal/background"
	"github.com/LeonRhapsody/slidecast/internal/compositor"
	"github.com/LeonRhapsody/slidecast/internal/media"
	"github.com/LeonRhapsody/slidecast/internal/slides"
	"github.com/LeonRhapsody/slidecast/internal/style"
	"github.com/LeonRhapsody/slidecast/internal/tts"
)

const (
	// Band for the automatically chosen total runtime.
	autoTotalMinSeconds = 240.0
	autoTotalMaxSeconds = 600.0

	// Margin added to the median narration length under the auto policy.
	medianMarginSeconds = 0.5

	// Synthesis fan-out in phase 1. Rendering stays sequential.
	synthesisConcurrency = 3
)

// Options control one generation run.
type Options struct {
	Width  int
	Height int
	FPS    int

	// SecondsPerSlide is the per-slide floor. When zero and no explicit
	// total is requested, the automatic duration policy picks it.
	SecondsPerSlide float64

	// TargetTotalSeconds distributes an explicit total runtime across
	// slides. Zero means none requested.
	TargetTotalSeconds float64

	Voice tts.Voice
	Style style.Style
}

func (o *Options) applyDefaults() {
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 720
	}
	if o.FPS <= 0 {
		o.FPS = 24
	}
	if o.Style == (style.Style{}) {
		o.Style = style.Default()
	}
}

// ProgressFunc receives coarse progress updates (0-100) with a stage label.
type ProgressFunc func(percent int, message string)

// Pipeline is the top-level controller.
type Pipeline struct {
	synth       tts.Synthesizer
	encoder     media.Encoder
	backgrounds *background.Provider
	logger      *zap.SugaredLogger

	// Progress is optional; the API layer uses it for job updates.
	Progress ProgressFunc
}

func New(synth tts.Synthesizer, encoder media.Encoder, backgrounds *background.Provider, logger *zap.SugaredLogger) *Pipeline {
	return &Pipeline{
		synth:       synth,
		encoder:     encoder,
		backgrounds: backgrounds,
		logger:      logger,
	}
}

// WithProgress returns a shallow copy that reports progress to fn, so
// concurrent jobs never share a callback.
func (p *Pipeline) WithProgress(fn ProgressFunc) *Pipeline {
	clone := *p
	clone.Progress = fn
	return &clone
}

// Generate renders the deck to outputPath. On failure no partial file is
// left at outputPath, and all intermediates are removed either way.
func (p *Pipeline) Generate(ctx context.Context, deck slides.Deck, opts Options, outputPath string) (string, error) {
	opts.applyDefaults()

	valid := make([]slides.Slide, 0, len(deck.Slides))
	for _, s := range deck.Slides {
		if s.Valid() {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return "", fmt.Errorf("deck has no valid slides")
	}

	runDir := filepath.Join(os.TempDir(), "slidecast-run-"+uuid.NewString())
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}
	// Every intermediate lives under runDir; this is the cleanup
	// guarantee for success, failure and panic alike.
	defer os.RemoveAll(runDir)

	comp, err := compositor.New(opts.Width, opts.Height, opts.FPS)
	if err != nil {
		return "", err
	}

	p.progress(5, "Synthesizing narration")
	audio, err := p.synthesizeAll(ctx, valid, opts.Voice, runDir)
	if err != nil {
		return "", err
	}

	minSeconds := uniformMinimum(durationsOf(audio), opts.SecondsPerSlide, opts.TargetTotalSeconds)
	p.logger.Infow("duration policy decided", "slides", len(valid), "uniform_min_seconds", minSeconds)

	renderer := &slideRenderer{encoder: p.encoder, compositor: comp, logger: p.logger}

	segments := make([]segment, 0, len(valid))
	for i, s := range valid {
		p.progress(10+int(float64(i)/float64(len(valid))*75.0), fmt.Sprintf("Rendering slide %d/%d", i+1, len(valid)))

		seg, err := renderer.render(ctx, renderRequest{
			slide:      s,
			index:      i,
			background: p.backgrounds.Background(deck.Topic, i),
			audio:      audio[i],
			minSeconds: minSeconds,
			style:      opts.Style,
			workDir:    runDir,
		})
		if err != nil {
			return "", err
		}
		segments = append(segments, seg)
	}

	p.progress(90, "Assembling final video")
	if err := p.assemble(segments, outputPath); err != nil {
		return "", err
	}

	p.progress(100, "Completed")
	return outputPath, nil
}

// GenerateScript parses an explainer markup script and renders it.
func (p *Pipeline) GenerateScript(ctx context.Context, topic, script string, opts Options, outputPath string) (string, error) {
	deck := slides.Deck{Topic: topic, Slides: slides.ParseScript(script)}
	return p.Generate(ctx, deck, opts, outputPath)
}

// synthesizeAll runs phase 1: narration audio plus probed duration for every
// slide, fanned out with a small limit. Results are index-addressed so slide
// order is preserved regardless of completion order.
func (p *Pipeline) synthesizeAll(ctx context.Context, list []slides.Slide, voice tts.Voice, runDir string) ([]slideAudio, error) {
	audio := make([]slideAudio, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(synthesisConcurrency)

	for i, s := range list {
		i, s := i, s
		g.Go(func() error {
			text := slides.SpeechText(s, i)
			path := filepath.Join(runDir, fmt.Sprintf("audio_%d.mp3", i))
			if err := p.synth.Synthesize(gctx, text, path, voice); err != nil {
				return &SynthesisError{SlideIndex: i, Err: err}
			}

			dur, err := p.encoder.ProbeDuration(path)
			if err != nil || dur <= 0 {
				// Probe failure is recoverable: the configured
				// minimum carries the slide.
				p.logger.Warnw("audio probe failed, using minimum duration", "slide", i, "error", err)
				dur = 0
			}
			audio[i] = slideAudio{path: path, duration: dur}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return audio, nil
}

func (p *Pipeline) assemble(segments []segment, outputPath string) error {
	paths := make([]string, len(segments))
	for i, s := range segments {
		paths[i] = s.path
	}

	if err := p.encoder.Concat(paths, outputPath); err != nil {
		// No partial delivery: whatever the encoder left behind at the
		// output path is not a valid video.
		os.Remove(outputPath)
		return &ConcatenationError{Err: err}
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		os.Remove(outputPath)
		return &ConcatenationError{Err: fmt.Errorf("encoder reported success but output is missing or empty")}
	}

	for _, s := range segments {
		os.Remove(s.path)
	}
	return nil
}

func (p *Pipeline) progress(percent int, message string) {
	if p.Progress != nil {
		p.Progress(percent, message)
	}
}

func durationsOf(audio []slideAudio) []float64 {
	out := make([]float64, len(audio))
	for i, a := range audio {
		out[i] = a.duration
	}
	return out
}

// uniformMinimum picks the per-slide floor.
//
// Explicit total: distribute it evenly, still honoring the per-slide hint.
// Explicit hint only: use it directly. With neither, the automatic policy
// clamps the summed narration time to a 4-10 minute band and spreads it
// evenly, but never below the median narration length plus a margin, so
// pacing stays even when narrations vary.
func uniformMinimum(durations []float64, hintSeconds, targetTotalSeconds float64) float64 {
	n := float64(len(durations))
	if n == 0 {
		return hintSeconds
	}

	if targetTotalSeconds > 0 {
		per := targetTotalSeconds / n
		if hintSeconds > per {
			return hintSeconds
		}
		return per
	}
	if hintSeconds > 0 {
		return hintSeconds
	}

	sum := 0.0
	for _, d := range durations {
		sum += d
	}
	desired := sum
	if desired < autoTotalMinSeconds {
		desired = autoTotalMinSeconds
	}
	if desired > autoTotalMaxSeconds {
		desired = autoTotalMaxSeconds
	}

	med := median(durations)
	per := desired / n
	if med+medianMarginSeconds > per {
		return med + medianMarginSeconds
	}
	return per
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
