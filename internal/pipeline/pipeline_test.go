package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/LeonRhapsody/slidecast/internal/background"
	"github.com/LeonRhapsody/slidecast/internal/media"
	"github.com/LeonRhapsody/slidecast/internal/slides"
	"github.com/LeonRhapsody/slidecast/internal/tts"
)

// fakeSynth writes a tiny audio file; optionally fails.
type fakeSynth struct {
	mu    sync.Mutex
	err   error
	texts []string
}

func (f *fakeSynth) Name() string { return "fake" }

func (f *fakeSynth) Synthesize(_ context.Context, text, outputPath string, _ tts.Voice) error {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("mp3"), 0644)
}

// fakeEncoder simulates ffmpeg by creating placeholder files and recording
// every call.
type fakeEncoder struct {
	durations map[string]float64 // by base name; default 2.0
	probeErr  error
	framesErr error
	muxErr    error
	concatErr error

	specs      []media.ClipSpec
	muxCalls   [][3]string // video, audio, out
	concatArgs []string
}

func (f *fakeEncoder) WriteFrames(frames media.FrameFunc, spec media.ClipSpec, outPath string) error {
	if f.framesErr != nil {
		return f.framesErr
	}
	// Pull a couple of frames to exercise the frame source.
	for _, i := range []int{0, spec.FrameCount - 1} {
		img, err := frames(i)
		if err != nil {
			return err
		}
		if img.Bounds().Dx() != spec.Width || img.Bounds().Dy() != spec.Height {
			return fmt.Errorf("frame %d has wrong size %v", i, img.Bounds())
		}
	}
	f.specs = append(f.specs, spec)
	return os.WriteFile(outPath, []byte("silent"), 0644)
}

func (f *fakeEncoder) Mux(videoPath, audioPath string, _ float64, outPath string) error {
	if f.muxErr != nil {
		return f.muxErr
	}
	f.muxCalls = append(f.muxCalls, [3]string{videoPath, audioPath, outPath})
	return os.WriteFile(outPath, []byte("muxed"), 0644)
}

func (f *fakeEncoder) Concat(segmentPaths []string, outPath string) error {
	if f.concatErr != nil {
		return f.concatErr
	}
	f.concatArgs = append([]string(nil), segmentPaths...)
	return os.WriteFile(outPath, []byte("final"), 0644)
}

func (f *fakeEncoder) ProbeDuration(path string) (float64, error) {
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	if d, ok := f.durations[filepath.Base(path)]; ok {
		return d, nil
	}
	return 2.0, nil
}

func newTestPipeline(synth tts.Synthesizer, enc media.Encoder) *Pipeline {
	return New(synth, enc, background.NewProvider(""), zap.NewNop().Sugar())
}

func smallOpts() Options {
	return Options{Width: 160, Height: 90, FPS: 12, SecondsPerSlide: 6}
}

func testDeck() slides.Deck {
	return slides.Deck{
		Topic: "the sun",
		Slides: []slides.Slide{
			{Title: "Intro", Bullets: []string{"A", "B"}, Narration: "Hello world"},
			{Title: "More", Bullets: []string{"x", "y", "z"}},
		},
	}
}

func TestDecideDuration(t *testing.T) {
	cases := []struct{ min, audio, want float64 }{
		{6, 2, 6},
		{6, 9.5, 9.5},
		{6, 6, 6},
		{6, 0, 6}, // probe failure
	}
	for _, c := range cases {
		if got := decideDuration(c.min, c.audio); got != c.want {
			t.Errorf("decideDuration(%v, %v) = %v, want %v", c.min, c.audio, got, c.want)
		}
	}
}

func TestGenerateHappyPath(t *testing.T) {
	enc := &fakeEncoder{}
	synth := &fakeSynth{}
	p := newTestPipeline(synth, enc)

	out := filepath.Join(t.TempDir(), "final.mp4")
	got, err := p.Generate(context.Background(), testDeck(), smallOpts(), out)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != out {
		t.Errorf("returned path %q != requested %q", got, out)
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Fatalf("expected non-empty output, err=%v", err)
	}

	// Both slides at the 6s floor (narration probes at 2s).
	if len(enc.specs) != 2 {
		t.Fatalf("expected 2 frame-writing calls, got %d", len(enc.specs))
	}
	want := int(math.Round(6 * 12))
	for i, spec := range enc.specs {
		if spec.FrameCount != want {
			t.Errorf("slide %d frame count = %d, want %d", i, spec.FrameCount, want)
		}
	}

	// Segments handed to concat in slide order.
	if len(enc.concatArgs) != 2 {
		t.Fatalf("concat received %d segments", len(enc.concatArgs))
	}
	for i, p := range enc.concatArgs {
		if filepath.Base(p) != fmt.Sprintf("segment_%d.mp4", i) {
			t.Errorf("segment %d out of order: %s", i, p)
		}
	}

	// Speech text: narration when present, bullets otherwise.
	joined := fmt.Sprint(synth.texts)
	if want := "Hello world"; !contains(synth.texts, "Slide 1. "+want) {
		t.Errorf("narration text missing, got %v", joined)
	}
	if !contains(synth.texts, "Slide 2. x. y. z") {
		t.Errorf("bullet fallback text missing, got %v", joined)
	}

	// Intermediates are gone.
	for _, seg := range enc.concatArgs {
		if _, err := os.Stat(seg); !os.IsNotExist(err) {
			t.Errorf("segment %s not cleaned up", seg)
		}
	}
}

func TestGenerateDropsInvalidSlides(t *testing.T) {
	enc := &fakeEncoder{}
	p := newTestPipeline(&fakeSynth{}, enc)
	deck := slides.Deck{Topic: "t", Slides: []slides.Slide{
		{}, // dropped silently
		{Title: "Real"},
	}}
	out := filepath.Join(t.TempDir(), "final.mp4")
	if _, err := p.Generate(context.Background(), deck, smallOpts(), out); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(enc.specs) != 1 {
		t.Errorf("expected 1 rendered slide, got %d", len(enc.specs))
	}
}

func TestGenerateEmptyDeckFails(t *testing.T) {
	p := newTestPipeline(&fakeSynth{}, &fakeEncoder{})
	_, err := p.Generate(context.Background(), slides.Deck{}, smallOpts(), "out.mp4")
	if err == nil {
		t.Fatal("expected error for empty deck")
	}
}

func TestGenerateSynthesisFailureIsFatal(t *testing.T) {
	p := newTestPipeline(&fakeSynth{err: errors.New("both providers down")}, &fakeEncoder{})
	out := filepath.Join(t.TempDir(), "final.mp4")
	_, err := p.Generate(context.Background(), testDeck(), smallOpts(), out)

	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("no output file should exist after synthesis failure")
	}
}

func TestGenerateEncodingFailureIsFatal(t *testing.T) {
	enc := &fakeEncoder{muxErr: errors.New("exit status 1")}
	p := newTestPipeline(&fakeSynth{}, enc)
	out := filepath.Join(t.TempDir(), "final.mp4")
	_, err := p.Generate(context.Background(), testDeck(), smallOpts(), out)

	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
	if encErr.Step != "mux" {
		t.Errorf("unexpected step %q", encErr.Step)
	}
	if encErr.SlideIndex != 0 {
		t.Errorf("unexpected slide index %d", encErr.SlideIndex)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("no output file should exist after encoding failure")
	}
}

func TestGenerateConcatFailureIsFatal(t *testing.T) {
	enc := &fakeEncoder{concatErr: errors.New("exit status 1")}
	p := newTestPipeline(&fakeSynth{}, enc)
	out := filepath.Join(t.TempDir(), "final.mp4")
	_, err := p.Generate(context.Background(), testDeck(), smallOpts(), out)

	var concatErr *ConcatenationError
	if !errors.As(err, &concatErr) {
		t.Fatalf("expected ConcatenationError, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("no partial output should survive a concat failure")
	}
}

func TestGenerateProbeFailureFallsBackToMinimum(t *testing.T) {
	enc := &fakeEncoder{probeErr: errors.New("ffprobe broke")}
	p := newTestPipeline(&fakeSynth{}, enc)
	out := filepath.Join(t.TempDir(), "final.mp4")
	if _, err := p.Generate(context.Background(), testDeck(), smallOpts(), out); err != nil {
		t.Fatalf("probe failure must be recoverable: %v", err)
	}
	want := int(math.Round(6 * 12))
	for i, spec := range enc.specs {
		if spec.FrameCount != want {
			t.Errorf("slide %d frame count = %d, want floor %d", i, spec.FrameCount, want)
		}
	}
}

func TestGenerateLongNarrationExtendsSlide(t *testing.T) {
	enc := &fakeEncoder{durations: map[string]float64{
		"audio_0.mp3": 9.5,
		"audio_1.mp3": 2.0,
	}}
	p := newTestPipeline(&fakeSynth{}, enc)
	out := filepath.Join(t.TempDir(), "final.mp4")
	if _, err := p.Generate(context.Background(), testDeck(), smallOpts(), out); err != nil {
		t.Fatal(err)
	}
	if got := enc.specs[0].FrameCount; got != int(math.Round(9.5*12)) {
		t.Errorf("long narration slide frame count = %d", got)
	}
	if got := enc.specs[1].FrameCount; got != int(math.Round(6*12)) {
		t.Errorf("short narration slide should sit at the floor, got %d", got)
	}
}

func TestUniformMinimum(t *testing.T) {
	// Hint only.
	if got := uniformMinimum([]float64{2, 2}, 6, 0); got != 6 {
		t.Errorf("hint-only = %v, want 6", got)
	}
	// Explicit total distributed across slides, hint still a floor.
	if got := uniformMinimum([]float64{2, 2}, 0, 30); got != 15 {
		t.Errorf("explicit total = %v, want 15", got)
	}
	if got := uniformMinimum([]float64{2, 2}, 20, 30); got != 20 {
		t.Errorf("hint floor under explicit total = %v, want 20", got)
	}
	// Auto policy: sum clamped up to the 4-minute band edge, spread evenly.
	if got := uniformMinimum([]float64{10, 10, 10, 10}, 0, 0); got != 60 {
		t.Errorf("auto policy = %v, want 240/4 = 60", got)
	}
	// Auto policy: median + margin wins when it exceeds the even split.
	durations := make([]float64, 10)
	for i := range durations {
		durations[i] = 70
	}
	if got := uniformMinimum(durations, 0, 0); got != 70.5 {
		t.Errorf("median branch = %v, want 70.5", got)
	}
}

func TestMedian(t *testing.T) {
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("odd median = %v", got)
	}
	if got := median([]float64{4, 1, 2, 3}); got != 2.5 {
		t.Errorf("even median = %v", got)
	}
	if got := median(nil); got != 0 {
		t.Errorf("empty median = %v", got)
	}
}

func TestGenerateScriptParsesMarkup(t *testing.T) {
	enc := &fakeEncoder{}
	p := newTestPipeline(&fakeSynth{}, enc)
	script := "### One\n- a\n\n### Two\n- b\n"
	out := filepath.Join(t.TempDir(), "final.mp4")
	if _, err := p.GenerateScript(context.Background(), "history of rome", script, smallOpts(), out); err != nil {
		t.Fatal(err)
	}
	if len(enc.specs) != 2 {
		t.Errorf("expected 2 slides from script, got %d", len(enc.specs))
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
