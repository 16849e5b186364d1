// Package media wraps the external ffmpeg/ffprobe binaries behind a narrow
// encoder interface: write frames into a container, mux audio into video,
// concatenate containers. These are the only environment-dependent calls in
// the pipeline, so everything above this seam can be tested with fakes.
package media

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ClipSpec describes a silent frame sequence to be containerized.
type ClipSpec struct {
	Width      int
	Height     int
	FPS        int
	FrameCount int
}

func (s ClipSpec) validate() error {
	if s.Width <= 0 || s.Height <= 0 || s.FPS <= 0 || s.FrameCount <= 0 {
		return fmt.Errorf("invalid clip spec %+v", s)
	}
	return nil
}

// FrameFunc returns the frame at index i. Frames must match the clip spec
// dimensions exactly.
type FrameFunc func(i int) (*image.RGBA, error)

// Encoder is the seam to the external media tooling.
type Encoder interface {
	// WriteFrames streams frames into a silent video container.
	WriteFrames(frames FrameFunc, spec ClipSpec, outPath string) error
	// Mux merges a silent video and an audio file, padding audio with
	// silence and constraining output to durationSeconds.
	Mux(videoPath, audioPath string, durationSeconds float64, outPath string) error
	// Concat joins already-encoded segments, in order, into one file.
	Concat(segmentPaths []string, outPath string) error
	// ProbeDuration returns a media file's duration in seconds.
	ProbeDuration(path string) (float64, error)
}

const (
	framesTimeout = 120 * time.Second
	muxTimeout    = 120 * time.Second
	concatTimeout = 180 * time.Second
	probeTimeout  = 30 * time.Second
)

// CheckBinaries verifies ffmpeg and ffprobe are on PATH. Their absence is
// fatal for the whole pipeline, so callers check at startup.
func CheckBinaries() error {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s is not installed or not in PATH: %w", bin, err)
		}
	}
	return nil
}

// FFmpeg is the production Encoder.
type FFmpeg struct{}

func NewFFmpeg() *FFmpeg { return &FFmpeg{} }

func (f *FFmpeg) WriteFrames(frames FrameFunc, spec ClipSpec, outPath string) error {
	if err := spec.validate(); err != nil {
		return err
	}

	pr, pw := io.Pipe()
	writeErr := make(chan error, 1)
	go func() {
		var err error
		for i := 0; i < spec.FrameCount; i++ {
			frame, ferr := frames(i)
			if ferr != nil {
				err = fmt.Errorf("render frame %d: %w", i, ferr)
				break
			}
			b := frame.Bounds()
			if b.Dx() != spec.Width || b.Dy() != spec.Height {
				err = fmt.Errorf("frame %d is %dx%d, want %dx%d", i, b.Dx(), b.Dy(), spec.Width, spec.Height)
				break
			}
			if _, werr := pw.Write(frame.Pix); werr != nil {
				// The encoder stopped reading (or never started); its
				// exit error carries the real cause.
				break
			}
		}
		pw.CloseWithError(err)
		writeErr <- err
	}()

	cmd := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", spec.Width, spec.Height),
		"framerate": spec.FPS,
	}).
		Output(outPath, ffmpeg.KwArgs{
			"c:v":     "libx264",
			"preset":  "veryfast",
			"pix_fmt": "yuv420p",
			"r":       spec.FPS,
		}).
		OverWriteOutput().
		WithInput(pr).
		Compile()

	runErr := runCmd(cmd, framesTimeout)
	// Unblock the writer: if the process failed to start or exited before
	// consuming every frame, nothing drains the pipe and pw.Write would
	// block forever.
	pr.CloseWithError(runErr)
	werr := <-writeErr
	if runErr != nil {
		return fmt.Errorf("write frames to %s: %w", filepath.Base(outPath), runErr)
	}
	if werr != nil {
		return werr
	}
	return nil
}

func (f *FFmpeg) Mux(videoPath, audioPath string, durationSeconds float64, outPath string) error {
	video := ffmpeg.Input(videoPath)
	audio := ffmpeg.Input(audioPath)

	// apad keeps slightly-short narration from truncating the tail; -t
	// caps the result at the decided slide duration.
	cmd := ffmpeg.Output([]*ffmpeg.Stream{video, audio}, outPath, ffmpeg.KwArgs{
		"filter_complex": "[1:a]apad[aout]",
		"map":            []string{"0:v", "[aout]"},
		"t":              fmt.Sprintf("%.3f", durationSeconds),
		"c:v":            "libx264",
		"preset":         "veryfast",
		"pix_fmt":        "yuv420p",
		"c:a":            "aac",
		"b:a":            "192k",
	}).
		OverWriteOutput().
		Compile()

	if err := runCmd(cmd, muxTimeout); err != nil {
		return fmt.Errorf("mux %s + %s: %w", filepath.Base(videoPath), filepath.Base(audioPath), err)
	}
	return nil
}

func (f *FFmpeg) Concat(segmentPaths []string, outPath string) error {
	if len(segmentPaths) == 0 {
		return fmt.Errorf("no segments to concatenate")
	}

	listPath := outPath + ".concat.txt"
	if err := writeConcatList(listPath, segmentPaths); err != nil {
		return err
	}
	defer os.Remove(listPath)

	// Re-encode rather than stream-copy so per-slide segments with any
	// codec drift still join cleanly; faststart for streaming playback.
	cmd := ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": 0}).
		Output(outPath, ffmpeg.KwArgs{
			"c:v":      "libx264",
			"c:a":      "aac",
			"movflags": "+faststart",
		}).
		OverWriteOutput().
		Compile()

	if err := runCmd(cmd, concatTimeout); err != nil {
		return fmt.Errorf("concat %d segments: %w", len(segmentPaths), err)
	}
	return nil
}

func (f *FFmpeg) ProbeDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := runCmd(cmd, probeTimeout); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(out.String()), 64)
}

func writeConcatList(listPath string, segmentPaths []string) error {
	var b strings.Builder
	for _, p := range segmentPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	return os.WriteFile(listPath, []byte(b.String()), 0644)
}

// runCmd supervises a subprocess with a hard wall-clock timeout so a hung
// encoder cannot stall the pipeline indefinitely. Stderr is kept for error
// reporting.
func runCmd(cmd *exec.Cmd, timeout time.Duration) error {
	var stderr bytes.Buffer
	if cmd.Stderr == nil {
		cmd.Stderr = &stderr
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", filepath.Base(cmd.Path), err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s failed: %w: %s", filepath.Base(cmd.Path), err, tail(stderr.String(), 512))
		}
		return nil
	case <-time.After(timeout):
		cmd.Process.Kill()
		<-done
		return fmt.Errorf("%s timed out after %s", filepath.Base(cmd.Path), timeout)
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
