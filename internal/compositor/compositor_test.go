package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/LeonRhapsody/slidecast/internal/slides"
	"github.com/LeonRhapsody/slidecast/internal/style"
)

func testFace(t *testing.T, size float64) font.Face {
	t.Helper()
	f, err := LoadFont()
	if err != nil {
		t.Fatalf("LoadFont: %v", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72})
}

func solidBG(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestFrameDimensions(t *testing.T) {
	c, err := New(320, 180, 24)
	if err != nil {
		t.Fatal(err)
	}
	bg := solidBG(640, 480, color.RGBA{200, 10, 10, 255})
	s := slides.Slide{Title: "Intro", Bullets: []string{"A", "B"}}

	for _, tt := range []float64{0, 0.5, 2.0, 5.9} {
		frame := c.Frame(bg, s, tt, 6.0, style.Default())
		if frame.Bounds().Dx() != 320 || frame.Bounds().Dy() != 180 {
			t.Fatalf("t=%.1f: frame is %v, want 320x180", tt, frame.Bounds())
		}
	}
}

// Ken Burns must cover the whole frame: with a uniform red background and
// no fade, corner pixels outside the overlay inset must be red, never the
// black of a letterbox border.
func TestKenBurnsNoLetterbox(t *testing.T) {
	c, err := New(320, 180, 24)
	if err != nil {
		t.Fatal(err)
	}
	// Extreme aspect ratios stress the cover-scale math.
	for _, dims := range [][2]int{{640, 480}, {100, 800}, {1600, 90}} {
		bg := solidBG(dims[0], dims[1], color.RGBA{220, 20, 20, 255})
		for _, tt := range []float64{1.0, 3.0, 5.99} {
			frame := c.Frame(bg, slides.Slide{}, tt, 6.0, style.Default())
			for _, pt := range []image.Point{{0, 0}, {319, 0}, {0, 179}, {319, 179}} {
				r, _, b, _ := frame.At(pt.X, pt.Y).RGBA()
				if r>>8 < 100 || b>>8 > 100 {
					t.Fatalf("bg %v t=%.2f: corner %v looks like padding: %v", dims, tt, pt, frame.At(pt.X, pt.Y))
				}
			}
		}
	}
}

func TestFrameCountRounding(t *testing.T) {
	c, err := New(320, 180, 24)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.FrameCount(6.0); got != 144 {
		t.Errorf("FrameCount(6.0) = %d, want 144", got)
	}
	if got := c.FrameCount(2.52); got != 60 {
		t.Errorf("FrameCount(2.52) = %d, want 60", got)
	}
}

func TestFadeInStartsBlack(t *testing.T) {
	c, err := New(320, 180, 24)
	if err != nil {
		t.Fatal(err)
	}
	bg := solidBG(640, 480, color.RGBA{220, 220, 220, 255})
	frame := c.Frame(bg, slides.Slide{Title: "T"}, 0, 6.0, style.Default())
	r, g, b, _ := frame.At(160, 90).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("frame at t=0 should be fully faded to black, got %v", frame.At(160, 90))
	}
}

func TestWrapTextRespectsBudget(t *testing.T) {
	face := testFace(t, 32)
	text := "the quick brown fox jumps over the lazy dog again and again"
	budget := 240
	lines := wrapText(face, text, budget)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping, got %d line(s)", len(lines))
	}
	for _, line := range lines {
		// Single-word overflow lines are the only permitted exception.
		if measureWidth(face, line) > budget && strings.Contains(line, " ") {
			t.Errorf("line %q exceeds budget %d", line, budget)
		}
	}
	if strings.Join(lines, " ") != text {
		t.Errorf("word sequence not preserved: %q", strings.Join(lines, " "))
	}
}

func TestWrapTextSingleLongWord(t *testing.T) {
	face := testFace(t, 32)
	lines := wrapText(face, "antidisestablishmentarianism", 20)
	if len(lines) != 1 {
		t.Fatalf("a single oversized word should still produce one line, got %v", lines)
	}
}

func TestSanitizeOverlayText(t *testing.T) {
	in := "What is the Sun? It's a star: hot; bright • very – big — really."
	out := sanitizeOverlayText(in)
	for _, bad := range []string{"?", ".", ":", ";", "•", "–", "—"} {
		if strings.Contains(out, bad) {
			t.Errorf("sanitized text still contains %q: %q", bad, out)
		}
	}
	if !strings.Contains(out, "What is the Sun") {
		t.Errorf("sanitization removed too much: %q", out)
	}
}
