// Package compositor renders slide frames: an animated pan/zoom background
// with title, bullets and optional narration burned in.
package compositor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	xdraw "golang.org/x/image/draw"

	"github.com/LeonRhapsody/slidecast/internal/slides"
	"github.com/LeonRhapsody/slidecast/internal/style"
)

const (
	zoomStart = 1.05
	zoomEnd   = 1.15

	fadeInSeconds = 1.0

	// Overlay rectangle inset and text margins, matching the layout the
	// style extractor was calibrated against.
	insetX     = 30
	insetY     = 60
	textMargin = 60

	maxTitleLines = 2
	maxBullets    = 5
)

type Compositor struct {
	Width  int
	Height int
	FPS    int

	font  *truetype.Font
	faces map[float64]font.Face
}

func New(width, height, fps int) (*Compositor, error) {
	if width <= 0 || height <= 0 || fps <= 0 {
		return nil, fmt.Errorf("invalid frame spec %dx%d@%d", width, height, fps)
	}
	f, err := LoadFont()
	if err != nil {
		return nil, fmt.Errorf("load overlay font: %w", err)
	}
	return &Compositor{
		Width:  width,
		Height: height,
		FPS:    fps,
		font:   f,
		faces:  make(map[float64]font.Face),
	}, nil
}

// FrameCount returns the number of frames for a clip of the given duration.
func (c *Compositor) FrameCount(durationSeconds float64) int {
	return int(math.Round(durationSeconds * float64(c.FPS)))
}

// Frame renders the frame at time t of a clip lasting total seconds.
// The result always has exactly the compositor's pixel dimensions.
func (c *Compositor) Frame(bg image.Image, slide slides.Slide, t, total float64, st style.Style) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))

	if bg != nil {
		c.kenBurns(frame, bg, t, total)
	} else {
		draw.Draw(frame, frame.Bounds(), image.NewUniform(color.RGBA{20, 30, 45, 255}), image.Point{}, draw.Src)
	}

	c.drawOverlay(frame, st)
	c.drawText(frame, slide, st)

	if t < fadeInSeconds {
		applyFade(frame, t/fadeInSeconds)
	}
	return frame
}

// kenBurns scales the background so it always covers the frame, zooms from
// zoomStart to zoomEnd and pans the crop window from the top-left toward
// the bottom-right. The crop stays inside the scaled source at all times,
// so no frame is ever letterboxed.
func (c *Compositor) kenBurns(dst *image.RGBA, bg image.Image, t, total float64) {
	a := 0.0
	if total > 0 {
		a = math.Min(1, math.Max(0, t/total))
	}

	bgW := float64(bg.Bounds().Dx())
	bgH := float64(bg.Bounds().Dy())
	cover := math.Max(float64(c.Width)/bgW, float64(c.Height)/bgH)
	scale := cover * (zoomStart + (zoomEnd-zoomStart)*a)

	scaledW := bgW * scale
	scaledH := bgH * scale
	xOff := a * math.Max(0, scaledW-float64(c.Width))
	yOff := a * math.Max(0, scaledH-float64(c.Height))

	// Visible window mapped back into source coordinates.
	sx0 := xOff / scale
	sy0 := yOff / scale
	sx1 := (xOff + float64(c.Width)) / scale
	sy1 := (yOff + float64(c.Height)) / scale

	srcRect := image.Rect(
		clampInt(int(sx0), 0, bg.Bounds().Dx()-1),
		clampInt(int(sy0), 0, bg.Bounds().Dy()-1),
		clampInt(int(math.Ceil(sx1)), 1, bg.Bounds().Dx()),
		clampInt(int(math.Ceil(sy1)), 1, bg.Bounds().Dy()),
	).Add(bg.Bounds().Min)

	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), bg, srcRect, draw.Src, nil)
}

func (c *Compositor) drawOverlay(frame *image.RGBA, st style.Style) {
	rect := image.Rect(insetX, insetY, c.Width-insetX, c.Height-insetY)
	oc := st.OverlayColor.Color()
	alpha := uint8(math.Round(st.OverlayAlpha * 255))
	overlay := image.NewUniform(color.NRGBA{R: oc.R, G: oc.G, B: oc.B, A: alpha})
	draw.Draw(frame, rect, overlay, image.Point{}, draw.Over)
}

func (c *Compositor) drawText(frame *image.RGBA, slide slides.Slide, st style.Style) {
	titleSize := 40 * st.TitleScale
	bulletSize := 32 * st.BulletScale
	narrSize := 24 * st.BulletScale
	textColor := st.TextColor.Color()

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(c.font)
	ctx.SetClip(frame.Bounds())
	ctx.SetDst(frame)
	ctx.SetSrc(image.NewUniform(textColor))

	maxWidth := c.Width - 2*textMargin
	y := 120

	if title := sanitizeOverlayText(slide.Title); title != "" {
		face := c.face(titleSize)
		lines := wrapText(face, title, maxWidth)
		if len(lines) > maxTitleLines {
			lines = lines[:maxTitleLines]
		}
		ctx.SetFontSize(titleSize)
		for _, line := range lines {
			lineWidth := measureWidth(face, line)
			x := (c.Width - lineWidth) / 2
			if x < textMargin {
				x = textMargin
			}
			ctx.DrawString(line, freetype.Pt(x, y))
			y += int(titleSize * 1.15)
		}
	}

	y += 20
	bulletFace := c.face(bulletSize)
	ctx.SetFontSize(bulletSize)
	count := 0
	for _, bullet := range slide.Bullets {
		if count >= maxBullets {
			break
		}
		text := sanitizeOverlayText(bullet)
		if text == "" {
			continue
		}
		count++
		for _, line := range wrapText(bulletFace, "- "+text, maxWidth) {
			ctx.DrawString(line, freetype.Pt(textMargin, y))
			y += int(bulletSize * 1.3)
		}
	}

	// Narration fits below the bullets when there is room; it is speech
	// first, on-screen text second.
	if narr := sanitizeOverlayText(slide.Narration); narr != "" {
		narrFace := c.face(narrSize)
		ctx.SetFontSize(narrSize)
		y += 16
		for _, line := range wrapText(narrFace, narr, maxWidth) {
			if y > c.Height-insetY-int(narrSize) {
				break
			}
			ctx.DrawString(line, freetype.Pt(textMargin, y))
			y += int(narrSize * 1.35)
		}
	}
}

func (c *Compositor) face(size float64) font.Face {
	if f, ok := c.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(c.font, &truetype.Options{Size: size, DPI: 72})
	c.faces[size] = f
	return f
}

// wrapText greedily packs words onto lines whose measured pixel width stays
// under maxWidth. A word that alone exceeds the budget gets its own line.
func wrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(strings.ReplaceAll(text, "\n", " "))
	var lines []string
	current := ""
	for _, w := range words {
		candidate := w
		if current != "" {
			candidate = current + " " + w
		}
		if measureWidth(face, candidate) <= maxWidth || current == "" {
			current = candidate
		} else {
			lines = append(lines, current)
			current = w
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func measureWidth(face font.Face, text string) int {
	return font.MeasureString(face, text).Ceil()
}

// sanitizeOverlayText keeps printable ASCII and strips punctuation that
// clutters the overlay face. This is a rendering concern only; speech text
// is untouched.
func sanitizeOverlayText(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= 127 || r < 32 {
			continue
		}
		switch r {
		case '.', '?', ':', ';':
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func applyFade(frame *image.RGBA, alpha float64) {
	if alpha < 0 {
		alpha = 0
	}
	pix := frame.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i] = uint8(float64(pix[i]) * alpha)
		pix[i+1] = uint8(float64(pix[i+1]) * alpha)
		pix[i+2] = uint8(float64(pix[i+2]) * alpha)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
