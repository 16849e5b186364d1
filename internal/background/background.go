// Package background supplies per-slide base images: a configured static
// image when present, topic-matched gradient variants otherwise, and a
// solid color as the base case. It never fails.
package background

import (
	"image"
	"image/color"
	"os"
	"strings"
	"sync"

	_ "image/jpeg"
	_ "image/png"
)

// Category palettes: each category renders one gradient per color pair so
// consecutive slides alternate look.
type palette struct {
	from, to color.RGBA
}

var categoryPalettes = map[string][]palette{
	"space": {
		{color.RGBA{10, 12, 40, 255}, color.RGBA{60, 20, 90, 255}},
		{color.RGBA{5, 8, 30, 255}, color.RGBA{20, 60, 120, 255}},
		{color.RGBA{25, 10, 60, 255}, color.RGBA{90, 30, 110, 255}},
	},
	"nature": {
		{color.RGBA{18, 60, 30, 255}, color.RGBA{60, 130, 70, 255}},
		{color.RGBA{10, 45, 40, 255}, color.RGBA{40, 110, 100, 255}},
		{color.RGBA{30, 70, 25, 255}, color.RGBA{110, 150, 60, 255}},
	},
	"technology": {
		{color.RGBA{15, 25, 45, 255}, color.RGBA{30, 90, 140, 255}},
		{color.RGBA{20, 20, 35, 255}, color.RGBA{70, 70, 120, 255}},
		{color.RGBA{10, 30, 50, 255}, color.RGBA{0, 120, 160, 255}},
	},
	"history": {
		{color.RGBA{60, 40, 20, 255}, color.RGBA{130, 95, 50, 255}},
		{color.RGBA{45, 30, 25, 255}, color.RGBA{110, 75, 55, 255}},
	},
	"biology": {
		{color.RGBA{40, 15, 45, 255}, color.RGBA{110, 40, 90, 255}},
		{color.RGBA{20, 50, 55, 255}, color.RGBA{50, 120, 110, 255}},
	},
	"mathematics": {
		{color.RGBA{25, 25, 30, 255}, color.RGBA{80, 80, 95, 255}},
		{color.RGBA{30, 35, 55, 255}, color.RGBA{90, 100, 140, 255}},
	},
	"default": {
		{color.RGBA{20, 30, 45, 255}, color.RGBA{50, 70, 100, 255}},
		{color.RGBA{25, 25, 40, 255}, color.RGBA{70, 60, 110, 255}},
	},
}

var categoryKeywords = map[string][]string{
	"space":       {"space", "planet", "star", "sun", "moon", "galaxy", "universe", "astronomy", "solar"},
	"nature":      {"nature", "forest", "ocean", "river", "animal", "plant", "climate", "earth", "ecosystem"},
	"technology":  {"computer", "software", "technology", "internet", "ai", "robot", "code", "programming", "data"},
	"history":     {"history", "ancient", "war", "empire", "civilization", "revolution", "medieval"},
	"biology":     {"cell", "biology", "dna", "gene", "organism", "bacteria", "virus", "anatomy"},
	"mathematics": {"math", "algebra", "geometry", "calculus", "equation", "number", "statistics"},
}

// ResolveCategory maps a topic string to a palette category via simple
// keyword matching. Unknown topics land on "default".
func ResolveCategory(topic string) string {
	lower := strings.ToLower(topic)
	if _, ok := categoryPalettes[lower]; ok {
		return lower
	}
	for category, words := range categoryKeywords {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return category
			}
		}
	}
	return "default"
}

// Provider returns base images for slides. Gradient variants are rendered
// once per category and cached; the cache is read-mostly and safe for the
// sequential pipeline, with a lock for the parallel synthesis phase.
type Provider struct {
	// StaticImagePath is preferred unconditionally when the file exists
	// (single background for all slides).
	StaticImagePath string

	// Base dimensions for generated gradients. The compositor rescales,
	// so these just need a sane aspect ratio.
	Width  int
	Height int

	mu     sync.Mutex
	cache  map[string][]image.Image
	static image.Image
	tried  bool
}

func NewProvider(staticImagePath string) *Provider {
	return &Provider{
		StaticImagePath: staticImagePath,
		Width:           1280,
		Height:          720,
		cache:           make(map[string][]image.Image),
	}
}

// Background returns the base image for a slide. It always returns a
// non-nil image: static file, then category gradient, then solid fallback.
func (p *Provider) Background(topicOrCategory string, slideIndex int) image.Image {
	if img := p.staticImage(); img != nil {
		return img
	}

	category := ResolveCategory(topicOrCategory)
	variants := p.gradients(category)
	if len(variants) == 0 {
		variants = p.gradients("default")
	}
	if len(variants) == 0 {
		return solidImage(p.Width, p.Height, color.RGBA{20, 30, 45, 255})
	}
	return variants[slideIndex%len(variants)]
}

func (p *Provider) staticImage() image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.tried {
		p.tried = true
		if p.StaticImagePath != "" {
			if f, err := os.Open(p.StaticImagePath); err == nil {
				if img, _, err := image.Decode(f); err == nil {
					p.static = img
				}
				f.Close()
			}
		}
	}
	return p.static
}

func (p *Provider) gradients(category string) []image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.cache[category]; ok {
		return cached
	}

	palettes := categoryPalettes[category]
	variants := make([]image.Image, 0, len(palettes))
	for _, pal := range palettes {
		variants = append(variants, diagonalGradient(p.Width, p.Height, pal.from, pal.to))
	}
	p.cache[category] = variants
	return variants
}

func diagonalGradient(w, h int, from, to color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	maxDist := float64(w + h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := float64(x+y) / maxDist
			img.SetRGBA(x, y, color.RGBA{
				R: lerp(from.R, to.R, t),
				G: lerp(from.G, to.G, t),
				B: lerp(from.B, to.B, t),
				A: 255,
			})
		}
	}
	return img
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
