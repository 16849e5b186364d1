// Package style defines the render style consumed by the frame compositor.
// The shape matches what the reference-video style extractor produces; here
// styles come from defaults or named YAML presets.
package style

import (
	"fmt"
	"image/color"
	"os"

	"gopkg.in/yaml.v3"
)

// RGB is a plain color triple as it appears in preset files.
type RGB struct {
	R uint8 `yaml:"r" json:"r"`
	G uint8 `yaml:"g" json:"g"`
	B uint8 `yaml:"b" json:"b"`
}

func (c RGB) Color() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Style controls the text overlay and pacing of rendered slides.
type Style struct {
	OverlayColor    RGB     `yaml:"overlay_color" json:"overlay_color"`
	OverlayAlpha    float64 `yaml:"overlay_alpha" json:"overlay_alpha"`
	TextColor       RGB     `yaml:"text_color" json:"text_color"`
	TitleScale      float64 `yaml:"title_scale" json:"title_scale"`
	BulletScale     float64 `yaml:"bullet_scale" json:"bullet_scale"`
	SecondsPerSlide float64 `yaml:"seconds_per_slide" json:"seconds_per_slide"`
}

// Default is the clean style used when no preset is requested.
func Default() Style {
	return Style{
		OverlayColor:    RGB{0, 0, 0},
		OverlayAlpha:    0.35,
		TextColor:       RGB{255, 255, 255},
		TitleScale:      1.1,
		BulletScale:     0.8,
		SecondsPerSlide: 7.0,
	}
}

func (s Style) validate() error {
	if s.OverlayAlpha < 0 || s.OverlayAlpha > 1 {
		return fmt.Errorf("overlay_alpha %.2f outside [0,1]", s.OverlayAlpha)
	}
	if s.TitleScale <= 0 || s.BulletScale <= 0 {
		return fmt.Errorf("scales must be positive (title=%.2f bullet=%.2f)", s.TitleScale, s.BulletScale)
	}
	if s.SecondsPerSlide <= 0 {
		return fmt.Errorf("seconds_per_slide must be positive, got %.2f", s.SecondsPerSlide)
	}
	return nil
}

// Presets is a named collection loaded from YAML.
type Presets struct {
	Styles map[string]Style `yaml:"styles"`
}

// LoadPresets reads a YAML preset file. A missing file yields an empty
// preset set, not an error.
func LoadPresets(path string) (*Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Presets{Styles: map[string]Style{}}, nil
		}
		return nil, err
	}
	var p Presets
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse style presets %s: %w", path, err)
	}
	if p.Styles == nil {
		p.Styles = map[string]Style{}
	}
	for name, s := range p.Styles {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
	}
	return &p, nil
}

// Get returns the named preset, or the default style for unknown names.
func (p *Presets) Get(name string) Style {
	if p != nil {
		if s, ok := p.Styles[name]; ok {
			return s
		}
	}
	return Default()
}
