package compositor

import (
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// LoadFont returns the overlay font. System fonts are preferred for nicer
// hinting; the embedded Go Regular face is the guaranteed fallback so
// rendering never depends on host font installs.
func LoadFont() (*truetype.Font, error) {
	candidates := []string{
		"overlay.ttf", // Local file has highest priority
		"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
		"/System/Library/Fonts/Supplemental/Arial Bold.ttf",
		"/System/Library/Fonts/Supplemental/Arial.ttf",
	}

	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if f, err := truetype.Parse(data); err == nil {
			return f, nil
		}
	}

	return truetype.Parse(goregular.TTF)
}
