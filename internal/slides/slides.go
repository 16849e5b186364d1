package slides

import (
	"fmt"
	"strings"
)

// Slide is one unit of presentation content, mapped to one video segment.
type Slide struct {
	Title         string   `json:"title"`
	Bullets       []string `json:"bullets"`
	Narration     string   `json:"narration,omitempty"`
	Subtopics     []string `json:"subtopics,omitempty"`
	Examples      []string `json:"examples,omitempty"`
	VisualPrompts []string `json:"visual_prompts,omitempty"`
}

// Valid reports whether the slide carries any renderable content.
// A slide needs a title or at least one bullet; fully empty slides
// are dropped during parsing.
func (s Slide) Valid() bool {
	if strings.TrimSpace(s.Title) != "" {
		return true
	}
	for _, b := range s.Bullets {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

// Deck is an ordered sequence of slides plus the metadata used for
// background selection.
type Deck struct {
	Topic    string  `json:"topic"`
	Audience string  `json:"audience,omitempty"`
	Slides   []Slide `json:"slides"`
}

// ParseScript parses an explainer script into slides.
//
// Expected format:
//
//	### Slide X: Title
//	- Bullet 1
//	- Bullet 2
//
// Lines without a marker are treated as bullets. Slides that end up with
// neither a title nor bullets are silently dropped.
func ParseScript(script string) []Slide {
	var out []Slide
	var current Slide

	flush := func() {
		if current.Valid() {
			out = append(out, current)
		}
		current = Slide{}
	}

	for _, raw := range strings.Split(script, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "### "):
			flush()
			current.Title = strings.TrimSpace(strings.TrimPrefix(line, "###"))
		case strings.HasPrefix(line, "- "):
			current.Bullets = append(current.Bullets, strings.TrimSpace(line[2:]))
		default:
			current.Bullets = append(current.Bullets, line)
		}
	}
	flush()

	return out
}

// SpeechText builds the narration text for TTS. Narration is preferred;
// bullets joined into a sentence are the fallback. The index prefix varies
// the opening of each slide, which reduces repetition artifacts in TTS
// prosody.
func SpeechText(s Slide, index int) string {
	narr := strings.TrimSpace(s.Narration)
	if narr == "" {
		var parts []string
		for _, b := range s.Bullets {
			if t := strings.TrimSpace(b); t != "" {
				parts = append(parts, t)
			}
		}
		narr = strings.Join(parts, ". ")
	}
	return strings.TrimSpace(fmt.Sprintf("Slide %d. %s", index+1, narr))
}
