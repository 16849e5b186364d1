package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/LeonRhapsody/slidecast/internal/background"
	"github.com/LeonRhapsody/slidecast/internal/config"
	"github.com/LeonRhapsody/slidecast/internal/media"
	"github.com/LeonRhapsody/slidecast/internal/pipeline"
	"github.com/LeonRhapsody/slidecast/internal/slides"
	"github.com/LeonRhapsody/slidecast/internal/style"
	"github.com/LeonRhapsody/slidecast/internal/tts"
)

// render is the one-shot counterpart to the server: feed it a deck (JSON)
// or a script (markdown-ish), get an MP4, exit.
func main() {
	var (
		topic      = flag.String("topic", "", "deck topic, used for background selection")
		deckFile   = flag.String("deck", "", "path to a JSON file with a slide array")
		scriptFile = flag.String("script", "", "path to a script file (### headings + bullets)")
		out        = flag.String("out", "output.mp4", "output video path")

		width     = flag.Int("width", 0, "video width (default from config)")
		height    = flag.Int("height", 0, "video height (default from config)")
		fps       = flag.Int("fps", 0, "frames per second (default from config)")
		perSlide  = flag.Float64("seconds-per-slide", 0, "minimum seconds per slide")
		total     = flag.Float64("total-seconds", 0, "target total runtime, spread across slides")
		voiceName = flag.String("voice", "", "voice name (e.g. Rachel, Adam)")
		gender    = flag.String("gender", "", "voice gender hint (male/female)")
		preset    = flag.String("style", "", "style preset name from the styles file")
	)
	flag.Parse()

	if *deckFile == "" && *scriptFile == "" {
		fmt.Fprintln(os.Stderr, "either -deck or -script is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := media.CheckBinaries(); err != nil {
		log.Fatalf("dependency check failed: %v", err)
	}

	cfg := config.LoadConfig()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	deck, err := loadDeck(*topic, *deckFile, *scriptFile)
	if err != nil {
		sugar.Fatalw("cannot load slides", "error", err)
	}

	presets, err := style.LoadPresets(cfg.StylesFile)
	if err != nil {
		sugar.Fatalw("invalid style presets", "file", cfg.StylesFile, "error", err)
	}

	opts := pipeline.Options{
		Width:              pick(*width, cfg.VideoWidth),
		Height:             pick(*height, cfg.VideoHeight),
		FPS:                pick(*fps, cfg.FPS),
		SecondsPerSlide:    *perSlide,
		TargetTotalSeconds: *total,
		Voice:              tts.Voice{Name: *voiceName, Gender: strings.ToLower(*gender)},
		Style:              presets.Get(*preset),
	}
	// Pacing precedence: flags, then a named preset, then config.
	if opts.SecondsPerSlide <= 0 && opts.TargetTotalSeconds <= 0 {
		if *preset != "" {
			opts.SecondsPerSlide = opts.Style.SecondsPerSlide
		}
		if opts.SecondsPerSlide <= 0 {
			opts.SecondsPerSlide = cfg.SecondsPerSlide
		}
	}

	pl := pipeline.New(
		tts.NewSynthesizer(cfg, sugar),
		media.NewFFmpeg(),
		background.NewProvider(cfg.BackgroundImage),
		sugar,
	).WithProgress(func(percent int, message string) {
		fmt.Printf("[%3d%%] %s\n", percent, message)
	})

	path, err := pl.Generate(context.Background(), deck, opts, *out)
	if err != nil {
		sugar.Fatalw("render failed", "error", err)
	}
	fmt.Printf("wrote %s\n", path)
}

func loadDeck(topic, deckFile, scriptFile string) (slides.Deck, error) {
	deck := slides.Deck{Topic: topic}

	if deckFile != "" {
		data, err := os.ReadFile(deckFile)
		if err != nil {
			return deck, err
		}
		if err := json.Unmarshal(data, &deck.Slides); err != nil {
			return deck, fmt.Errorf("parse %s: %w", deckFile, err)
		}
		return deck, nil
	}

	data, err := os.ReadFile(scriptFile)
	if err != nil {
		return deck, err
	}
	deck.Slides = slides.ParseScript(string(data))
	return deck, nil
}

func pick(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
