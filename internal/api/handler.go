package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeonRhapsody/slidecast/internal/config"
	"github.com/LeonRhapsody/slidecast/internal/pipeline"
	"github.com/LeonRhapsody/slidecast/internal/slides"
	"github.com/LeonRhapsody/slidecast/internal/style"
	"github.com/LeonRhapsody/slidecast/internal/tts"
)

type Handler struct {
	Config   *config.Config
	Pipeline *pipeline.Pipeline
	Synth    tts.Synthesizer
	Jobs     *JobManager
	Presets  *style.Presets
	Logger   *zap.SugaredLogger
}

func NewHandler(cfg *config.Config, p *pipeline.Pipeline, synth tts.Synthesizer, presets *style.Presets, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		Config:   cfg,
		Pipeline: p,
		Synth:    synth,
		Jobs:     NewJobManager(),
		Presets:  presets,
		Logger:   logger,
	}
}

// -- Request/Response Structs --

type GenerateRequest struct {
	Topic    string         `json:"topic" binding:"required"`
	Audience string         `json:"audience"`
	Slides   []slides.Slide `json:"slides"`
	// Script is the explainer markup alternative to structured slides.
	Script string `json:"script"`

	Width              int     `json:"width"`
	Height             int     `json:"height"`
	FPS                int     `json:"fps"`
	SecondsPerSlide    float64 `json:"seconds_per_slide"`
	TargetTotalSeconds float64 `json:"target_total_seconds"`

	Voice       tts.Voice `json:"voice"`
	StylePreset string    `json:"style_preset"`
}

type PreviewRequest struct {
	Text  string    `json:"text" binding:"required"`
	Voice tts.Voice `json:"voice"`
}

// -- Handlers --

func (h *Handler) HandleGenerate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deck := slides.Deck{Topic: req.Topic, Audience: req.Audience, Slides: req.Slides}
	if len(deck.Slides) == 0 && req.Script != "" {
		deck.Slides = slides.ParseScript(req.Script)
	}
	hasValid := false
	for _, s := range deck.Slides {
		if s.Valid() {
			hasValid = true
			break
		}
	}
	if !hasValid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid slides: provide slides or a script"})
		return
	}

	cfg := h.Config.Snapshot()

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create output dir"})
		return
	}

	jobID := uuid.NewString()
	h.Jobs.CreateJob(jobID, req.Topic)

	opts := pipeline.Options{
		Width:              firstPositive(req.Width, cfg.VideoWidth),
		Height:             firstPositive(req.Height, cfg.VideoHeight),
		FPS:                firstPositive(req.FPS, cfg.FPS),
		SecondsPerSlide:    req.SecondsPerSlide,
		TargetTotalSeconds: req.TargetTotalSeconds,
		Voice:              req.Voice,
		Style:              h.Presets.Get(req.StylePreset),
	}
	// Pacing precedence: request, then a named preset, then config.
	if opts.SecondsPerSlide <= 0 && opts.TargetTotalSeconds <= 0 {
		if req.StylePreset != "" {
			opts.SecondsPerSlide = opts.Style.SecondsPerSlide
		}
		if opts.SecondsPerSlide <= 0 {
			opts.SecondsPerSlide = cfg.SecondsPerSlide
		}
	}

	outputPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("video_%s.mp4", jobID))

	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "message": "Rendering started"})

	go func() {
		pl := h.Pipeline.WithProgress(func(percent int, message string) {
			h.Jobs.UpdateProgress(jobID, percent, message)
		})

		if _, err := pl.Generate(context.Background(), deck, opts, outputPath); err != nil {
			h.Logger.Errorw("render job failed", "job", jobID, "error", err, "stage", stageOf(err))
			h.Jobs.FailJob(jobID, err.Error())
			return
		}

		downloadURL := fmt.Sprintf("/outputs/%s", filepath.Base(outputPath))
		h.Jobs.CompleteJob(jobID, downloadURL)
	}()
}

func (h *Handler) HandleGetTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.Jobs.GetAllJobs()})
}

func (h *Handler) HandlePreview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tmpFile, err := os.CreateTemp("", "preview-*.mp3")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Temp file error"})
		return
	}
	defer os.Remove(tmpFile.Name())
	tmpFile.Close()

	if err := h.Synth.Synthesize(c.Request.Context(), req.Text, tmpFile.Name(), req.Voice); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.File(tmpFile.Name())
}

func (h *Handler) HandleGetConfig(c *gin.Context) {
	// Local tool: returning the key for editing is acceptable here.
	c.JSON(http.StatusOK, h.Config.Snapshot())
}

func (h *Handler) HandleSaveConfig(c *gin.Context) {
	var newCfg config.Config
	if err := c.ShouldBindJSON(&newCfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Render jobs read the config concurrently, so all writes go through
	// the config lock.
	h.Config.Update(func(cfg *config.Config) {
		cfg.ElevenLabsAPIKey = newCfg.ElevenLabsAPIKey
		cfg.ElevenLabsBaseURL = newCfg.ElevenLabsBaseURL
		cfg.TTSLanguage = newCfg.TTSLanguage
		if newCfg.VideoWidth > 0 {
			cfg.VideoWidth = newCfg.VideoWidth
		}
		if newCfg.VideoHeight > 0 {
			cfg.VideoHeight = newCfg.VideoHeight
		}
		if newCfg.FPS > 0 {
			cfg.FPS = newCfg.FPS
		}
		if newCfg.SecondsPerSlide > 0 {
			cfg.SecondsPerSlide = newCfg.SecondsPerSlide
		}
	})

	if err := h.Config.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save config: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Configuration saved"})
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func stageOf(err error) string {
	var synthErr *pipeline.SynthesisError
	var encErr *pipeline.EncodingError
	var concatErr *pipeline.ConcatenationError
	switch {
	case errors.As(err, &synthErr):
		return "synthesis"
	case errors.As(err, &encErr):
		return "encoding"
	case errors.As(err, &concatErr):
		return "concatenation"
	default:
		return "unknown"
	}
}
