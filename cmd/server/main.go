package main

import (
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LeonRhapsody/slidecast/internal/api"
	"github.com/LeonRhapsody/slidecast/internal/background"
	"github.com/LeonRhapsody/slidecast/internal/config"
	"github.com/LeonRhapsody/slidecast/internal/media"
	"github.com/LeonRhapsody/slidecast/internal/pipeline"
	"github.com/LeonRhapsody/slidecast/internal/style"
	"github.com/LeonRhapsody/slidecast/internal/tts"
)

func main() {
	// 1. Environment check: the encoder binaries are the one hard
	// dependency of the whole pipeline.
	if err := media.CheckBinaries(); err != nil {
		log.Fatalf("startup check failed: %v", err)
	}

	// 2. Load config + logger
	cfg := config.LoadConfig()
	logger := newLogger()
	defer logger.Sync()
	sugar := logger.Sugar()

	presets, err := style.LoadPresets(cfg.StylesFile)
	if err != nil {
		sugar.Fatalw("invalid style presets", "file", cfg.StylesFile, "error", err)
	}

	// 3. Wire the pipeline
	synth := tts.NewSynthesizer(cfg, sugar)
	encoder := media.NewFFmpeg()
	backgrounds := background.NewProvider(cfg.BackgroundImage)
	pl := pipeline.New(synth, encoder, backgrounds, sugar)

	handler := api.NewHandler(cfg, pl, synth, presets, sugar)

	// 4. Router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/tasks"},
	}))

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		sugar.Fatalw("cannot create output dir", "dir", cfg.OutputDir, "error", err)
	}
	r.Static("/outputs", cfg.OutputDir)

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/generate", handler.HandleGenerate)
		apiGroup.POST("/preview", handler.HandlePreview)
		apiGroup.GET("/tasks", handler.HandleGetTasks)
		apiGroup.GET("/config", handler.HandleGetConfig)
		apiGroup.POST("/config", handler.HandleSaveConfig)
	}

	// 5. Start server
	sugar.Infow("server starting", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		sugar.Fatalw("server exited", "error", err)
	}
}

func newLogger() *zap.Logger {
	zcfg := zap.NewProductionConfig()
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zcfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	return logger
}
