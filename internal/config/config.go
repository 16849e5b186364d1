package config

import (
	"encoding/json"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

type Config struct {
	// ElevenLabs (premium TTS). Empty key means the provider is skipped
	// and synthesis goes straight to the free fallback.
	ElevenLabsAPIKey  string `json:"elevenlabs_api_key"`
	ElevenLabsBaseURL string `json:"elevenlabs_base_url"` // Optional proxy

	// TTS fallback
	TTSLanguage string `json:"tts_language"`

	// Video defaults
	VideoWidth  int `json:"video_width"`
	VideoHeight int `json:"video_height"`
	FPS         int `json:"fps"`

	// SecondsPerSlide is the per-slide floor when no total duration
	// policy overrides it.
	SecondsPerSlide float64 `json:"seconds_per_slide"`

	// BackgroundImage, when present on disk, is used unconditionally as
	// the single background for all slides.
	BackgroundImage string `json:"background_image"`

	// StylesFile holds optional named render-style presets (YAML).
	StylesFile string `json:"styles_file"`

	OutputDir string `json:"output_dir"`
	Port      string `json:"port"`

	mu sync.RWMutex
}

const ConfigFile = "config.json"

func LoadConfig() *Config {
	// .env is optional; ignore absence.
	godotenv.Load()

	cfg := &Config{
		TTSLanguage:     "en",
		VideoWidth:      1280,
		VideoHeight:     720,
		FPS:             24,
		SecondsPerSlide: 6.0,
		BackgroundImage: "testbg.jpeg",
		StylesFile:      "styles.yaml",
		OutputDir:       "outputs",
		Port:            "8080",
	}

	// Try loading from file first
	if file, err := os.ReadFile(ConfigFile); err == nil {
		json.Unmarshal(file, cfg)
	}

	// Env vars override
	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		cfg.ElevenLabsAPIKey = v
	}
	if v := os.Getenv("ELEVENLABS_BASE_URL"); v != "" {
		cfg.ElevenLabsBaseURL = v
	}
	if v := os.Getenv("TTS_LANGUAGE"); v != "" {
		cfg.TTSLanguage = v
	}
	if v := os.Getenv("VIDEO_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.VideoWidth = n
		}
	}
	if v := os.Getenv("VIDEO_HEIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.VideoHeight = n
		}
	}
	if v := os.Getenv("FPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FPS = n
		}
	}
	if v := os.Getenv("SECONDS_PER_SLIDE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.SecondsPerSlide = f
		}
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}

	return cfg
}

func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigFile, data, 0644)
}

// Update applies fn under the write lock. Use it for any field change after
// startup, since render jobs read the config concurrently.
func (c *Config) Update(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}

// Snapshot returns a consistent copy for lock-free reading.
func (c *Config) Snapshot() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Config{
		ElevenLabsAPIKey:  c.ElevenLabsAPIKey,
		ElevenLabsBaseURL: c.ElevenLabsBaseURL,
		TTSLanguage:       c.TTSLanguage,
		VideoWidth:        c.VideoWidth,
		VideoHeight:       c.VideoHeight,
		FPS:               c.FPS,
		SecondsPerSlide:   c.SecondsPerSlide,
		BackgroundImage:   c.BackgroundImage,
		StylesFile:        c.StylesFile,
		OutputDir:         c.OutputDir,
		Port:              c.Port,
	}
}
