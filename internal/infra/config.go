package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	DownloadFormatPNG = "png"
	DownloadFormatJPG = "jpg"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv   string `env:"PIXELFORGE_ENV" envDefault:"production"`
	LogLevel string `env:"PIXELFORGE_LOG_LEVEL" envDefault:"info"`
	StateDSN string `env:"PIXELFORGE_STATE_DSN"`
	PanelDir string `env:"PIXELFORGE_PANEL_DIR"`
	Addr     string `env:"PIXELFORGE_ADDR" envDefault:"127.0.0.1:8787"`

	HTTPReadTimeout  time.Duration `env:"PIXELFORGE_HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout time.Duration `env:"PIXELFORGE_HTTP_WRITE_TIMEOUT" envDefault:"5m"`
	HTTPIdleTimeout  time.Duration `env:"PIXELFORGE_HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	Gemini  GeminiConfig
	Preview PreviewConfig
}

type GeminiConfig struct {
	BaseURL string `env:"PIXELFORGE_GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	Model   string `env:"PIXELFORGE_GEMINI_MODEL" envDefault:"gemini-2.0-flash-preview-image-generation"`
}

// PreviewConfig holds the user-facing panel settings. They are passed through
// to the rendered panel and the hosts; the generation flow does not branch on
// them.
type PreviewConfig struct {
	DefaultDownloadFormat string `env:"PIXELFORGE_DEFAULT_DOWNLOAD_FORMAT" envDefault:"png"`
	AutoDownload          bool   `env:"PIXELFORGE_AUTO_DOWNLOAD" envDefault:"false"`
	ShowPreview           bool   `env:"PIXELFORGE_SHOW_PREVIEW" envDefault:"true"`
}

// LoadDotEnv reads .env.local and .env from the working directory when they
// exist. Values already present in the environment win.
func LoadDotEnv() {
	for _, name := range []string{".env.local", ".env"} {
		_ = godotenv.Load(name)
	}
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("PIXELFORGE_LOG_LEVEL %q is invalid", cfg.LogLevel)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	format, err := NormalizeDownloadFormat(cfg.Preview.DefaultDownloadFormat)
	if err != nil {
		return nil, err
	}
	cfg.Preview.DefaultDownloadFormat = format

	cfg.Gemini.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Gemini.BaseURL), "/")
	if cfg.Gemini.BaseURL == "" {
		return nil, fmt.Errorf("PIXELFORGE_GEMINI_BASE_URL is required")
	}
	if strings.TrimSpace(cfg.Gemini.Model) == "" {
		return nil, fmt.Errorf("PIXELFORGE_GEMINI_MODEL is required")
	}

	if strings.TrimSpace(cfg.StateDSN) == "" {
		cfg.StateDSN = defaultStateDSN()
	}
	if strings.TrimSpace(cfg.PanelDir) == "" {
		cfg.PanelDir = filepath.Join(os.TempDir(), "pixelforge-panels")
	}

	return cfg, nil
}

// NormalizeDownloadFormat maps user input onto png or jpg.
func NormalizeDownloadFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", DownloadFormatPNG:
		return DownloadFormatPNG, nil
	case DownloadFormatJPG, "jpeg":
		return DownloadFormatJPG, nil
	default:
		return "", fmt.Errorf("PIXELFORGE_DEFAULT_DOWNLOAD_FORMAT %q is not one of png, jpg", format)
	}
}

func defaultStateDSN() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "pixelforge-state.db"
	}
	return filepath.Join(dir, "pixelforge", "state.db")
}
