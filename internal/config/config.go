// Package config loads runtime settings from the environment, reading a
// local .env file first when one exists.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultPort           = "8080"
	DefaultImagesDir      = "images"
	DefaultDBPath         = "qrart.db"
	DefaultSDURL          = "http://127.0.0.1:7860"
	DefaultTimeoutSeconds = 120
	DefaultRetries        = 2
	DefaultMaxConcurrent  = 1
	DefaultModelName      = "icbinpICantBelieveIts_seco"
	DefaultModelHash      = "fa1224c923"
	DefaultControlNet     = "control_v1p_sd15_qrcode_monster_v2 [5e5778cb]"
)

// Config holds every setting the application reads at startup.
type Config struct {
	Port      string
	ImagesDir string
	DBPath    string

	SD SDConfig

	LogLevel  string
	LogFormat string
}

// SDConfig configures the Stable Diffusion backend.
type SDConfig struct {
	URL             string
	Timeout         time.Duration
	Retries         int
	MaxConcurrent   int
	ModelName       string
	ModelHash       string
	ControlNetModel string
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return FromEnv(os.Getenv), nil
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) *Config {
	return &Config{
		Port:      stringOr(getenv("PORT"), DefaultPort),
		ImagesDir: stringOr(getenv("QRART_IMAGES_DIR"), DefaultImagesDir),
		DBPath:    stringOr(getenv("QRART_DB"), DefaultDBPath),
		SD: SDConfig{
			URL:             strings.TrimRight(stringOr(getenv("SD_URL"), DefaultSDURL), "/"),
			Timeout:         time.Duration(intOr(getenv("SD_TIMEOUT_SECONDS"), DefaultTimeoutSeconds, 1)) * time.Second,
			Retries:         intOr(getenv("SD_RETRIES"), DefaultRetries, 0),
			MaxConcurrent:   intOr(getenv("SD_MAX_CONCURRENT"), DefaultMaxConcurrent, 1),
			ModelName:       stringOr(getenv("SD_MODEL_NAME"), DefaultModelName),
			ModelHash:       stringOr(getenv("SD_MODEL_HASH"), DefaultModelHash),
			ControlNetModel: stringOr(getenv("SD_CONTROLNET_MODEL"), DefaultControlNet),
		},
		LogLevel:  strings.ToLower(stringOr(getenv("LOG_LEVEL"), "info")),
		LogFormat: strings.ToLower(stringOr(getenv("LOG_FORMAT"), "text")),
	}
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func stringOr(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// intOr parses s, returning def when s is empty, malformed or below min.
func intOr(s string, def, min int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < min {
		return def
	}
	return n
}
