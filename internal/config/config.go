// Package config provides configuration loading and validation for the
// service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the runtime configuration. All fields are optional in the
// JSON file; missing values fall back to environment variables and then to
// defaults.
type Config struct {
	// Storage
	DatabaseURL string `json:"database_url,omitempty" validate:"required"`
	StoragePath string `json:"storage_path,omitempty" validate:"required"`

	// Generation
	APIKey            string `json:"api_key,omitempty"`
	Model             string `json:"model,omitempty"`
	GenerationTimeout int    `json:"generation_timeout,omitempty" validate:"gte=0"`

	// Execution
	Workers        int    `json:"workers,omitempty" validate:"gte=0,lte=64"`
	AppEnv         string `json:"app_env,omitempty" validate:"omitempty,oneof=development production"`
	PdflatexBinary string `json:"pdflatex_binary,omitempty"`
	MetricsAddr    string `json:"metrics_addr,omitempty"`

	// Tokens
	DownloadTokenTTL int `json:"download_token_ttl,omitempty" validate:"gte=0"`
}

// Defaults applied after file and environment merging.
const (
	DefaultModel             = "gemini-2.5-flash"
	DefaultWorkers           = 4
	DefaultDownloadTokenTTL  = 300
	DefaultGenerationTimeout = 60
	DefaultPdflatexBinary    = "pdflatex"
)

// Load reads configuration from an optional JSON file, overlays environment
// variables, applies defaults, and validates the result. A missing .env
// file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	envString := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	envString(&c.DatabaseURL, "DATABASE_URL")
	envString(&c.StoragePath, "STORAGE_PATH")
	envString(&c.APIKey, "GEMINI_API_KEY")
	envString(&c.Model, "GEMINI_MODEL")
	envString(&c.AppEnv, "APP_ENV")
	envString(&c.MetricsAddr, "METRICS_ADDR")

	if c.Workers == 0 {
		if n, err := strconv.Atoi(os.Getenv("WORKERS")); err == nil {
			c.Workers = n
		}
	}
	if c.GenerationTimeout == 0 {
		if n, err := strconv.Atoi(os.Getenv("GENERATION_TIMEOUT")); err == nil {
			c.GenerationTimeout = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.StoragePath == "" {
		c.StoragePath = "user_data"
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.DownloadTokenTTL == 0 {
		c.DownloadTokenTTL = DefaultDownloadTokenTTL
	}
	if c.GenerationTimeout == 0 {
		c.GenerationTimeout = DefaultGenerationTimeout
	}
	if c.PdflatexBinary == "" {
		c.PdflatexBinary = DefaultPdflatexBinary
	}
	if c.AppEnv == "" {
		c.AppEnv = "production"
	}
}

// TokenTTL returns the download token lifetime as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.DownloadTokenTTL) * time.Second
}

// GenTimeout returns the model call deadline as a duration.
func (c *Config) GenTimeout() time.Duration {
	return time.Duration(c.GenerationTimeout) * time.Second
}

// Validate checks the merged configuration against the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			e := errs[0]
			return fmt.Errorf("config error: field %s failed %q validation", e.Field(), e.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}
