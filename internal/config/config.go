// Package config provides configuration loading for the cheque extractor.
// Supports an optional YAML file, a .env file, and environment variable overrides.
// The API credential is only ever read from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spherical/cheque-extractor/internal/domain"
)

// APIKeyEnv is the environment variable holding the bearer credential.
const APIKeyEnv = "OPENAI_API_KEY"

// Config holds all configuration for a run.
type Config struct {
	Input         InputConfig         `yaml:"input"`
	Ledger        LedgerConfig        `yaml:"ledger"`
	Rasterizer    RasterizerConfig    `yaml:"rasterizer"`
	LLM           LLMConfig           `yaml:"llm"`
	Retry         RetryConfig         `yaml:"retry"`
	Batch         BatchConfig         `yaml:"batch"`
	Journal       JournalConfig       `yaml:"journal"`
	Observability ObservabilityConfig `yaml:"observability"`

	// APIKey is filled from the environment, never from YAML.
	APIKey string `yaml:"-"`
}

// InputConfig selects the documents to process.
type InputConfig struct {
	Dir       string `yaml:"dir"`
	Extension string `yaml:"extension"`
}

// LedgerConfig holds output settings.
type LedgerConfig struct {
	CSVPath  string `yaml:"csv_path"`
	XLSXPath string `yaml:"xlsx_path"`
}

// RasterizerConfig holds page rendering settings.
type RasterizerConfig struct {
	DPI     int `yaml:"dpi"`
	Quality int `yaml:"quality"`
}

// LLMConfig holds model endpoint settings.
type LLMConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// RetryConfig holds the per-document retry policy.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	RateLimitDelay time.Duration `yaml:"rate_limit_delay"`
	OverloadDelay  time.Duration `yaml:"overload_delay"`
}

// BatchConfig holds run-level limits.
type BatchConfig struct {
	FailureCeiling int `yaml:"failure_ceiling"`
}

// JournalConfig holds the optional SQLite run journal.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Dir:       "scans/",
			Extension: ".pdf",
		},
		Ledger: LedgerConfig{
			CSVPath: "cheque_data.csv",
		},
		Rasterizer: RasterizerConfig{
			DPI:     200,
			Quality: 85,
		},
		LLM: LLMConfig{
			Endpoint:  "https://api.openai.com/v1/chat/completions",
			Model:     "gpt-4-turbo",
			MaxTokens: 600,
			Timeout:   120 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			RateLimitDelay: 5 * time.Second,
			OverloadDelay:  10 * time.Second,
		},
		Batch: BatchConfig{
			FailureCeiling: 10,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: string(domain.LogFormatConsole),
		},
	}
}

// Load reads configuration from an optional YAML file, the .env file if any, and
// environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError("read config file", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError("parse config file", err)
		}
	}

	_ = godotenv.Load() // Ignore error if .env doesn't exist

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return domain.ConfigError(APIKeyEnv+" environment variable not set", nil)
	}
	if c.Input.Dir == "" {
		return domain.ConfigError("input directory is required", nil)
	}
	if !strings.HasPrefix(c.Input.Extension, ".") {
		return domain.ConfigError(fmt.Sprintf("input extension must start with a dot, got %q", c.Input.Extension), nil)
	}
	if c.Ledger.CSVPath == "" {
		return domain.ConfigError("ledger csv path is required", nil)
	}
	if c.Rasterizer.Quality < 1 || c.Rasterizer.Quality > 100 {
		return domain.ConfigError(fmt.Sprintf("rasterizer quality must be between 1 and 100, got %d", c.Rasterizer.Quality), nil)
	}
	if c.Rasterizer.DPI < 36 || c.Rasterizer.DPI > 600 {
		return domain.ConfigError(fmt.Sprintf("rasterizer dpi must be between 36 and 600, got %d", c.Rasterizer.DPI), nil)
	}
	if c.LLM.Endpoint == "" || c.LLM.Model == "" {
		return domain.ConfigError("llm endpoint and model are required", nil)
	}
	if c.LLM.MaxTokens < 1 {
		return domain.ConfigError("llm max_tokens must be positive", nil)
	}
	if c.Retry.MaxAttempts < 1 {
		return domain.ConfigError("retry max_attempts must be at least 1", nil)
	}
	if c.Retry.RateLimitDelay < 0 || c.Retry.OverloadDelay < 0 {
		return domain.ConfigError("retry delays cannot be negative", nil)
	}
	if c.Batch.FailureCeiling < 1 {
		return domain.ConfigError("batch failure_ceiling must be at least 1", nil)
	}
	switch domain.LogFormat(c.Observability.LogFormat) {
	case domain.LogFormatConsole, domain.LogFormatJSON:
	default:
		return domain.ConfigError(fmt.Sprintf("invalid log format: %s", c.Observability.LogFormat), nil)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	cfg.APIKey = os.Getenv(APIKeyEnv)

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("LLM_ENDPOINT"); v != "" {
		cfg.LLM.Endpoint = v
	}

	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return domain.ConfigError(fmt.Sprintf("invalid LLM_TIMEOUT %q", v), err)
		}
		cfg.LLM.Timeout = d
	}

	if v := os.Getenv("CHEQUE_INPUT_DIR"); v != "" {
		cfg.Input.Dir = v
	}

	if v := os.Getenv("CHEQUE_LEDGER_PATH"); v != "" {
		cfg.Ledger.CSVPath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
	return nil
}
