// Package config provides configuration loading and validation for the
// server and the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Coverage target bounds.
const (
	MinCoverageTarget = 0.6
	MaxCoverageTarget = 1.0
)

// Config is read from the environment and optionally overlaid with a JSON
// config file. Zero values in the file mean "not set".
type Config struct {
	// Server
	Port           int     `env:"PORT" envDefault:"8080" json:"port,omitempty"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5" json:"rate_limit_rps,omitempty"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10" json:"rate_limit_burst,omitempty"`

	// Storage
	DatabaseURL      string `env:"DATABASE_URL" json:"database_url,omitempty"`
	HistoryCacheSize int    `env:"HISTORY_CACHE_SIZE" envDefault:"256" json:"history_cache_size,omitempty"`

	// Generation
	GeminiAPIKey string `env:"GEMINI_API_KEY" json:"api_key,omitempty"`
	GeminiModel  string `env:"GEMINI_MODEL" json:"model,omitempty"`

	// Orchestrator
	MaxInFlight           int           `env:"MAX_IN_FLIGHT" envDefault:"4" json:"max_in_flight,omitempty"`
	MaxRetries            int           `env:"MAX_RETRIES" envDefault:"2" json:"max_retries,omitempty"`
	RetryInitialDelay     time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"500ms" json:"-"`
	RetryMaxDelay         time.Duration `env:"RETRY_MAX_DELAY" envDefault:"10s" json:"-"`
	StageTimeout          time.Duration `env:"STAGE_TIMEOUT" envDefault:"2m" json:"-"`
	DefaultCoverageTarget float64       `env:"DEFAULT_COVERAGE_TARGET" envDefault:"0.9" json:"default_coverage_target,omitempty"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info" json:"log_level,omitempty"`

	Bundle  BundleStore `envPrefix:"BUNDLE_S3_" json:"bundle_store"`
	Deploy  Deploy      `json:"deploy"`
	Verbose bool        `env:"VERBOSE" json:"verbose,omitempty"`
}

// BundleStore configures the S3-compatible archive bucket. Bundles are
// kept in memory when Endpoint is empty.
type BundleStore struct {
	Endpoint  string `env:"ENDPOINT" json:"endpoint,omitempty"`
	Region    string `env:"REGION" json:"region,omitempty"`
	AccessKey string `env:"ACCESS_KEY" json:"access_key,omitempty"`
	SecretKey string `env:"SECRET_KEY" json:"secret_key,omitempty"`
	Bucket    string `env:"BUCKET" envDefault:"ui-bundles" json:"bucket,omitempty"`
	UseSSL    bool   `env:"USE_SSL" json:"use_ssl,omitempty"`
}

// Deploy holds provider credentials.
type Deploy struct {
	VercelToken    string `env:"VERCEL_TOKEN" json:"vercel_token,omitempty"`
	NetlifyToken   string `env:"NETLIFY_TOKEN" json:"netlify_token,omitempty"`
	RenderAPIKey   string `env:"RENDER_API_KEY" json:"render_api_key,omitempty"`
	GitHubToken    string `env:"GITHUB_TOKEN" json:"github_token,omitempty"`
	DockerHost     string `env:"DOCKER_HOST" json:"docker_host,omitempty"`
	DockerRegistry string `env:"DOCKER_REGISTRY" json:"docker_registry,omitempty"`
	DockerToken    string `env:"DOCKER_TOKEN" json:"docker_token,omitempty"`
}

// fileDurations carries the duration keys of a config file, written as Go
// duration strings ("750ms", "2m").
type fileDurations struct {
	RetryInitialDelay string `json:"retry_initial_delay,omitempty"`
	RetryMaxDelay     string `json:"retry_max_delay,omitempty"`
	StageTimeout      string `json:"stage_timeout,omitempty"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

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

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	var d fileDurations
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	for _, f := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"retry_initial_delay", d.RetryInitialDelay, &cfg.RetryInitialDelay},
		{"retry_max_delay", d.RetryMaxDelay, &cfg.RetryMaxDelay},
		{"stage_timeout", d.StageTimeout, &cfg.StageTimeout},
	} {
		if f.raw == "" {
			continue
		}
		v, err := time.ParseDuration(f.raw)
		if err != nil {
			return nil, fmt.Errorf("config error: invalid %s: %w", f.key, err)
		}
		*f.dst = v
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535, got %d", c.Port)
	}
	if c.MaxInFlight < 1 {
		return fmt.Errorf("config error: 'max_in_flight' must be at least 1, got %d", c.MaxInFlight)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config error: 'max_retries' must be non-negative")
	}
	if c.RetryInitialDelay < 0 || c.RetryMaxDelay < 0 {
		return fmt.Errorf("config error: retry delays must be non-negative")
	}
	if c.RetryMaxDelay > 0 && c.RetryInitialDelay > c.RetryMaxDelay {
		return fmt.Errorf("config error: 'retry_initial_delay' exceeds 'retry_max_delay'")
	}
	if c.StageTimeout <= 0 {
		return fmt.Errorf("config error: 'stage_timeout' must be positive")
	}
	if c.DefaultCoverageTarget < MinCoverageTarget || c.DefaultCoverageTarget > MaxCoverageTarget {
		return fmt.Errorf("config error: 'default_coverage_target' must be within [%.1f, %.1f], got %.2f",
			MinCoverageTarget, MaxCoverageTarget, c.DefaultCoverageTarget)
	}
	if c.HistoryCacheSize < 0 {
		return fmt.Errorf("config error: 'history_cache_size' must be non-negative")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("config error: rate limits must be non-negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config error: unknown log level %q", c.LogLevel)
	}
	if c.Bundle.Endpoint != "" && c.Bundle.Bucket == "" {
		return fmt.Errorf("config error: bundle store bucket is required when an endpoint is set")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from
// defaults. A config file is merged over the environment this way.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	mergeString(&result.DatabaseURL, defaults.DatabaseURL)
	mergeString(&result.GeminiAPIKey, defaults.GeminiAPIKey)
	mergeString(&result.GeminiModel, defaults.GeminiModel)
	mergeString(&result.LogLevel, defaults.LogLevel)

	mergeInt(&result.Port, defaults.Port)
	mergeInt(&result.RateLimitBurst, defaults.RateLimitBurst)
	mergeInt(&result.HistoryCacheSize, defaults.HistoryCacheSize)
	mergeInt(&result.MaxInFlight, defaults.MaxInFlight)
	mergeInt(&result.MaxRetries, defaults.MaxRetries)

	if result.RateLimitRPS == 0 {
		result.RateLimitRPS = defaults.RateLimitRPS
	}
	if result.DefaultCoverageTarget == 0 {
		result.DefaultCoverageTarget = defaults.DefaultCoverageTarget
	}
	if result.RetryInitialDelay == 0 {
		result.RetryInitialDelay = defaults.RetryInitialDelay
	}
	if result.RetryMaxDelay == 0 {
		result.RetryMaxDelay = defaults.RetryMaxDelay
	}
	if result.StageTimeout == 0 {
		result.StageTimeout = defaults.StageTimeout
	}

	mergeString(&result.Bundle.Endpoint, defaults.Bundle.Endpoint)
	mergeString(&result.Bundle.Region, defaults.Bundle.Region)
	mergeString(&result.Bundle.AccessKey, defaults.Bundle.AccessKey)
	mergeString(&result.Bundle.SecretKey, defaults.Bundle.SecretKey)
	mergeString(&result.Bundle.Bucket, defaults.Bundle.Bucket)
	result.Bundle.UseSSL = result.Bundle.UseSSL || defaults.Bundle.UseSSL

	mergeString(&result.Deploy.VercelToken, defaults.Deploy.VercelToken)
	mergeString(&result.Deploy.NetlifyToken, defaults.Deploy.NetlifyToken)
	mergeString(&result.Deploy.RenderAPIKey, defaults.Deploy.RenderAPIKey)
	mergeString(&result.Deploy.GitHubToken, defaults.Deploy.GitHubToken)
	mergeString(&result.Deploy.DockerHost, defaults.Deploy.DockerHost)
	mergeString(&result.Deploy.DockerRegistry, defaults.Deploy.DockerRegistry)
	mergeString(&result.Deploy.DockerToken, defaults.Deploy.DockerToken)

	// Bools cannot distinguish unset from false; CLI flags win for those.
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
