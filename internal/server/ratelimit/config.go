package ratelimit

import (
	"net/http"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string  // Endpoint path pattern (supports prefix matching)
	Method string  // HTTP method (GET, POST, etc.)
	RPS    float64 // Sustained requests per second; zero means unlimited
	Burst  int     // Burst capacity (defaults to one second of RPS if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultRPS      float64
	DefaultBurst    int
	CleanupInterval time.Duration
	IdleTTL         time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// NewConfig builds a configuration where job submission is limited to
// submitRPS with submitBurst and every other route shares a lenient default.
// A non-positive submitRPS disables limiting.
func NewConfig(submitRPS float64, submitBurst int) *Config {
	if submitRPS <= 0 {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultRPS:      50,
		DefaultBurst:    100,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Whitelist:       make(map[string]bool),
		Blacklist:       make(map[string]bool),
		EndpointConfigs: DefaultEndpointConfigs(submitRPS, submitBurst),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific configurations.
func DefaultEndpointConfigs(submitRPS float64, submitBurst int) []EndpointConfig {
	return []EndpointConfig{
		// Tier 1: job submission starts LLM and deployment work
		{Path: "/jobs", Method: http.MethodPost, RPS: submitRPS, Burst: submitBurst},

		// Tier 2: synchronous CPU work
		{Path: "/validate", Method: http.MethodPost, RPS: 10, Burst: 20},
		{Path: "/validate/", Method: http.MethodPost, RPS: 10, Burst: 20},
		{Path: "/tests/generate", Method: http.MethodPost, RPS: 10, Burst: 20},

		// Tier 3: reads use the default; health and metrics are unlimited
	}
}
