package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // exact path, or a prefix when it ends in "/"
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // requests per Window; zero means unlimited
	Window time.Duration // refill period for Limit tokens
	Burst  int           // bucket size (defaults to Limit if 0)
}

// Environment variables read by LoadConfig
const (
	EnvEnabled         = "RATE_LIMIT_ENABLED"
	EnvDefaultLimit    = "RATE_LIMIT_DEFAULT_LIMIT"
	EnvDefaultWindow   = "RATE_LIMIT_DEFAULT_WINDOW"
	EnvCleanupInterval = "RATE_LIMIT_CLEANUP_INTERVAL"
	EnvWhitelist       = "RATE_LIMIT_WHITELIST"
	EnvBlacklist       = "RATE_LIMIT_BLACKLIST"
)

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	return ConfigFrom(os.LookupEnv)
}

// ConfigFrom builds a Config from lookup. Unset or unparsable values fall
// back to the defaults.
func ConfigFrom(lookup func(string) (string, bool)) *Config {
	env := envReader(lookup)
	if !env.bool(EnvEnabled, true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    env.int(EnvDefaultLimit, 300),
		DefaultWindow:   env.duration(EnvDefaultWindow, time.Minute),
		CleanupInterval: env.duration(EnvCleanupInterval, 5*time.Minute),
		Whitelist:       env.set(EnvWhitelist),
		Blacklist:       env.set(EnvBlacklist),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// a run spends model quota for every candidate
		{Path: "/run", Method: "POST", Limit: 6, Window: time.Hour, Burst: 2},

		{Path: "/drafts", Method: "GET", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/runs/", Method: "GET", Limit: 120, Window: time.Minute, Burst: 20},
	}
}

type envReader func(string) (string, bool)

func (e envReader) raw(key string) (string, bool) {
	v, ok := e(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e envReader) int(key string, def int) int {
	if v, ok := e.raw(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (e envReader) bool(key string, def bool) bool {
	if v, ok := e.raw(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	if v, ok := e.raw(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// set parses a comma-separated list of client addresses.
func (e envReader) set(key string) map[string]bool {
	result := make(map[string]bool)
	v, ok := e.raw(key)
	if !ok {
		return result
	}
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result[item] = true
		}
	}
	return result
}
