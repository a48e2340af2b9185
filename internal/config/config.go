// Package config provides configuration loading and validation for newsdesk.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/newsdesk/internal/feeds"
	"github.com/jonathan/newsdesk/internal/types"
)

// Environment variables that override file values
const (
	EnvConfigPath     = "NEWSDESK_CONFIG"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvDatabaseDriver = "DATABASE_DRIVER"
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvRedisAddr      = "REDIS_ADDR"
	EnvLogLevel       = "LOG_LEVEL"
)

// Config represents the full service configuration loaded from YAML.
// Every field is optional in the file; zero values are filled from Default().
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	LLM       LLMConfig       `yaml:"llm"`
	Feeds     FeedsConfig     `yaml:"feeds"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Voices    []types.Voice   `yaml:"voices" validate:"min=1,dive"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// DatabaseConfig selects the draft store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig enables the cross-process run lock when Addr is set.
type RedisConfig struct {
	Addr    string        `yaml:"addr"`
	LockKey string        `yaml:"lock_key"`
	LockTTL time.Duration `yaml:"lock_ttl" validate:"gte=0"`
}

// LLMConfig describes how to reach the generative text service.
type LLMConfig struct {
	Provider          string        `yaml:"provider"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	Temperature       float32       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxOutputTokens   int32         `yaml:"max_output_tokens" validate:"gte=0"`
	Timeout           time.Duration `yaml:"timeout" validate:"gte=0"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"gte=0"`
}

// FeedsConfig holds the source roster and fetch knobs.
type FeedsConfig struct {
	Sources        []feeds.Source `yaml:"sources" validate:"min=1,dive"`
	SampleSize     int            `yaml:"sample_size" validate:"gte=0"`
	PerSourceCap   int            `yaml:"per_source_cap" validate:"gte=0"`
	FallbackLimit  int            `yaml:"fallback_limit" validate:"gte=0"`
	Timeout        time.Duration  `yaml:"timeout" validate:"gte=0"`
	UserAgent      string         `yaml:"user_agent"`
	EnrichFullText bool           `yaml:"enrich_full_text"`
	EnrichMinWords int            `yaml:"enrich_min_words" validate:"gte=0"`
}

// Options converts the file settings into feed client options.
func (f FeedsConfig) Options() feeds.Options {
	return feeds.Options{
		SampleSize:     f.SampleSize,
		PerSourceCap:   f.PerSourceCap,
		FallbackLimit:  f.FallbackLimit,
		Timeout:        f.Timeout,
		UserAgent:      f.UserAgent,
		EnrichFullText: f.EnrichFullText,
		EnrichMinWords: f.EnrichMinWords,
	}
}

// PipelineConfig controls a single orchestrator run.
type PipelineConfig struct {
	Topics           []string      `yaml:"topics" validate:"min=1,dive,required"`
	TopicsPerRun     int           `yaml:"topics_per_run" validate:"gte=0"`
	Concurrency      int           `yaml:"concurrency" validate:"gte=0"`
	QualityThreshold *int          `yaml:"quality_threshold" validate:"omitempty,gte=0,lte=100"`
	RunTimeout       time.Duration `yaml:"run_timeout" validate:"gte=0"`
}

// SchedulerConfig defines when the pipeline runs unattended.
type SchedulerConfig struct {
	Times    []string `yaml:"times"`
	Timezone string   `yaml:"timezone"`
}

// Location resolves the scheduler timezone, defaulting to UTC.
func (s SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config error: unknown timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// ServerConfig configures the operational HTTP trigger.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// LoadConfig loads configuration from a YAML file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
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
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return &cfg, nil
}

// Load resolves the effective configuration: the file at path (or
// $NEWSDESK_CONFIG) merged over defaults, then environment overrides.
// A missing path is not an error; the built-in defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	cfg := Default()
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg.MergeWithDefaults(cfg)
	}

	cfg.ApplyEnvOverrides()
	return &cfg, nil
}

// ApplyEnvOverrides lets secrets and deployment-specific values come from the
// environment instead of the config file.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(EnvDatabaseDriver); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(EnvGeminiAPIKey); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration has valid values.
// Secrets such as the API key are checked by the commands that need them.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("'%s' failed '%s' (value: %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.Feeds.SampleSize > len(c.Feeds.Sources) {
		return fmt.Errorf("config error: 'feeds.sample_size' (%d) exceeds the number of sources (%d)", c.Feeds.SampleSize, len(c.Feeds.Sources))
	}

	seen := make(map[string]bool, len(c.Voices))
	for _, v := range c.Voices {
		if seen[v.ID] {
			return fmt.Errorf("config error: duplicate voice id %q", v.ID)
		}
		seen[v.ID] = true
	}

	if _, err := c.Scheduler.Location(); err != nil {
		return err
	}

	return nil
}

// fieldPath turns "Config.Feeds.SampleSize" into "Feeds.SampleSize".
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// Database
	if result.Database.Driver == "" {
		result.Database.Driver = defaults.Database.Driver
	}
	if result.Database.DSN == "" {
		result.Database.DSN = defaults.Database.DSN
	}

	// Redis
	if result.Redis.LockKey == "" {
		result.Redis.LockKey = defaults.Redis.LockKey
	}
	if result.Redis.LockTTL == 0 {
		result.Redis.LockTTL = defaults.Redis.LockTTL
	}

	// LLM
	if result.LLM.Provider == "" {
		result.LLM.Provider = defaults.LLM.Provider
	}
	if result.LLM.Temperature == 0 {
		result.LLM.Temperature = defaults.LLM.Temperature
	}
	if result.LLM.MaxOutputTokens == 0 {
		result.LLM.MaxOutputTokens = defaults.LLM.MaxOutputTokens
	}
	if result.LLM.Timeout == 0 {
		result.LLM.Timeout = defaults.LLM.Timeout
	}
	if result.LLM.RequestsPerMinute == 0 {
		result.LLM.RequestsPerMinute = defaults.LLM.RequestsPerMinute
	}

	// Feeds
	if len(result.Feeds.Sources) == 0 {
		result.Feeds.Sources = defaults.Feeds.Sources
	}
	if result.Feeds.SampleSize == 0 {
		result.Feeds.SampleSize = defaults.Feeds.SampleSize
	}
	if result.Feeds.PerSourceCap == 0 {
		result.Feeds.PerSourceCap = defaults.Feeds.PerSourceCap
	}
	if result.Feeds.FallbackLimit == 0 {
		result.Feeds.FallbackLimit = defaults.Feeds.FallbackLimit
	}
	if result.Feeds.Timeout == 0 {
		result.Feeds.Timeout = defaults.Feeds.Timeout
	}
	if result.Feeds.UserAgent == "" {
		result.Feeds.UserAgent = defaults.Feeds.UserAgent
	}
	if result.Feeds.EnrichMinWords == 0 {
		result.Feeds.EnrichMinWords = defaults.Feeds.EnrichMinWords
	}

	// Pipeline
	if len(result.Pipeline.Topics) == 0 {
		result.Pipeline.Topics = defaults.Pipeline.Topics
	}
	if result.Pipeline.TopicsPerRun == 0 {
		result.Pipeline.TopicsPerRun = defaults.Pipeline.TopicsPerRun
	}
	if result.Pipeline.Concurrency == 0 {
		result.Pipeline.Concurrency = defaults.Pipeline.Concurrency
	}
	// nil means unset; an explicit 0 accepts every rewrite
	if result.Pipeline.QualityThreshold == nil {
		result.Pipeline.QualityThreshold = defaults.Pipeline.QualityThreshold
	}
	if result.Pipeline.RunTimeout == 0 {
		result.Pipeline.RunTimeout = defaults.Pipeline.RunTimeout
	}

	if len(result.Voices) == 0 {
		result.Voices = defaults.Voices
	}

	// Scheduler
	if len(result.Scheduler.Times) == 0 {
		result.Scheduler.Times = defaults.Scheduler.Times
	}
	if result.Scheduler.Timezone == "" {
		result.Scheduler.Timezone = defaults.Scheduler.Timezone
	}

	if result.Server.Port == 0 {
		result.Server.Port = defaults.Server.Port
	}
	if result.Log.Level == "" {
		result.Log.Level = defaults.Log.Level
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge

	return result
}
