package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jonathan/newsdesk/internal/config"
	"github.com/jonathan/newsdesk/internal/db"
	"github.com/jonathan/newsdesk/internal/feeds"
	"github.com/jonathan/newsdesk/internal/llm"
	"github.com/jonathan/newsdesk/internal/logging"
	"github.com/jonathan/newsdesk/internal/observability"
	"github.com/jonathan/newsdesk/internal/pipeline"
	"github.com/jonathan/newsdesk/internal/rewriting"
	"github.com/jonathan/newsdesk/internal/scheduler"
	"github.com/jonathan/newsdesk/internal/selection"
)

// app holds what every command needs: the effective configuration and a
// logger built from it.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

// loadApp resolves configuration and builds the logger.
func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logLevel(cfg, verbose), cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

// close flushes the logger.
func (a *app) close() {
	_ = a.logger.Sync()
}

func logLevel(cfg *config.Config, verbose bool) string {
	if verbose {
		return "debug"
	}
	return cfg.Log.Level
}

// openStore connects to the draft store and applies pending migrations.
func (a *app) openStore(ctx context.Context) (db.DraftStore, error) {
	store, err := db.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", a.cfg.Database.Driver, err)
	}
	return store, nil
}

func (a *app) feedClient() *feeds.Client {
	return feeds.NewClient(a.cfg.Feeds.Sources, a.cfg.Feeds.Options(), a.logger)
}

// llmConfig maps the file settings onto the client configuration.
func llmConfig(cfg config.LLMConfig) *llm.Config {
	c := llm.DefaultConfig()
	if cfg.Provider != "" {
		c.Provider = llm.Provider(cfg.Provider)
	}
	if cfg.Temperature > 0 {
		c.Temperature = cfg.Temperature
	}
	if cfg.MaxOutputTokens > 0 {
		c.MaxOutputTokens = cfg.MaxOutputTokens
	}
	c.RequestsPerMinute = cfg.RequestsPerMinute
	if cfg.Model != "" {
		c = c.WithModel(llm.TierAdvanced, cfg.Model)
	}
	return c
}

func rewriteOptions(cfg config.LLMConfig) rewriting.Options {
	return rewriting.Options{
		Tier:            llm.TierAdvanced,
		Timeout:         cfg.Timeout,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
}

func pipelineOptions(cfg config.PipelineConfig, onProgress pipeline.ProgressCallback) pipeline.Options {
	return pipeline.Options{
		Topics:           cfg.Topics,
		TopicsPerRun:     cfg.TopicsPerRun,
		Concurrency:      cfg.Concurrency,
		QualityThreshold: cfg.QualityThreshold,
		RunTimeout:       cfg.RunTimeout,
		OnProgress:       onProgress,
	}
}

// orchestrator wires a full pipeline over store. The returned close func
// releases the model client.
func (a *app) orchestrator(ctx context.Context, store db.DraftStore) (*pipeline.Orchestrator, func(), error) {
	if a.cfg.LLM.APIKey == "" {
		return nil, nil, fmt.Errorf("%s environment variable (or llm.api_key) is required", config.EnvGeminiAPIKey)
	}

	client, err := llm.NewClient(ctx, llmConfig(a.cfg.LLM), a.cfg.LLM.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	var onProgress pipeline.ProgressCallback
	if verbose {
		printer := observability.NewPrinter(os.Stdout)
		onProgress = printer.PrintProgress
	}

	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Fetcher:  a.feedClient(),
		Selector: selection.NewSelector(a.cfg.Pipeline.Topics, a.cfg.Voices),
		Rewriter: rewriting.NewRequester(client, rewriteOptions(a.cfg.LLM), a.logger),
		Store:    store,
	}, pipelineOptions(a.cfg.Pipeline, onProgress), a.logger)

	return orch, func() { _ = client.Close() }, nil
}

// guard builds the run guard, adding the Redis lock when an address is
// configured. The returned close func releases the Redis client.
func (a *app) guard(ctx context.Context) (*scheduler.Guard, func(), error) {
	if a.cfg.Redis.Addr == "" {
		return scheduler.NewGuard(nil, a.logger), func() {}, nil
	}

	rdb, err := scheduler.Connect(ctx, a.cfg.Redis.Addr)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Info("using redis run lock",
		zap.String("addr", a.cfg.Redis.Addr),
		zap.String("key", a.cfg.Redis.LockKey))
	lock := scheduler.NewRedisLock(rdb, a.cfg.Redis.LockKey, a.cfg.Redis.LockTTL)
	return scheduler.NewGuard(lock, a.logger), func() { _ = rdb.Close() }, nil
}
