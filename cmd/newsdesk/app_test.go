package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/newsdesk/internal/config"
	"github.com/jonathan/newsdesk/internal/llm"
	"github.com/jonathan/newsdesk/internal/scheduler"
)

// clearEnv keeps the developer's environment from leaking into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvConfigPath,
		config.EnvDatabaseURL,
		config.EnvDatabaseDriver,
		config.EnvGeminiAPIKey,
		config.EnvRedisAddr,
		config.EnvLogLevel,
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "newsdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func withGlobals(t *testing.T, path string, verboseFlag bool) {
	t.Helper()
	prevPath, prevVerbose := configPath, verbose
	configPath, verbose = path, verboseFlag
	t.Cleanup(func() { configPath, verbose = prevPath, prevVerbose })
}

func TestLLMConfig(t *testing.T) {
	c := llmConfig(config.LLMConfig{
		Provider:          "gemini",
		Model:             "gemini-2.5-pro-exp",
		Temperature:       0.4,
		MaxOutputTokens:   4096,
		RequestsPerMinute: 5,
	})

	assert.Equal(t, llm.ProviderGemini, c.Provider)
	assert.Equal(t, "gemini-2.5-pro-exp", c.GetModel(llm.TierAdvanced))
	assert.Equal(t, llm.DefaultConfig().GetModel(llm.TierLite), c.GetModel(llm.TierLite))
	assert.Equal(t, float32(0.4), c.Temperature)
	assert.Equal(t, int32(4096), c.MaxOutputTokens)
	assert.Equal(t, 5, c.RequestsPerMinute)
}

func TestLLMConfig_ZeroValuesKeepDefaults(t *testing.T) {
	c := llmConfig(config.LLMConfig{})
	def := llm.DefaultConfig()

	assert.Equal(t, def.Provider, c.Provider)
	assert.Equal(t, def.Temperature, c.Temperature)
	assert.Equal(t, def.GetModel(llm.TierAdvanced), c.GetModel(llm.TierAdvanced))
	assert.Zero(t, c.RequestsPerMinute, "pacing is off unless configured")
}

func TestRewriteAndPipelineOptions(t *testing.T) {
	cfg := config.Default()

	ro := rewriteOptions(cfg.LLM)
	assert.Equal(t, llm.TierAdvanced, ro.Tier)
	assert.Equal(t, cfg.LLM.Timeout, ro.Timeout)

	po := pipelineOptions(cfg.Pipeline, nil)
	assert.Equal(t, cfg.Pipeline.Topics, po.Topics)
	assert.Equal(t, 3, po.TopicsPerRun)
	require.NotNil(t, po.QualityThreshold)
	assert.Equal(t, 60, *po.QualityThreshold)
	assert.Equal(t, 30*time.Minute, po.RunTimeout)
	assert.Nil(t, po.OnProgress)
}

func TestLogLevel(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "info", logLevel(&cfg, false))
	assert.Equal(t, "debug", logLevel(&cfg, true))
}

func TestLoadApp_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	withGlobals(t, "", false)

	a, err := loadApp()
	require.NoError(t, err)
	defer a.close()

	assert.Equal(t, "postgres", a.cfg.Database.Driver)
	assert.NotEmpty(t, a.cfg.Voices)
}

func TestLoadApp_InvalidConfig(t *testing.T) {
	clearEnv(t)
	withGlobals(t, writeConfig(t, "database:\n  driver: mysql\n"), false)

	_, err := loadApp()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config error")
}

func TestOrchestrator_RequiresAPIKey(t *testing.T) {
	clearEnv(t)
	withGlobals(t, "", false)

	a, err := loadApp()
	require.NoError(t, err)
	defer a.close()

	_, _, err = a.orchestrator(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvGeminiAPIKey)
}

func TestGuard_UsesRedisWhenConfigured(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	clearEnv(t)
	t.Setenv(config.EnvRedisAddr, mr.Addr())
	withGlobals(t, "", false)

	a, err := loadApp()
	require.NoError(t, err)
	defer a.close()

	guard, closeRedis, err := a.guard(context.Background())
	require.NoError(t, err)
	defer closeRedis()

	release, err := guard.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, mr.Exists(scheduler.DefaultLockKey))
	release()
	assert.False(t, mr.Exists(scheduler.DefaultLockKey))
}

func TestGuard_InProcessOnlyByDefault(t *testing.T) {
	clearEnv(t)
	withGlobals(t, "", false)

	a, err := loadApp()
	require.NoError(t, err)
	defer a.close()

	guard, closeRedis, err := a.guard(context.Background())
	require.NoError(t, err)
	defer closeRedis()

	release, err := guard.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestMigrateCommand_SQLite(t *testing.T) {
	clearEnv(t)
	dsn := filepath.Join(t.TempDir(), "newsdesk.db")
	path := writeConfig(t, "database:\n  driver: sqlite\n  dsn: "+dsn+"\n")
	withGlobals(t, "", false)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	rootCmd.SetArgs([]string{"migrate", "--config", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Applied 001_articles.sql")

	out.Reset()
	rootCmd.SetArgs([]string{"migrate", "--config", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Database is up to date")
}
