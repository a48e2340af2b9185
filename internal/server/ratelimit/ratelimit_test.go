package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is advanced by hand.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, config *Config) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)}
	l := NewLimiter(config)
	l.now = clock.Now
	t.Cleanup(l.Stop)
	return l, clock
}

func runConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/run", Method: "POST", Limit: 6, Window: time.Hour, Burst: 2},
		},
	}
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	l, _ := newTestLimiter(t, runConfig())

	for i := 0; i < 2; i++ {
		allowed, info := l.Allow("10.0.0.1", "/run", "POST")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 6, info.Limit)
	}

	allowed, info := l.Allow("10.0.0.1", "/run", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.InDelta(t, (10 * time.Minute).Seconds(), info.RetryAfter.Seconds(), 1)
}

func TestLimiter_Refill(t *testing.T) {
	l, clock := newTestLimiter(t, runConfig())

	l.Allow("10.0.0.1", "/run", "POST")
	l.Allow("10.0.0.1", "/run", "POST")
	allowed, _ := l.Allow("10.0.0.1", "/run", "POST")
	require.False(t, allowed)

	// one token every ten minutes
	clock.Advance(10 * time.Minute)
	allowed, _ = l.Allow("10.0.0.1", "/run", "POST")
	assert.True(t, allowed)

	allowed, _ = l.Allow("10.0.0.1", "/run", "POST")
	assert.False(t, allowed)
}

func TestLimiter_DeniedRequestsDoNotConsume(t *testing.T) {
	l, clock := newTestLimiter(t, runConfig())

	l.Allow("10.0.0.1", "/run", "POST")
	l.Allow("10.0.0.1", "/run", "POST")
	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/run", "POST")
		require.False(t, allowed)
	}

	clock.Advance(10 * time.Minute)
	allowed, _ := l.Allow("10.0.0.1", "/run", "POST")
	assert.True(t, allowed, "rejected attempts must not push the refill out")
}

func TestLimiter_RemainingAndReset(t *testing.T) {
	l, clock := newTestLimiter(t, runConfig())

	allowed, info := l.Allow("10.0.0.1", "/run", "POST")
	require.True(t, allowed)
	assert.Equal(t, 1, info.Remaining)
	assert.WithinDuration(t, clock.Now().Add(10*time.Minute), info.ResetTime, time.Second)
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, runConfig())

	l.Allow("10.0.0.1", "/run", "POST")
	l.Allow("10.0.0.1", "/run", "POST")
	allowed, _ := l.Allow("10.0.0.1", "/run", "POST")
	require.False(t, allowed)

	allowed, _ = l.Allow("10.0.0.2", "/run", "POST")
	assert.True(t, allowed)
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	l, _ := newTestLimiter(t, runConfig())

	l.Allow("10.0.0.1", "/run", "POST")
	l.Allow("10.0.0.1", "/run", "POST")

	// other endpoints fall back to the default limit
	allowed, info := l.Allow("10.0.0.1", "/drafts", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 100, info.Limit)
	assert.Equal(t, 99, info.Remaining)
}

func TestLimiter_HealthIsUnlimited(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour})

	for i := 0; i < 50; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	config := runConfig()
	config.Whitelist = map[string]bool{"127.0.0.1": true}
	config.Blacklist = map[string]bool{"192.0.2.9": true}
	l, _ := newTestLimiter(t, config)

	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("127.0.0.1", "/run", "POST")
		require.True(t, allowed)
	}

	allowed, _ := l.Allow("192.0.2.9", "/health", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: false})

	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/run", "POST")
		require.True(t, allowed)
	}
}

func TestLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	l, clock := newTestLimiter(t, runConfig())

	l.Allow("10.0.0.1", "/run", "POST")
	clock.Advance(30 * time.Minute)
	l.Allow("10.0.0.2", "/run", "POST")

	clock.Advance(45 * time.Minute)
	l.cleanupBuckets()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "10.0.0.2:/run:POST")
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, runConfig())

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("10.0.0.1", "/run", "POST"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), allowed.Load())
}

func TestNewLimiter_NilConfig(t *testing.T) {
	l := NewLimiter(nil)
	defer l.Stop()
	l.Stop() // idempotent

	allowed, info := l.Allow("10.0.0.1", "/drafts", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		path, method string
		wantLimit    int
		wantNil      bool
	}{
		{path: "/run", method: "POST", wantLimit: 6},
		{path: "/drafts", method: "GET", wantLimit: 120},
		{path: "/runs/last", method: "GET", wantLimit: 120},
		{path: "/health", method: "GET", wantLimit: 0},
		{path: "/run", method: "OPTIONS", wantLimit: 0},
		{path: "/run", method: "GET", wantNil: true},
		{path: "/unknown", method: "GET", wantNil: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "50")
	t.Setenv("RATE_LIMIT_DEFAULT_WINDOW", "30s")
	t.Setenv("RATE_LIMIT_WHITELIST", " 127.0.0.1 , ::1,")

	config := LoadConfig()
	assert.True(t, config.Enabled)
	assert.Equal(t, 50, config.DefaultLimit)
	assert.Equal(t, 30*time.Second, config.DefaultWindow)
	assert.Equal(t, map[string]bool{"127.0.0.1": true, "::1": true}, config.Whitelist)
	assert.NotEmpty(t, config.EndpointConfigs)

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	assert.False(t, LoadConfig().Enabled)
}

func TestMatchEndpoint_LongestPrefixWins(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/runs/", Method: "GET", Limit: 10},
		{Path: "/runs/last/", Method: "GET", Limit: 3},
	}

	got := MatchEndpoint("/runs/last/detail", "GET", configs)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.Limit)

	got = MatchEndpoint("/runs/other", "GET", configs)
	require.NotNil(t, got)
	assert.Equal(t, 10, got.Limit)
}

func TestConfigFrom(t *testing.T) {
	env := map[string]string{
		EnvDefaultLimit:  "abc",
		EnvDefaultWindow: "2m",
		EnvBlacklist:     "192.0.2.9",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	config := ConfigFrom(lookup)
	assert.True(t, config.Enabled)
	assert.Equal(t, 300, config.DefaultLimit, "unparsable values keep the default")
	assert.Equal(t, 2*time.Minute, config.DefaultWindow)
	assert.Equal(t, 5*time.Minute, config.CleanupInterval)
	assert.Empty(t, config.Whitelist)
	assert.Equal(t, map[string]bool{"192.0.2.9": true}, config.Blacklist)
}
