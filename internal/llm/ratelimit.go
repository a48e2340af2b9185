package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedClient paces calls to another Client so a run never bursts past
// the provider's per-minute quota.
type RateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimitedClient allows perMinute calls per minute with a burst of one.
func NewRateLimitedClient(inner Client, perMinute int) *RateLimitedClient {
	return &RateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// GenerateContent waits for a token, then delegates.
func (c *RateLimitedClient) GenerateContent(ctx context.Context, req Request, tier ModelTier) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return c.inner.GenerateContent(ctx, req, tier)
}

// GetModel delegates to the wrapped client.
func (c *RateLimitedClient) GetModel(tier ModelTier) string {
	return c.inner.GetModel(tier)
}

// Close closes the wrapped client.
func (c *RateLimitedClient) Close() error {
	return c.inner.Close()
}
