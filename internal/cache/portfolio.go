// Package cache keeps the public GET / payload in Redis between writes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"portfolio/cms/internal/content"
)

const portfolioKey = "portfolio:public"

type PortfolioCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPortfolioCache(client *redis.Client, ttl time.Duration) *PortfolioCache {
	return &PortfolioCache{client: client, ttl: ttl}
}

// Get returns the cached payload and whether it was present.
func (c *PortfolioCache) Get(ctx context.Context) (content.Portfolio, bool, error) {
	raw, err := c.client.Get(ctx, portfolioKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return content.Portfolio{}, false, nil
	}
	if err != nil {
		return content.Portfolio{}, false, fmt.Errorf("read portfolio cache: %w", err)
	}
	var portfolio content.Portfolio
	if err := json.Unmarshal(raw, &portfolio); err != nil {
		// a corrupt entry is treated as a miss and dropped
		_ = c.client.Del(ctx, portfolioKey).Err()
		return content.Portfolio{}, false, nil
	}
	return portfolio, true, nil
}

func (c *PortfolioCache) Set(ctx context.Context, portfolio content.Portfolio) error {
	raw, err := json.Marshal(portfolio)
	if err != nil {
		return fmt.Errorf("marshal portfolio: %w", err)
	}
	if err := c.client.Set(ctx, portfolioKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write portfolio cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached payload; called after every write.
func (c *PortfolioCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, portfolioKey).Err(); err != nil {
		return fmt.Errorf("invalidate portfolio cache: %w", err)
	}
	return nil
}
