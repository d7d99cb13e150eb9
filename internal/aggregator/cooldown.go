package aggregator

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cooldown shares per-institution back-off windows between workers.
type Cooldown interface {
	Remaining(ctx context.Context, institutionID string) (time.Duration, error)
	Set(ctx context.Context, institutionID string, d time.Duration) error
}

// RedisCooldown stores cooldown windows as expiring Redis keys. A nil client
// disables cooldowns.
type RedisCooldown struct {
	redis *redis.Client
}

func NewRedisCooldown(client *redis.Client) *RedisCooldown {
	return &RedisCooldown{redis: client}
}

func cooldownKey(institutionID string) string {
	return "aggregator:cooldown:" + institutionID
}

func (c *RedisCooldown) Remaining(ctx context.Context, institutionID string) (time.Duration, error) {
	if c == nil || c.redis == nil {
		return 0, nil
	}
	ttl, err := c.redis.PTTL(ctx, cooldownKey(institutionID)).Result()
	if err != nil {
		return 0, err
	}
	// PTTL reports -2 for a missing key and -1 for one without expiry.
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (c *RedisCooldown) Set(ctx context.Context, institutionID string, d time.Duration) error {
	if c == nil || c.redis == nil || d <= 0 {
		return nil
	}
	return c.redis.Set(ctx, cooldownKey(institutionID), "1", d).Err()
}
