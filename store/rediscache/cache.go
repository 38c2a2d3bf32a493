// Package rediscache keeps the last known payroll configuration in Redis so
// runs can proceed while the primary config store is unreachable.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/payroll"
	"github.com/warp/settlement-engine/settlement"
)

// DefaultKey is the Redis key of the cached configuration.
const DefaultKey = "settlement:payroll_config"

// Cache implements payroll.ConfigCache on Redis. The value is the same JSON
// document the config API accepts.
type Cache struct {
	rdb     redis.Cmdable
	key     string
	ttl     time.Duration
	factory *factory.ConfigFactory
}

var _ payroll.ConfigCache = (*Cache)(nil)

// New creates a cache. A zero ttl keeps the value until overwritten.
func New(rdb redis.Cmdable, key string, ttl time.Duration) *Cache {
	if key == "" {
		key = DefaultKey
	}
	return &Cache{rdb: rdb, key: key, ttl: ttl, factory: factory.NewConfigFactory()}
}

// Get returns ok=false when the key is absent.
func (c *Cache) Get(ctx context.Context) (settlement.PayrollConfig, bool, error) {
	val, err := c.rdb.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return settlement.PayrollConfig{}, false, nil
	}
	if err != nil {
		return settlement.PayrollConfig{}, false, fmt.Errorf("redis get %s: %w", c.key, err)
	}

	cfg, err := c.factory.ParseConfig(val)
	if err != nil {
		return settlement.PayrollConfig{}, false, err
	}
	return cfg, true, nil
}

func (c *Cache) Set(ctx context.Context, cfg settlement.PayrollConfig) error {
	val, err := c.factory.ToJSON(cfg)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, c.key, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.key, err)
	}
	return nil
}
