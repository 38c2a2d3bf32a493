package payroll

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/warp/settlement-engine/settlement"
)

// ConfigCache keeps the last payroll configuration read from the store.
type ConfigCache interface {
	// Get returns ok=false on a cache miss.
	Get(ctx context.Context) (cfg settlement.PayrollConfig, ok bool, err error)
	Set(ctx context.Context, cfg settlement.PayrollConfig) error
}

// ConfigSource reads the payroll configuration from the primary store and
// falls back to the cached copy when the store is unavailable.
type ConfigSource struct {
	store settlement.ConfigStore
	cache ConfigCache
	log   logrus.FieldLogger
}

var _ settlement.ConfigStore = (*ConfigSource)(nil)

func NewConfigSource(store settlement.ConfigStore, cache ConfigCache, log logrus.FieldLogger) *ConfigSource {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ConfigSource{store: store, cache: cache, log: log}
}

// GetConfig implements settlement.ConfigStore.
func (s *ConfigSource) GetConfig(ctx context.Context) (settlement.PayrollConfig, error) {
	cfg, err := s.store.GetConfig(ctx)
	if err == nil {
		if cerr := s.cache.Set(ctx, cfg); cerr != nil {
			s.log.WithError(cerr).Warn("payroll config cache write failed")
		}
		return cfg, nil
	}
	if ctx.Err() != nil {
		return settlement.PayrollConfig{}, err
	}

	cached, ok, cerr := s.cache.Get(ctx)
	if cerr != nil {
		s.log.WithError(cerr).Warn("payroll config cache read failed")
	}
	if ok {
		s.log.WithError(err).Warn("payroll config store unavailable, using cached config")
		return cached, nil
	}
	return settlement.PayrollConfig{}, fmt.Errorf("%w: %w", settlement.ErrConfigUnavailable, err)
}

// Refresh reads the store and overwrites the cache.
func (s *ConfigSource) Refresh(ctx context.Context) error {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("refresh payroll config: %w", err)
	}
	return s.cache.Set(ctx, cfg)
}

// MemoryCache is a process-local ConfigCache.
type MemoryCache struct {
	mu  sync.RWMutex
	cfg *settlement.PayrollConfig
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get(_ context.Context) (settlement.PayrollConfig, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cfg == nil {
		return settlement.PayrollConfig{}, false, nil
	}
	return *c.cfg, true, nil
}

func (c *MemoryCache) Set(_ context.Context, cfg settlement.PayrollConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg.DeductionItemCatalog = append([]settlement.DeductionItem(nil), cfg.DeductionItemCatalog...)
	c.cfg = &cfg
	return nil
}
