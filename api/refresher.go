/*
refresher.go - Payroll config cache refresher

PURPOSE:
  Periodically copies the payroll configuration from the store into the
  cache, so a run started while the store is unreachable still finds a
  recent configuration.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Refreshes once immediately on start
  - Failures are logged and retried on the next tick
  - With a Lock set, a tick is skipped when another replica holds it

USAGE:
  refresher := NewConfigRefresher(handler.Config, log)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - payroll/config_source.go: ConfigSource.Refresh
  - store/rediscache: Redis-backed cache
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/settlement-engine/payroll"
)

// RefreshLock serializes refreshes across processes sharing one cache.
type RefreshLock interface {
	TryLock(ctx context.Context) (unlock func(), ok bool, err error)
}

// ConfigRefresher keeps the payroll config cache warm.
type ConfigRefresher struct {
	Source   *payroll.ConfigSource
	Interval time.Duration
	Enabled  bool
	Lock     RefreshLock // optional
	Log      logrus.FieldLogger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewConfigRefresher creates a refresher with a 5 minute interval.
func NewConfigRefresher(source *payroll.ConfigSource, log logrus.FieldLogger) *ConfigRefresher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ConfigRefresher{
		Source:   source,
		Interval: 5 * time.Minute,
		Enabled:  true,
		Log:      log.WithField("component", "config_refresher"),
	}
}

// Start begins refreshing.
func (cr *ConfigRefresher) Start() {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if !cr.Enabled || cr.Interval <= 0 {
		cr.Log.Info("disabled, not starting")
		return
	}
	if cr.ticker != nil {
		return
	}

	cr.ticker = time.NewTicker(cr.Interval)
	cr.stop = make(chan struct{})
	cr.wg.Add(1)

	go cr.run()

	cr.Log.WithField("interval", cr.Interval.String()).Info("started")
}

// Stop stops refreshing and waits for an in-flight refresh.
func (cr *ConfigRefresher) Stop() {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.ticker != nil {
		cr.ticker.Stop()
		close(cr.stop)
		cr.wg.Wait()
		cr.ticker = nil
		cr.Log.Info("stopped")
	}
}

func (cr *ConfigRefresher) run() {
	defer cr.wg.Done()

	cr.refresh()

	for {
		select {
		case <-cr.ticker.C:
			cr.refresh()
		case <-cr.stop:
			return
		}
	}
}

func (cr *ConfigRefresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cr.Lock != nil {
		unlock, ok, err := cr.Lock.TryLock(ctx)
		if err != nil {
			cr.Log.WithError(err).Warn("refresh lock failed")
			return
		}
		if !ok {
			cr.Log.Debug("refresh held by another process, skipping")
			return
		}
		defer unlock()
	}

	if err := cr.Source.Refresh(ctx); err != nil {
		cr.Log.WithError(err).Warn("refresh failed")
		return
	}
	cr.Log.Debug("payroll config cached")
}
