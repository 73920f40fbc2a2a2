package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/metrics"
)

const (
	// DefaultTagGrace keeps freshly upserted tags alive long enough for the
	// save that created them to link them.
	DefaultTagGrace = time.Hour
)

// TagSweeper deletes tags that no bookmark references.
type TagSweeper interface {
	DeleteOrphanTags(ctx context.Context, olderThan time.Time) (int64, error)
}

// TagCollector removes orphan tags periodically and on demand.
type TagCollector struct {
	sweeper  TagSweeper
	logger   logger.Logger
	interval time.Duration
	grace    time.Duration
	trigger  chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time

	mu          sync.RWMutex
	lastRun     time.Time
	lastDeleted int64
	lastErr     error
}

// Status is a snapshot of the collector's last run.
type Status struct {
	Interval    time.Duration
	LastRun     time.Time
	LastDeleted int64
	LastError   error
}

// NewTagCollector creates a collector. An interval of 0 disables the
// periodic sweep; manual triggers still run.
func NewTagCollector(
	sweeper TagSweeper,
	log logger.Logger,
	interval time.Duration,
	grace time.Duration,
	trigger chan struct{},
) *TagCollector {
	if grace <= 0 {
		grace = DefaultTagGrace
	}

	return &TagCollector{
		sweeper:  sweeper,
		logger:   log,
		interval: interval,
		grace:    grace,
		trigger:  trigger,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
}

// Start launches the collection loop.
func (tc *TagCollector) Start(ctx context.Context) {
	if tc.interval <= 0 {
		tc.logger.Info("periodic tag collection disabled")
	}

	go func() {
		var tick <-chan time.Time
		if tc.interval > 0 {
			ticker := time.NewTicker(tc.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-tick:
				tc.run(ctx)
			case <-tc.trigger:
				tc.logger.Info("manual tag collection triggered")
				tc.run(ctx)
			case <-tc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the collector. Safe to call more than once.
func (tc *TagCollector) Stop() {
	tc.stopOnce.Do(func() { close(tc.stopCh) })
}

func (tc *TagCollector) run(ctx context.Context) {
	if _, err := tc.Collect(ctx); err != nil {
		tc.logger.Error("tag collection failed", logger.Error(err))
	}
}

// Collect deletes orphan tags whose last upsert is older than the grace
// period and returns how many were removed.
func (tc *TagCollector) Collect(ctx context.Context) (int64, error) {
	now := tc.now()
	deleted, err := tc.sweeper.DeleteOrphanTags(ctx, now.Add(-tc.grace))

	tc.mu.Lock()
	tc.lastRun = now
	tc.lastDeleted = deleted
	tc.lastErr = err
	tc.mu.Unlock()

	if err != nil {
		return 0, err
	}

	metrics.OrphanTagsDeleted.Add(float64(deleted))
	if deleted > 0 {
		tc.logger.Info("orphan tags collected",
			logger.Int64("deleted", deleted),
			logger.Duration("grace", tc.grace))
	} else {
		tc.logger.Debug("no orphan tags to collect")
	}
	return deleted, nil
}

// Status returns the outcome of the last run.
func (tc *TagCollector) Status() Status {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return Status{
		Interval:    tc.interval,
		LastRun:     tc.lastRun,
		LastDeleted: tc.lastDeleted,
		LastError:   tc.lastErr,
	}
}
