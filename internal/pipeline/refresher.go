package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/carpark-etl/internal/domain"
	"github.com/couchcryptid/carpark-etl/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Runner builds one snapshot. *Pipeline implements it.
type Runner interface {
	Run(ctx context.Context) (*domain.Snapshot, error)
}

// Refresher keeps a current snapshot, rebuilding it every interval. Readers
// call Current and never block; a failed rebuild keeps serving the previous
// snapshot.
type Refresher struct {
	runner    Runner
	publisher Publisher
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	current   atomic.Pointer[domain.Snapshot]
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithClock replaces the real clock used for the refresh interval and backoff.
func WithClock(c clockwork.Clock) RefresherOption {
	return func(r *Refresher) { r.clock = c }
}

// NewRefresher creates a Refresher. publisher may be nil.
func NewRefresher(r Runner, publisher Publisher, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...RefresherOption) *Refresher {
	ref := &Refresher{
		runner:    r,
		publisher: publisher,
		interval:  interval,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(ref)
	}
	return ref
}

// Current returns the latest snapshot, or nil before the first successful run.
func (r *Refresher) Current() *domain.Snapshot {
	return r.current.Load()
}

// CheckReadiness returns nil once a snapshot has been built.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if r.current.Load() == nil {
		return errors.New("no car park snapshot built yet")
	}
	return nil
}

// Run refreshes the snapshot until the context is cancelled. A failed run is
// retried with exponential backoff (200ms doubling to 5s); a successful run
// waits the full interval before the next one.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("refresher started", "interval", r.interval)
	r.metrics.RefresherRunning.Set(1)
	defer r.metrics.RefresherRunning.Set(0)

	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			r.logger.Info("refresher stopping", "reason", ctx.Err())
			return nil
		}

		wait := r.interval
		if !r.refresh(ctx) {
			if ctx.Err() != nil {
				continue
			}
			wait = backoff
			backoff = nextBackoff(backoff, maxBackoff)
		} else {
			backoff = initialBackoff
		}

		if !sleepWithContext(ctx, r.clock, wait) {
			r.logger.Info("refresher stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// refresh runs the pipeline once and swaps in the new snapshot. Returns false
// if the run failed.
func (r *Refresher) refresh(ctx context.Context) bool {
	snap, err := r.runner.Run(ctx)
	if err != nil {
		if prev := r.current.Load(); prev != nil {
			r.metrics.SnapshotAge.Set(prev.Age().Seconds())
			r.logger.Warn("refresh failed, serving previous snapshot",
				"error", err, "previous_run_id", prev.RunID, "age", prev.Age())
		}
		return false
	}

	r.current.Store(snap)
	r.metrics.SnapshotAge.Set(0)
	r.publish(ctx, snap)
	return true
}

func (r *Refresher) publish(ctx context.Context, snap *domain.Snapshot) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, snap); err != nil {
		r.logger.Error("publish snapshot failed", "error", err, "run_id", snap.RunID)
		return
	}
	r.metrics.RecordsPublished.Add(float64(len(snap.Table.Records)))
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
