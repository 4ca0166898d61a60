package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/carpark-etl/internal/domain"
	"github.com/couchcryptid/carpark-etl/internal/observability"
)

// StaticSource loads the validated static table.
type StaticSource interface {
	Load(ctx context.Context) (domain.StaticTable, error)
}

// LiveFetcher pulls and normalizes one availability feed.
type LiveFetcher interface {
	Fetch(ctx context.Context) (domain.LiveTable, error)
}

// Publisher receives every snapshot the refresher builds.
type Publisher interface {
	Publish(ctx context.Context, snap *domain.Snapshot) error
}

// Pipeline runs one load, fetch and merge cycle.
type Pipeline struct {
	static  StaticSource
	live    LiveFetcher
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Pipeline over the given stages.
func New(static StaticSource, live LiveFetcher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		static:  static,
		live:    live,
		logger:  logger,
		metrics: metrics,
	}
}

// stageError tags a stage failure with its metrics outcome. It unwraps to the
// stage's own error so domain sentinels stay visible to errors.Is.
type stageError struct {
	stage   string
	outcome string
	err     error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// Run loads the static table and fetches the feed concurrently, merges them
// and returns the resulting snapshot. Any stage failure fails the whole run;
// when both inputs fail the first error observed is returned.
func (p *Pipeline) Run(ctx context.Context) (*domain.Snapshot, error) {
	runID := uuid.NewString()
	start := time.Now()
	logger := p.logger.With("run_id", runID)

	var (
		static domain.StaticTable
		live   domain.LiveTable
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		static, err = p.static.Load(gctx)
		if err != nil {
			return &stageError{stage: "load static data", outcome: observability.OutcomeStaticError, err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		live, err = p.live.Fetch(gctx)
		if err != nil {
			return &stageError{stage: "fetch live data", outcome: observability.OutcomeFeedError, err: err}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		outcome := observability.OutcomeFeedError
		var se *stageError
		if errors.As(err, &se) {
			outcome = se.outcome
		}
		p.metrics.RunsTotal.WithLabelValues(outcome).Inc()
		logger.Error("pipeline run failed", "error", err, "outcome", outcome)
		return nil, err
	}

	p.metrics.StaticLoaded.Set(float64(len(static.Records)))
	p.metrics.LiveFetched.Set(float64(len(live.Records)))
	p.metrics.LiveDropped.Add(float64(live.Dropped))

	merged, err := domain.Merge(static, live)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues(observability.OutcomeMergeError).Inc()
		logger.Error("pipeline run failed", "error", err, "outcome", observability.OutcomeMergeError)
		return nil, &stageError{stage: "merge", outcome: observability.OutcomeMergeError, err: err}
	}

	snap := domain.NewSnapshot(runID, merged, live.FeedTimestamp)

	p.metrics.MergedRecords.Set(float64(len(merged.Records)))
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.RunsTotal.WithLabelValues(observability.OutcomeSuccess).Inc()

	logger.Info("pipeline run complete",
		"static_rows", len(static.Records),
		"live_records", len(live.Records),
		"dropped", live.Dropped,
		"matched", countMatched(merged),
		"duration", time.Since(start),
	)
	return snap, nil
}

func countMatched(t domain.MergedTable) int {
	n := 0
	for _, r := range t.Records {
		if r.HasLiveData() {
			n++
		}
	}
	return n
}
