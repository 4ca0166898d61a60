package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/carpark-etl/internal/domain"
	"github.com/couchcryptid/carpark-etl/internal/observability"
	"github.com/couchcryptid/carpark-etl/internal/pipeline"
)

const testInterval = time.Minute

type runResult struct {
	snap *domain.Snapshot
	err  error
}

// scriptedRunner returns its results in order, repeating the last one, and
// reports each call index on calls.
type scriptedRunner struct {
	mu      sync.Mutex
	results []runResult
	n       int
	calls   chan int
}

func newScriptedRunner(results ...runResult) *scriptedRunner {
	return &scriptedRunner{results: results, calls: make(chan int, 64)}
}

func (r *scriptedRunner) Run(_ context.Context) (*domain.Snapshot, error) {
	r.mu.Lock()
	i := r.n
	r.n++
	res := r.results[min(i, len(r.results)-1)]
	r.mu.Unlock()

	r.calls <- i
	return res.snap, res.err
}

type recordingPublisher struct {
	mu    sync.Mutex
	runs  []string
	err   error
	calls int
}

func (p *recordingPublisher) Publish(_ context.Context, snap *domain.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return p.err
	}
	p.runs = append(p.runs, snap.RunID)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.runs...)
}

func testSnapshot(runID string) *domain.Snapshot {
	merged := domain.MergedTable{
		Columns: domain.StaticColumns,
		Records: []domain.MergedRecord{{StaticRecord: domain.StaticRecord{ID: "A"}}},
	}
	return domain.NewSnapshot(runID, merged, nil)
}

var errFeedDown = errors.New("feed down")

// startRefresher runs r in the background and returns a stop function that
// cancels it and waits for Run to return.
func startRefresher(t *testing.T, r *pipeline.Refresher) (context.Context, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Error("refresher did not stop")
			}
		})
	}
	t.Cleanup(stop)
	return ctx, stop
}

func waitCall(t *testing.T, runner *scriptedRunner, want int) {
	t.Helper()
	select {
	case got := <-runner.calls:
		require.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("runner call %d never happened", want)
	}
}

// waitIdle blocks until the refresher is parked on its interval or backoff timer.
func waitIdle(t *testing.T, ctx context.Context, clock *clockwork.FakeClock) {
	t.Helper()
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
}

func TestRefresher_RefreshesOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := newScriptedRunner(
		runResult{snap: testSnapshot("run-1")},
		runResult{snap: testSnapshot("run-2")},
	)
	pub := &recordingPublisher{}
	metrics := observability.NewMetricsForTesting()
	r := pipeline.NewRefresher(runner, pub, testInterval, discardLogger(), metrics, pipeline.WithClock(clock))

	require.Error(t, r.CheckReadiness(context.Background()))
	assert.Nil(t, r.Current())

	ctx, stop := startRefresher(t, r)

	waitCall(t, runner, 0)
	waitIdle(t, ctx, clock)
	require.NotNil(t, r.Current())
	assert.Equal(t, "run-1", r.Current().RunID)
	assert.NoError(t, r.CheckReadiness(ctx))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RefresherRunning), 0)

	clock.Advance(testInterval)
	waitCall(t, runner, 1)
	waitIdle(t, ctx, clock)
	assert.Equal(t, "run-2", r.Current().RunID)
	assert.Equal(t, []string{"run-1", "run-2"}, pub.published())
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RecordsPublished), 0)

	stop()
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.RefresherRunning), 0)
}

func TestRefresher_FailedRefreshKeepsPreviousSnapshot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := newScriptedRunner(
		runResult{snap: testSnapshot("run-1")},
		runResult{err: errFeedDown},
		runResult{snap: testSnapshot("run-3")},
	)
	r := pipeline.NewRefresher(runner, nil, testInterval, discardLogger(), observability.NewMetricsForTesting(), pipeline.WithClock(clock))
	ctx, _ := startRefresher(t, r)

	waitCall(t, runner, 0)
	waitIdle(t, ctx, clock)

	clock.Advance(testInterval)
	waitCall(t, runner, 1)
	waitIdle(t, ctx, clock)
	assert.Equal(t, "run-1", r.Current().RunID)
	assert.NoError(t, r.CheckReadiness(ctx))

	// The retry uses the initial backoff, not the full interval.
	clock.Advance(200 * time.Millisecond)
	waitCall(t, runner, 2)
	waitIdle(t, ctx, clock)
	assert.Equal(t, "run-3", r.Current().RunID)
}

func TestRefresher_BackoffGrowsUntilSuccess(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := newScriptedRunner(
		runResult{err: errFeedDown},
		runResult{err: errFeedDown},
		runResult{err: errFeedDown},
		runResult{snap: testSnapshot("run-4")},
	)
	r := pipeline.NewRefresher(runner, nil, testInterval, discardLogger(), observability.NewMetricsForTesting(), pipeline.WithClock(clock))
	ctx, _ := startRefresher(t, r)

	waitCall(t, runner, 0)
	waitIdle(t, ctx, clock)
	assert.Error(t, r.CheckReadiness(ctx))

	for i, wait := range []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond} {
		clock.Advance(wait)
		waitCall(t, runner, i+1)
		waitIdle(t, ctx, clock)
	}
	assert.NoError(t, r.CheckReadiness(ctx))
	assert.Equal(t, "run-4", r.Current().RunID)
}

func TestRefresher_PublishErrorDoesNotFailRefresh(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := newScriptedRunner(runResult{snap: testSnapshot("run-1")})
	pub := &recordingPublisher{err: errors.New("broker unavailable")}
	metrics := observability.NewMetricsForTesting()
	r := pipeline.NewRefresher(runner, pub, testInterval, discardLogger(), metrics, pipeline.WithClock(clock))
	ctx, _ := startRefresher(t, r)

	waitCall(t, runner, 0)
	waitIdle(t, ctx, clock)
	assert.Equal(t, "run-1", r.Current().RunID)
	pub.mu.Lock()
	assert.Equal(t, 1, pub.calls)
	pub.mu.Unlock()
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.RecordsPublished), 0)
}

func TestRefresher_StopsOnCancelledContext(t *testing.T) {
	runner := newScriptedRunner(runResult{snap: testSnapshot("run-1")})
	r := pipeline.NewRefresher(runner, nil, testInterval, discardLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, r.Run(ctx))
	assert.Empty(t, runner.calls)
	assert.Nil(t, r.Current())
}
