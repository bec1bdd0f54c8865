package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedloom/internal/types"
)

type countingRunner struct {
	runs atomic.Int32
	err  error
}

func (c *countingRunner) Run(context.Context) (int, error) {
	c.runs.Add(1)
	return 1, c.err
}

func TestRefresherRunOnce(t *testing.T) {
	t.Parallel()

	r := &countingRunner{}
	b := NewRefresher(RefresherConfig{Name: "once", Runner: r, RunOnce: true})

	require.NoError(t, b.Start(context.Background()))
	assert.Equal(t, int32(1), r.runs.Load())

	failing := NewRefresher(RefresherConfig{Runner: &countingRunner{err: errors.New("disk full")}, RunOnce: true})
	assert.Error(t, failing.Start(context.Background()))
}

func TestRefresherIntervalUntilStopped(t *testing.T) {
	t.Parallel()

	r := &countingRunner{err: errors.New("flaky")}
	var shutdowns atomic.Int32
	b := NewRefresher(RefresherConfig{
		Runner:   r,
		Interval: 10 * time.Millisecond,
		ShutdownFn: func(context.Context) error {
			shutdowns.Add(1)
			return nil
		},
	})

	done := make(chan error, 1)
	go func() { done <- b.Start(context.Background()) }()

	require.Eventually(t, func() bool { return r.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Stop(context.Background()))
	require.NoError(t, b.Stop(context.Background()))
	assert.NoError(t, <-done)
	assert.Equal(t, int32(2), shutdowns.Load())

	select {
	case err := <-b.Errors():
		assert.ErrorContains(t, err, "flaky")
	default:
		t.Fatal("expected run errors to be reported")
	}
}

func TestRefresherRejectsSecondStart(t *testing.T) {
	t.Parallel()

	r := &countingRunner{}
	b := NewRefresher(RefresherConfig{Runner: r, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	// the first run starts only after the refresher is marked running
	require.Eventually(t, func() bool { return r.runs.Load() >= 1 }, time.Second, time.Millisecond)
	assert.Error(t, b.Start(ctx))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

type stubAggregator struct {
	items []types.ContentItem
	args  []string
}

func (s *stubAggregator) Aggregate(_ context.Context, source, q string) []types.ContentItem {
	s.args = append(s.args, source, q)
	return s.items
}

type memoryPersister struct {
	mu    sync.Mutex
	items []types.ContentItem
	err   error
}

func (m *memoryPersister) PersistAll(_ context.Context, items []types.ContentItem) ([]int64, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, len(items))
	for i := range items {
		m.items = append(m.items, items[i])
		ids[i] = int64(len(m.items))
	}
	return ids, nil
}

func TestPipelineRun(t *testing.T) {
	t.Parallel()

	agg := &stubAggregator{items: []types.ContentItem{{Provider: "arxiv", SourceItemID: "1"}, {Provider: "arxiv", SourceItemID: "2"}}}
	store := &memoryPersister{}

	p := NewPipeline(agg, store, PipelineConfig{Source: "arxiv", SearchTerm: "transformers"}, nil)

	n, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"arxiv", "transformers"}, agg.args)
	assert.Len(t, store.items, 2)

	empty := NewPipeline(&stubAggregator{}, store, PipelineConfig{}, nil)
	n, err = empty.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	broken := NewPipeline(agg, &memoryPersister{err: errors.New("readonly")}, PipelineConfig{}, nil)
	_, err = broken.Run(context.Background())
	assert.ErrorContains(t, err, "readonly")
}
