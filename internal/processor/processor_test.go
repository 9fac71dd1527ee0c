package processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/queue"
	"github.com/nimasrn/live-commerce/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLive records passes and can block them until released.
type fakeLive struct {
	mu      sync.Mutex
	watches []model.LiveWatch
	passes  map[string]int
	err     error
	gate    chan struct{}
	started chan string
}

func newFakeLive(watches ...model.LiveWatch) *fakeLive {
	return &fakeLive{watches: watches, passes: make(map[string]int)}
}

func (f *fakeLive) Watches(context.Context) ([]model.LiveWatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.LiveWatch(nil), f.watches...), nil
}

func (f *fakeLive) RunPass(ctx context.Context, videoID string) (*model.LiveSnapshot, error) {
	if f.started != nil {
		f.started <- videoID
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.passes[videoID]++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &model.LiveSnapshot{VideoID: videoID}, nil
}

func (f *fakeLive) count(videoID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passes[videoID]
}

func testProcessorConfig() Config {
	return Config{
		Queue: queue.QueueConfig{
			Name:              "live:jobs",
			ConsumerGroup:     "processors",
			ConsumerName:      "test",
			MaxRetries:        3,
			VisibilityTimeout: 5 * time.Second,
			PollInterval:      20 * time.Millisecond,
			BatchSize:         10,
			MaxLen:            100,
			EnableDLQ:         true,
		},
		Consumers:    1,
		Workers:      2,
		PollInterval: 20 * time.Millisecond,
		PassTimeout:  2 * time.Second,
	}
}

func TestProcessor_TriggerRunsPass(t *testing.T) {
	_, r := setupTestRedis(t)
	live := newFakeLive()
	s := NewProcessorService(r, live, NewLeaseService(r, DefaultLeaseConfig()), testProcessorConfig())

	require.NoError(t, s.Trigger(context.Background(), "vid1", "job"))
	assert.Equal(t, 1, live.count("vid1"))

	held, err := s.lease.IsHeld(context.Background(), "vid1")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestProcessor_TriggerCoalesces(t *testing.T) {
	_, r := setupTestRedis(t)
	live := newFakeLive()
	live.gate = make(chan struct{})
	live.started = make(chan string, 10)
	s := NewProcessorService(r, live, nil, testProcessorConfig())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.Trigger(ctx, "vid1", "poll") }()
	<-live.started

	// two triggers while busy collapse into one extra pass
	require.NoError(t, s.Trigger(ctx, "vid1", "job"))
	require.NoError(t, s.Trigger(ctx, "vid1", "job"))

	close(live.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 2, live.count("vid1"))
}

func TestProcessor_LeaseHeldSkipsPass(t *testing.T) {
	_, r := setupTestRedis(t)
	live := newFakeLive()
	lease := NewLeaseService(r, DefaultLeaseConfig())
	s := NewProcessorService(r, live, lease, testProcessorConfig())
	ctx := context.Background()

	other, err := lease.Acquire(ctx, "vid1")
	require.NoError(t, err)

	require.NoError(t, s.Trigger(ctx, "vid1", "poll"))
	assert.Equal(t, 0, live.count("vid1"))

	require.NoError(t, lease.Release(ctx, other))
}

func TestProcessor_UnwatchedVideoIsNotAnError(t *testing.T) {
	_, r := setupTestRedis(t)
	live := newFakeLive()
	live.err = services.ErrWatchNotFound
	s := NewProcessorService(r, live, nil, testProcessorConfig())

	assert.NoError(t, s.Trigger(context.Background(), "gone", "job"))
}

func TestProcessor_PassErrorIsReturned(t *testing.T) {
	_, r := setupTestRedis(t)
	live := newFakeLive()
	live.err = errors.New("graph down")
	s := NewProcessorService(r, live, nil, testProcessorConfig())

	assert.Error(t, s.Trigger(context.Background(), "vid1", "job"))
	assert.Equal(t, int64(1), s.metrics.GetStats()["total_failed"])
}

func TestProcessor_PollsActiveWatches(t *testing.T) {
	_, r := setupTestRedis(t)
	live := newFakeLive(
		model.LiveWatch{VideoID: "live1"},
		model.LiveWatch{VideoID: "paused1", Paused: true},
	)
	s := NewProcessorService(r, live, NewLeaseService(r, DefaultLeaseConfig()), testProcessorConfig())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return live.count("live1") >= 2 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, live.count("paused1"))
}

func TestProcessor_ConsumesReconcileJobs(t *testing.T) {
	_, r := setupTestRedis(t)
	live := newFakeLive()
	cfg := testProcessorConfig()
	cfg.PollInterval = time.Hour
	s := NewProcessorService(r, live, nil, cfg)
	s.RegisterProcessor(NewReconcileProcessor(s.Trigger))

	require.NoError(t, s.Start())
	defer s.Stop()

	q, err := queue.NewQueue(r, cfg.Queue)
	require.NoError(t, err)
	job := model.LiveJob{Type: model.JobReconcile, VideoID: "vid9"}
	_, err = q.PublishJSON(context.Background(), job, map[string]string{"type": "reconcile"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return live.count("vid9") == 1 }, 3*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool {
		stats, err := q.GetStats(context.Background())
		return err == nil && stats.PendingMessages == 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestReconcileProcessor_Process(t *testing.T) {
	var calls int32
	var got string
	p := NewReconcileProcessor(func(_ context.Context, videoID, trigger string) error {
		atomic.AddInt32(&calls, 1)
		got = videoID + "/" + trigger
		return errors.New("pass failed")
	})
	assert.Equal(t, "reconcile", p.GetType())

	data, err := json.Marshal(model.LiveJob{Type: model.JobReconcile, VideoID: " vid1 "})
	require.NoError(t, err)

	require.NoError(t, p.Process(context.Background(), &queue.Message{ID: "1-0", Data: data}))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "vid1/job", got)

	err = p.Process(context.Background(), &queue.Message{ID: "2-0", Data: []byte("{")})
	assert.ErrorIs(t, err, ErrInvalidJob)

	err = p.Process(context.Background(), &queue.Message{ID: "3-0", Data: []byte(`{"type":"reconcile"}`)})
	assert.ErrorIs(t, err, ErrInvalidJob)
}
