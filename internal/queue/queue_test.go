package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"imageAttach/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu    sync.Mutex
	keys  []string
	fails int
}

func (g *fakeGenerator) Generate(ctx context.Context, key string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.keys = append(g.keys, key)
	if g.fails > 0 {
		g.fails--
		return nil, errors.New("storage unavailable")
	}
	return []string{"thumb", "sm", "md", "lg"}, nil
}

func (g *fakeGenerator) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.keys...)
}

func setupRedis(t *testing.T) redis.UniversalClient {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func testConfig() config.Variants {
	return config.Variants{
		Stream:      "images:variants",
		Group:       "variant-workers",
		Consumer:    "test",
		Workers:     1,
		MaxAttempts: 3,
		MaxLen:      1000,
		Block:       20 * time.Millisecond,
		BackoffBase: time.Millisecond,
	}
}

func TestProducer_EnqueueVariants(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	producer := NewProducer(client, "images:variants", 1000)
	require.NoError(t, producer.EnqueueVariants(ctx, VariantJob{ImageID: 5, Key: "a.png"}))

	msgs, err := client.XRange(ctx, "images:variants", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var job VariantJob
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["payload"].(string)), &job))
	assert.Equal(t, VariantJob{ImageID: 5, Key: "a.png"}, job)
	assert.Equal(t, "0", msgs[0].Values["attempt"])
}

func TestWorker_Poll(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	cfg := testConfig()
	gen := &fakeGenerator{}

	worker := NewWorker(client, cfg, gen)
	require.NoError(t, worker.EnsureGroup(ctx))
	require.NoError(t, worker.EnsureGroup(ctx))

	require.NoError(t, NewProducer(client, cfg.Stream, cfg.MaxLen).EnqueueVariants(ctx, VariantJob{ImageID: 1, Key: "a.png"}))

	n, err := worker.Poll(ctx, "test-0")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a.png"}, gen.calls())

	pending, err := client.XPending(ctx, cfg.Stream, cfg.Group).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestWorker_RetriesFailedJob(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	cfg := testConfig()
	gen := &fakeGenerator{fails: 1}

	worker := NewWorker(client, cfg, gen)
	require.NoError(t, worker.EnsureGroup(ctx))
	require.NoError(t, NewProducer(client, cfg.Stream, cfg.MaxLen).EnqueueVariants(ctx, VariantJob{ImageID: 1, Key: "a.png"}))

	_, err := worker.Poll(ctx, "test-0")
	require.NoError(t, err)

	n, err := client.XLen(ctx, cfg.Stream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = worker.Poll(ctx, "test-0")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "a.png"}, gen.calls())
}

func TestWorker_RequeuesBeforeAck(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	cfg := testConfig()
	cfg.BackoffBase = time.Hour
	gen := &fakeGenerator{fails: 1}

	worker := NewWorker(client, cfg, gen)
	require.NoError(t, worker.EnsureGroup(ctx))
	require.NoError(t, NewProducer(client, cfg.Stream, cfg.MaxLen).EnqueueVariants(ctx, VariantJob{ImageID: 1, Key: "a.png"}))

	before := time.Now()
	_, err := worker.Poll(ctx, "test-0")
	require.NoError(t, err)

	msgs, err := client.XRange(ctx, cfg.Stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	retry := msgs[1].Values
	assert.Equal(t, "1", retry["attempt"])
	retryAt := time.UnixMilli(int64(toInt(retry["retry_at"])))
	assert.WithinDuration(t, before.Add(time.Hour), retryAt, time.Minute)

	pending, err := client.XPending(ctx, cfg.Stream, cfg.Group).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestWorker_ShutdownLeavesRetryPending(t *testing.T) {
	client := setupRedis(t)
	cfg := testConfig()
	cfg.BackoffBase = time.Hour
	gen := &fakeGenerator{fails: 1}

	worker := NewWorker(client, cfg, gen)
	require.NoError(t, worker.EnsureGroup(context.Background()))
	require.NoError(t, NewProducer(client, cfg.Stream, cfg.MaxLen).EnqueueVariants(context.Background(), VariantJob{ImageID: 1, Key: "a.png"}))

	_, err := worker.Poll(context.Background(), "test-0")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	n, err := worker.Poll(ctx, "test-0")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, []string{"a.png"}, gen.calls())

	pending, err := client.XPending(context.Background(), cfg.Stream, cfg.Group).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)
}

func TestSleepCtx(t *testing.T) {
	assert.True(t, sleepCtx(context.Background(), time.Millisecond))
	assert.True(t, sleepCtx(context.Background(), -time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	assert.False(t, sleepCtx(ctx, time.Hour))
	assert.False(t, sleepCtx(ctx, 0))
	assert.Less(t, time.Since(start), time.Second)
}

func TestWorker_GivesUpAfterMaxAttempts(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	cfg := testConfig()
	cfg.MaxAttempts = 1
	gen := &fakeGenerator{fails: 5}

	worker := NewWorker(client, cfg, gen)
	require.NoError(t, worker.EnsureGroup(ctx))
	require.NoError(t, NewProducer(client, cfg.Stream, cfg.MaxLen).EnqueueVariants(ctx, VariantJob{ImageID: 1, Key: "a.png"}))

	_, err := worker.Poll(ctx, "test-0")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	n, err := client.XLen(ctx, cfg.Stream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWorker_StartStopsOnCancel(t *testing.T) {
	client := setupRedis(t)
	cfg := testConfig()
	gen := &fakeGenerator{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewWorker(client, cfg, gen).Start(ctx) }()

	require.NoError(t, NewProducer(client, cfg.Stream, cfg.MaxLen).EnqueueVariants(context.Background(), VariantJob{ImageID: 2, Key: "b.png"}))

	assert.Eventually(t, func() bool { return len(gen.calls()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestToInt(t *testing.T) {
	assert.Equal(t, 2, toInt("2"))
	assert.Equal(t, 3, toInt(int64(3)))
	assert.Equal(t, 0, toInt(nil))
}
