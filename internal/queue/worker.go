package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"imageAttach/internal/config"
	"imageAttach/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Generator interface {
	Generate(ctx context.Context, key string) ([]string, error)
}

type Worker struct {
	rc        redis.UniversalClient
	cfg       config.Variants
	generator Generator
}

func NewWorker(rc redis.UniversalClient, cfg config.Variants, generator Generator) *Worker {
	return &Worker{rc: rc, cfg: cfg, generator: generator}
}

func (w *Worker) EnsureGroup(ctx context.Context) error {
	err := w.rc.XGroupCreateMkStream(ctx, w.cfg.Stream, w.cfg.Group, "0").Err()
	// BUSYGROUP means the group already exists.
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Start runs cfg.Workers consumers until ctx is canceled.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("failed to ensure consumer group: %w", err)
	}

	logger.Log.Info("variant worker starting",
		zap.String("stream", w.cfg.Stream),
		zap.String("group", w.cfg.Group),
		zap.Int("workers", w.cfg.Workers),
	)

	w.autoClaim(ctx)

	workers := w.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func(id int) {
			errCh <- w.loop(ctx, fmt.Sprintf("%s-%d", w.cfg.Consumer, id))
		}(i)
	}

	select {
	case <-ctx.Done():
		logger.Log.Info("variant worker stopping")
		return nil
	case err := <-errCh:
		return err
	}
}

// autoClaim takes over messages a crashed consumer left unacknowledged.
func (w *Worker) autoClaim(ctx context.Context) {
	minIdle := 30 * time.Second
	if t := w.cfg.Block * 6; t > minIdle {
		minIdle = t
	}

	next := "0-0"
	for {
		msgs, start, err := w.rc.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   w.cfg.Stream,
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer + "-0",
			MinIdle:  minIdle,
			Start:    next,
			Count:    100,
		}).Result()
		if err != nil || len(msgs) == 0 {
			return
		}
		for _, m := range msgs {
			w.handle(ctx, m)
		}
		if start == "0-0" {
			return
		}
		next = start
	}
}

func (w *Worker) loop(ctx context.Context, consumer string) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := w.Poll(ctx, consumer); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Log.Warn("variant worker read failed", zap.Error(err))
			if !sleepCtx(ctx, time.Second) {
				return nil
			}
		}
	}
}

// Poll reads and handles one batch, returning how many messages it saw.
func (w *Worker) Poll(ctx context.Context, consumer string) (int, error) {
	streams, err := w.rc.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    w.cfg.Group,
		Consumer: consumer,
		Streams:  []string{w.cfg.Stream, ">"},
		Count:    10,
		Block:    w.cfg.Block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}

	n := 0
	for _, s := range streams {
		for _, m := range s.Messages {
			w.handle(ctx, m)
			n++
		}
	}
	return n, nil
}

// handle acks m once it is done with it. A message left unacked stays
// pending and is picked up by autoClaim on the next start.
func (w *Worker) handle(ctx context.Context, m redis.XMessage) {
	if !w.process(ctx, m) {
		return
	}
	if err := w.rc.XAck(context.WithoutCancel(ctx), w.cfg.Stream, w.cfg.Group, m.ID).Err(); err != nil {
		logger.Log.Warn("variant job ack failed", zap.String("id", m.ID), zap.Error(err))
	}
}

// process runs one job and reports whether m may be acked.
func (w *Worker) process(ctx context.Context, m redis.XMessage) bool {
	raw, ok := m.Values["payload"].(string)
	if !ok {
		logger.Log.Warn("variant job without payload", zap.String("id", m.ID))
		return true
	}

	var job VariantJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		logger.Log.Warn("malformed variant job", zap.String("id", m.ID), zap.Error(err))
		return true
	}

	if retryAt := toInt(m.Values["retry_at"]); retryAt > 0 {
		if !sleepCtx(ctx, time.Until(time.UnixMilli(int64(retryAt)))) {
			return false
		}
	}

	attempt := toInt(m.Values["attempt"])
	created, err := w.generator.Generate(ctx, job.Key)
	if err == nil {
		logger.Log.Info("variants generated",
			zap.Int64("image_id", job.ImageID),
			zap.String("key", job.Key),
			zap.Strings("created", created),
		)
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	if attempt+1 >= w.cfg.MaxAttempts {
		logger.Log.Error("variant job failed permanently",
			zap.Int64("image_id", job.ImageID),
			zap.String("key", job.Key),
			zap.Int("attempts", attempt+1),
			zap.Error(err),
		)
		return true
	}

	backoff := w.cfg.BackoffBase << attempt
	logger.Log.Warn("variant job failed, retrying",
		zap.String("key", job.Key),
		zap.Duration("backoff", backoff),
		zap.Error(err),
	)

	// The retry is written before m is acked.
	err = w.rc.XAdd(context.WithoutCancel(ctx), &redis.XAddArgs{
		Stream: w.cfg.Stream,
		MaxLen: w.cfg.MaxLen,
		Approx: true,
		Values: map[string]any{
			"payload":  raw,
			"attempt":  attempt + 1,
			"retry_at": time.Now().Add(backoff).UnixMilli(),
		},
	}).Err()
	if err != nil {
		logger.Log.Warn("variant job requeue failed", zap.String("key", job.Key), zap.Error(err))
		return false
	}
	return true
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}
