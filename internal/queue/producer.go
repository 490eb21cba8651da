// Package queue carries variant generation jobs over a Redis stream.
package queue

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// VariantJob asks a worker to render the missing variants of one original.
// Workers fetch the bytes by Key.
type VariantJob struct {
	ImageID int64  `json:"image_id"`
	Key     string `json:"key"`
}

type Producer struct {
	r      redis.UniversalClient
	stream string
	maxLen int64
}

func NewProducer(r redis.UniversalClient, stream string, maxLen int64) *Producer {
	return &Producer{r: r, stream: stream, maxLen: maxLen}
}

// EnqueueVariants appends the job to the stream as JSON.
func (p *Producer) EnqueueVariants(ctx context.Context, job VariantJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "encode variant job")
	}

	err = p.r.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"payload": string(raw),
			"attempt": 0,
		},
	}).Err()
	return errors.Wrap(err, "enqueue variant job")
}
