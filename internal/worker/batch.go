package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/kuis-backend/internal/metrics"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// queue is the part of *redis.Client the workers consume from.
type queue interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// batcher drains a Redis list into batches flushed by size or age. flush
// returns the items that must go back on the queue.
type batcher[T any] struct {
	name         string
	key          string
	src          queue
	size         int
	timeout      time.Duration
	requeueDelay time.Duration
	flush        func(ctx context.Context, batch []T) []T
	log          zerolog.Logger
}

func (b *batcher[T]) run(ctx context.Context) {
	b.log.Info().Str("queue", b.key).Msg("Worker started")

	buffer := make([]T, 0, b.size)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 &&
			(len(buffer) >= b.size || time.Since(lastFlush) >= b.timeout) {
			b.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			b.shutdown(buffer)
			return
		default:
		}

		result, err := b.src.BLPop(ctx, PollTimeout, b.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			b.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			sleepCtx(ctx, 3*time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var item T
		if err := json.Unmarshal([]byte(result[1]), &item); err != nil {
			b.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}
		buffer = append(buffer, item)
	}
}

func (b *batcher[T]) flushSafe(ctx context.Context, batch []T) {
	failed := b.flush(ctx, batch)
	metrics.WorkerFlushed.WithLabelValues(b.name, "ok").Add(float64(len(batch) - len(failed)))
	if len(failed) == 0 {
		return
	}
	metrics.WorkerFlushed.WithLabelValues(b.name, "requeued").Add(float64(len(failed)))
	b.requeue(ctx, failed)
}

func (b *batcher[T]) requeue(ctx context.Context, items []T) {
	values := make([]interface{}, 0, len(items))
	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			b.log.Error().Err(err).Msg("Dropping item that cannot be encoded")
			continue
		}
		values = append(values, data)
	}
	if len(values) == 0 {
		return
	}

	// A cancelled ctx must not lose the items on shutdown.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := b.src.RPush(pushCtx, b.key, values...).Err(); err != nil {
		b.log.Error().Err(err).Int("count", len(values)).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	b.log.Info().Int("count", len(values)).Msg("Requeued failed items back to Redis")
	sleepCtx(ctx, b.requeueDelay)
}

func (b *batcher[T]) shutdown(buffer []T) {
	b.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		b.flushSafe(shutdownCtx, buffer)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
