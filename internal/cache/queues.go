package cache

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/kuis-backend/internal/config"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stemsi/kuis-backend/internal/session"
)

// ResultQueue hands failed submission writes to the result worker.
type ResultQueue struct {
	rdb *redis.Client
}

// NewResultQueue creates a new ResultQueue.
func NewResultQueue(rdb *redis.Client) *ResultQueue {
	return &ResultQueue{rdb: rdb}
}

// EnqueueResult pushes p onto the results queue.
func (q *ResultQueue) EnqueueResult(ctx context.Context, p session.ResultPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err()
}

// IntegrityQueue buffers integrity violations for the integrity worker.
type IntegrityQueue struct {
	rdb *redis.Client
}

// NewIntegrityQueue creates a new IntegrityQueue.
func NewIntegrityQueue(rdb *redis.Client) *IntegrityQueue {
	return &IntegrityQueue{rdb: rdb}
}

// RecordViolation pushes v onto the integrity queue.
func (q *IntegrityQueue) RecordViolation(ctx context.Context, v model.IntegrityViolation) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistIntegrityQueue, raw).Err()
}

// QueueDepths reports the length of every worker queue.
func QueueDepths(ctx context.Context, rdb *redis.Client) (map[string]int64, error) {
	names := []string{
		config.WorkerKey.PersistResultsQueue,
		config.WorkerKey.PersistIntegrityQueue,
		config.WorkerKey.PersistQuestionOrderQueue,
	}

	pipe := rdb.Pipeline()
	cmds := make([]*redis.IntCmd, len(names))
	for i, name := range names {
		cmds[i] = pipe.LLen(ctx, name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	depths := make(map[string]int64, len(names))
	for i, name := range names {
		depths[name] = cmds[i].Val()
	}
	return depths, nil
}
