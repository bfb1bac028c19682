package cache

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/kuis-backend/internal/config"
	"github.com/stemsi/kuis-backend/internal/session"
)

// Monitor publishes session events on the per-quiz Redis channel.
type Monitor struct {
	rdb *redis.Client
}

// NewMonitor creates a new Monitor.
func NewMonitor(rdb *redis.Client) *Monitor {
	return &Monitor{rdb: rdb}
}

// Publish sends ev to everyone watching the quiz.
func (m *Monitor) Publish(ctx context.Context, quizID uuid.UUID, ev session.MonitorEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return m.rdb.Publish(ctx, config.CacheKey.QuizMonitorChannel(quizID.String()), raw).Err()
}

// Subscribe opens a subscription to the quiz channel. The caller closes it.
func (m *Monitor) Subscribe(ctx context.Context, quizID uuid.UUID) *redis.PubSub {
	return m.rdb.Subscribe(ctx, config.CacheKey.QuizMonitorChannel(quizID.String()))
}
