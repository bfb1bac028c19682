package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/kuis-backend/internal/config"
)

// OrderTTL bounds how long a shuffled order is kept in Redis. The attempt
// row keeps its own copy once the order worker has flushed it.
const OrderTTL = 24 * time.Hour

// QuestionOrderPayload is queued for the question order worker.
type QuestionOrderPayload struct {
	QuizID    uuid.UUID   `json:"quiz_id"`
	StudentID uuid.UUID   `json:"student_id"`
	Order     []uuid.UUID `json:"order"`
}

// OrderStore keeps session question orders in Redis.
type OrderStore struct {
	rdb *redis.Client
}

// NewOrderStore creates a new OrderStore.
func NewOrderStore(rdb *redis.Client) *OrderStore {
	return &OrderStore{rdb: rdb}
}

// Load returns the stored order, or nil when none is stored.
func (s *OrderStore) Load(ctx context.Context, studentID, quizID uuid.UUID) ([]uuid.UUID, error) {
	key := config.CacheKey.StudentQuestionOrderKey(quizID.String(), studentID.String())
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeOrder(raw)
}

// Save stores the order and queues it for the attempt row in one pipeline.
func (s *OrderStore) Save(ctx context.Context, studentID, quizID uuid.UUID, order []uuid.UUID) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(QuestionOrderPayload{QuizID: quizID, StudentID: studentID, Order: order})
	if err != nil {
		return err
	}

	key := config.CacheKey.StudentQuestionOrderKey(quizID.String(), studentID.String())
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key, raw, OrderTTL)
	pipe.RPush(ctx, config.WorkerKey.PersistQuestionOrderQueue, payload)
	_, err = pipe.Exec(ctx)
	return err
}

func decodeOrder(raw []byte) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var order []uuid.UUID
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode question order: %w", err)
	}
	return order, nil
}
