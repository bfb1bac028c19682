package worker

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stemsi/kuis-backend/internal/cache"
	"github.com/stemsi/kuis-backend/internal/config"
)

// QuestionOrderWorker copies shuffled question orders onto attempt rows so
// they survive Redis eviction.
type QuestionOrderWorker struct {
	pool *pgxpool.Pool
	b    *batcher[cache.QuestionOrderPayload]
	log  zerolog.Logger
}

func NewQuestionOrderWorker(pool *pgxpool.Pool, src queue, log zerolog.Logger) *QuestionOrderWorker {
	w := &QuestionOrderWorker{
		pool: pool,
		log:  log.With().Str("component", "question_order_worker").Logger(),
	}
	w.b = &batcher[cache.QuestionOrderPayload]{
		name:         "question_order",
		key:          config.WorkerKey.PersistQuestionOrderQueue,
		src:          src,
		size:         BatchSize,
		timeout:      BatchTimeout,
		requeueDelay: BatchTimeout,
		flush:        w.flush,
		log:          w.log,
	}
	return w
}

func (w *QuestionOrderWorker) Start(ctx context.Context) {
	w.b.run(ctx)
}

// flush only touches existing attempts. An order queued before its attempt
// row exists matches nothing; the session queues it again once the row is
// created.
func (w *QuestionOrderWorker) flush(ctx context.Context, batch []cache.QuestionOrderPayload) []cache.QuestionOrderPayload {
	err := w.bulkUpdate(ctx, batch)
	if err == nil {
		return nil
	}
	w.log.Warn().Err(err).Msg("bulk question order update failed, using fallback")

	var failed []cache.QuestionOrderPayload
	for _, p := range batch {
		ob, _ := json.Marshal(p.Order)
		_, err := w.pool.Exec(ctx,
			`UPDATE quiz_attempts
			 SET question_order = $1
			 WHERE quiz_id = $2 AND student_id = $3`,
			ob, p.QuizID, p.StudentID,
		)
		if err != nil {
			w.log.Error().Err(err).Str("quiz_id", p.QuizID.String()).Msg("Question order update failed, requeueing")
			failed = append(failed, p)
		}
	}
	return failed
}

func (w *QuestionOrderWorker) bulkUpdate(ctx context.Context, batch []cache.QuestionOrderPayload) error {
	n := len(batch)
	quizIDs := make([]uuid.UUID, 0, n)
	students := make([]uuid.UUID, 0, n)
	orders := make([][]byte, 0, n)

	for _, p := range batch {
		ob, _ := json.Marshal(p.Order)
		quizIDs = append(quizIDs, p.QuizID)
		students = append(students, p.StudentID)
		orders = append(orders, ob)
	}

	query := `
		UPDATE quiz_attempts AS a
		SET question_order = t.qo
		FROM (
			SELECT u.quiz_id, u.student_id, u.qo
			FROM UNNEST(
				$1::uuid[],
				$2::uuid[],
				$3::jsonb[]
			) AS u (quiz_id, student_id, qo)
		) AS t
		WHERE a.quiz_id = t.quiz_id
		  AND a.student_id = t.student_id
	`
	_, err := w.pool.Exec(ctx, query, quizIDs, students, orders)
	return err
}
