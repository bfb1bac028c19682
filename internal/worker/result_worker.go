package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stemsi/kuis-backend/internal/config"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stemsi/kuis-backend/internal/session"
)

// MaxResultRetries is how many times a result is requeued before it is
// dropped with an error log.
const MaxResultRetries = 20

// ResultWorker replays submissions whose writes failed at submit time.
type ResultWorker struct {
	pool     *pgxpool.Pool
	attempts session.AttemptRepository
	answers  session.AnswerRepository
	b        *batcher[session.ResultPayload]
	log      zerolog.Logger
}

// NewResultWorker creates a ResultWorker. pool may be nil, in which case
// every result takes the row-by-row path.
func NewResultWorker(pool *pgxpool.Pool, src queue, attempts session.AttemptRepository, answers session.AnswerRepository, retryDelay time.Duration, log zerolog.Logger) *ResultWorker {
	w := &ResultWorker{
		pool:     pool,
		attempts: attempts,
		answers:  answers,
		log:      log.With().Str("component", "result_worker").Logger(),
	}
	w.b = &batcher[session.ResultPayload]{
		name:         "result",
		key:          config.WorkerKey.PersistResultsQueue,
		src:          src,
		size:         BatchSize,
		timeout:      BatchTimeout,
		requeueDelay: retryDelay,
		flush:        w.flush,
		log:          w.log,
	}
	return w
}

// Start runs the worker loop until ctx is cancelled. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.b.run(ctx)
}

func (w *ResultWorker) flush(ctx context.Context, batch []session.ResultPayload) []session.ResultPayload {
	if w.pool != nil {
		if err := w.bulkComplete(ctx, batch); err != nil {
			w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk completion failed, replaying row-by-row")
		}
	}

	var failed []session.ResultPayload
	for _, p := range batch {
		if err := w.replay(ctx, p); err != nil {
			p.Retries++
			if p.Retries > MaxResultRetries {
				w.log.Error().Err(err).
					Str("quiz_id", p.QuizID.String()).
					Str("student_id", p.StudentID.String()).
					Int("score", p.Score).
					Msg("Dropping result after too many retries")
				continue
			}
			w.log.Error().Err(err).Str("student_id", p.StudentID.String()).Msg("Result replay failed, requeueing")
			failed = append(failed, p)
		}
	}
	return failed
}

// bulkComplete closes every attempt in the batch that already has an id in
// one statement. Completed rows are left untouched.
func (w *ResultWorker) bulkComplete(ctx context.Context, batch []session.ResultPayload) error {
	ids := make([]uuid.UUID, 0, len(batch))
	scores := make([]int32, 0, len(batch))
	completedAts := make([]time.Time, 0, len(batch))
	for _, p := range batch {
		if p.AttemptID == nil {
			continue
		}
		ids = append(ids, *p.AttemptID)
		scores = append(scores, int32(p.Score))
		completedAts = append(completedAts, p.CompletedAt)
	}
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE quiz_attempts AS a
		SET score = t.score,
		    completed_at = t.completed_at
		FROM (
			SELECT u.id, u.score, u.completed_at
			FROM UNNEST(
				$1::uuid[],
				$2::int[],
				$3::timestamptz[]
			) AS u (id, score, completed_at)
		) AS t
		WHERE a.id = t.id
		  AND a.completed_at IS NULL
	`
	_, err := w.pool.Exec(ctx, query, ids, scores, completedAts)
	return err
}

// replay performs every write of one submission. Each step is idempotent,
// so a partially applied payload can be replayed safely.
func (w *ResultWorker) replay(ctx context.Context, p session.ResultPayload) error {
	var attemptID uuid.UUID
	if p.AttemptID != nil {
		attemptID = *p.AttemptID
	} else {
		a, err := w.attempts.CreateAttempt(ctx, p.StudentID, p.QuizID, p.StartedAt)
		if err != nil {
			return fmt.Errorf("create attempt: %w", err)
		}
		attemptID = a.ID
	}

	var errs []error
	if err := w.attempts.CompleteAttempt(ctx, attemptID, p.Score, p.CompletedAt); err != nil {
		errs = append(errs, fmt.Errorf("complete attempt: %w", err))
	}

	records := make([]model.AnswerRecord, len(p.Answers))
	for i, a := range p.Answers {
		records[i] = model.AnswerRecord{
			AttemptID:  attemptID,
			QuestionID: a.QuestionID,
			Answer:     a.Answer,
			IsCorrect:  a.IsCorrect,
		}
	}
	if err := w.answers.InsertAnswers(ctx, attemptID, records); err != nil {
		errs = append(errs, fmt.Errorf("insert answers: %w", err))
	}
	return errors.Join(errs...)
}
