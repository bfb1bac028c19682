package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/kuis-backend/internal/model"
)

// AnswerRepository handles quiz answer data access.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

const insertAnswerSQL = `INSERT INTO quiz_answers (attempt_id, question_id, answer, is_correct)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (attempt_id, question_id) DO NOTHING`

// InsertAnswers writes one row per record. Rows are write-once: an existing
// (attempt, question) row is left untouched. The records are first sent as
// one batch; a batch runs as a single implicit transaction, so if it fails
// every row is retried on its own and the failures are joined. Rows that
// were written are never undone.
func (r *AnswerRepository) InsertAnswers(ctx context.Context, attemptID uuid.UUID, records []model.AnswerRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(insertAnswerSQL, attemptID, rec.QuestionID, string(rec.Answer), rec.IsCorrect)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err == nil {
		return nil
	}

	var errs []error
	for _, rec := range records {
		if _, err := r.pool.Exec(ctx, insertAnswerSQL, attemptID, rec.QuestionID, string(rec.Answer), rec.IsCorrect); err != nil {
			errs = append(errs, fmt.Errorf("answer %s: %w", rec.QuestionID, err))
		}
	}
	return errors.Join(errs...)
}

// ListByAttempt returns the graded answers of an attempt with their
// questions, in question order.
func (r *AnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerReview, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT qa.question_id, qq.prompt, qa.answer, qq.correct_option, qa.is_correct
		 FROM quiz_answers qa
		 JOIN quiz_questions qq ON qq.id = qa.question_id
		 WHERE qa.attempt_id = $1
		 ORDER BY qq.created_at, qq.id`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []model.AnswerReview{}
	for rows.Next() {
		var rv model.AnswerReview
		var answer, correct string
		if err := rows.Scan(&rv.QuestionID, &rv.Prompt, &answer, &correct, &rv.IsCorrect); err != nil {
			return nil, err
		}
		rv.Answer = model.Option(answer)
		rv.CorrectOption = model.Option(correct)
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}
