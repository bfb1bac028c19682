package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/kuis-backend/internal/model"
)

// AttemptRepository handles quiz attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, quiz_id, student_id, started_at, completed_at, score, question_order`

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	a := &model.Attempt{}
	var order []byte
	if err := row.Scan(&a.ID, &a.QuizID, &a.StudentID, &a.StartedAt, &a.CompletedAt, &a.Score, &order); err != nil {
		return nil, err
	}
	if len(order) > 0 {
		if err := json.Unmarshal(order, &a.QuestionOrder); err != nil {
			return nil, fmt.Errorf("decode question order: %w", err)
		}
	}
	return a, nil
}

// FindAttempt returns the student's attempt on a quiz, or nil when there is none.
func (r *AttemptRepository) FindAttempt(ctx context.Context, studentID, quizID uuid.UUID) (*model.Attempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts
		 WHERE quiz_id = $1 AND student_id = $2`, quizID, studentID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// GetByID retrieves an attempt by ID. Returns model.ErrNotFound if absent.
func (r *AttemptRepository) GetByID(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts WHERE id = $1`, attemptID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return a, err
}

// CreateAttempt inserts the attempt with score 0. If a concurrent request
// already created it, the existing row is returned instead.
func (r *AttemptRepository) CreateAttempt(ctx context.Context, studentID, quizID uuid.UUID, startedAt time.Time) (*model.Attempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`INSERT INTO quiz_attempts (quiz_id, student_id, started_at, score)
		 VALUES ($1, $2, $3, 0)
		 ON CONFLICT (quiz_id, student_id) DO NOTHING
		 RETURNING `+attemptColumns,
		quizID, studentID, startedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		existing, ferr := r.FindAttempt(ctx, studentID, quizID)
		if ferr != nil {
			return nil, ferr
		}
		if existing == nil {
			return nil, model.ErrNotFound
		}
		return existing, nil
	}
	return a, err
}

// CompleteAttempt records the final score. Completing an already completed
// attempt is a no-op so retries never overwrite the first result.
func (r *AttemptRepository) CompleteAttempt(ctx context.Context, attemptID uuid.UUID, score int, completedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quiz_attempts
		 SET score = $2, completed_at = $3
		 WHERE id = $1 AND completed_at IS NULL`,
		attemptID, score, completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM quiz_attempts WHERE id = $1)`, attemptID,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return model.ErrNotFound
	}
	return nil
}

// ListByQuiz retrieves the attempts of a quiz for the results page, highest
// score first, with pagination.
func (r *AttemptRepository) ListByQuiz(ctx context.Context, quizID uuid.UUID, page, perPage int) ([]model.AttemptResult, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quiz_attempts WHERE quiz_id = $1`, quizID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, score, started_at, completed_at
		 FROM quiz_attempts
		 WHERE quiz_id = $1
		 ORDER BY completed_at IS NULL, score DESC, completed_at ASC
		 LIMIT $2 OFFSET $3`, quizID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results := []model.AttemptResult{}
	for rows.Next() {
		var ar model.AttemptResult
		if err := rows.Scan(&ar.AttemptID, &ar.StudentID, &ar.Score, &ar.StartedAt, &ar.CompletedAt); err != nil {
			return nil, 0, err
		}
		if ar.CompletedAt != nil {
			secs := int64(ar.CompletedAt.Sub(ar.StartedAt).Seconds())
			ar.DurationSeconds = &secs
		}
		results = append(results, ar)
	}
	return results, total, rows.Err()
}
