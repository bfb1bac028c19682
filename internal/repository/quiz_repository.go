package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/kuis-backend/internal/model"
)

// QuizRepository handles quiz and question data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

const quizColumns = `id, title, description, class_id, teacher_id, time_limit_minutes,
	shuffle_questions, is_published, created_at, updated_at`

// GetQuiz retrieves a quiz by ID. Returns model.ErrNotFound if absent.
func (r *QuizRepository) GetQuiz(ctx context.Context, quizID uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, quizID,
	).Scan(&q.ID, &q.Title, &q.Description, &q.ClassID, &q.TeacherID, &q.TimeLimitMinutes,
		&q.ShuffleQuestions, &q.IsPublished, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListQuestions retrieves all questions of a quiz in stored order.
func (r *QuizRepository) ListQuestions(ctx context.Context, quizID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id, prompt, option_a, option_b, option_c, option_d,
		        correct_option, points, image_url, created_at
		 FROM quiz_questions WHERE quiz_id = $1
		 ORDER BY created_at, id`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var correct string
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Prompt, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&correct, &q.Points, &q.ImageURL, &q.CreatedAt); err != nil {
			return nil, err
		}
		q.CorrectOption, _ = model.ParseOption(correct)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListPublishedByClass lists the published quizzes of a class together with
// the student's progress on each, newest first.
func (r *QuizRepository) ListPublishedByClass(ctx context.Context, classID, studentID uuid.UUID) ([]model.LobbyQuiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.title, q.description, q.class_id, q.teacher_id, q.time_limit_minutes,
		        q.shuffle_questions, q.is_published, q.created_at, q.updated_at,
		        a.id IS NOT NULL, a.completed_at IS NOT NULL, a.score
		 FROM quizzes q
		 LEFT JOIN quiz_attempts a ON a.quiz_id = q.id AND a.student_id = $2
		 WHERE q.class_id = $1 AND q.is_published = TRUE
		 ORDER BY q.created_at DESC`, classID, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quizzes := []model.LobbyQuiz{}
	for rows.Next() {
		var lq model.LobbyQuiz
		var started, completed bool
		var score *int
		if err := rows.Scan(&lq.ID, &lq.Title, &lq.Description, &lq.ClassID, &lq.TeacherID, &lq.TimeLimitMinutes,
			&lq.ShuffleQuestions, &lq.IsPublished, &lq.CreatedAt, &lq.UpdatedAt,
			&started, &completed, &score); err != nil {
			return nil, err
		}
		switch {
		case completed:
			lq.Status = model.LobbyStatusCompleted
			lq.Score = score
		case started:
			lq.Status = model.LobbyStatusInProgress
		default:
			lq.Status = model.LobbyStatusAvailable
		}
		quizzes = append(quizzes, lq)
	}
	return quizzes, rows.Err()
}
