package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/model"
)

// QuizRepository reads quiz metadata and questions.
type QuizRepository interface {
	// GetQuiz returns model.ErrNotFound when the quiz does not exist.
	GetQuiz(ctx context.Context, quizID uuid.UUID) (*model.Quiz, error)
	// ListQuestions returns questions in stored order.
	ListQuestions(ctx context.Context, quizID uuid.UUID) ([]model.Question, error)
}

// AttemptRepository stores the one attempt per (student, quiz).
type AttemptRepository interface {
	// FindAttempt returns nil, nil when the student has no attempt yet.
	FindAttempt(ctx context.Context, studentID, quizID uuid.UUID) (*model.Attempt, error)
	CreateAttempt(ctx context.Context, studentID, quizID uuid.UUID, startedAt time.Time) (*model.Attempt, error)
	CompleteAttempt(ctx context.Context, attemptID uuid.UUID, score int, completedAt time.Time) error
}

// AnswerRepository writes graded answers. Implementations must attempt every
// record and report the failed ones without undoing the others.
type AnswerRepository interface {
	InsertAnswers(ctx context.Context, attemptID uuid.UUID, records []model.AnswerRecord) error
}

// Notifier is the fire-and-forget message surface of the UI shell.
type Notifier interface {
	Warn(msg string)
	Info(msg string)
}

// TickNotifier is implemented by notifiers that want countdown updates.
type TickNotifier interface {
	Tick(remaining time.Duration)
}

// OrderStore keeps a session's question permutation so that re-entering
// the quiz does not reshuffle it. Load returns nil when nothing is stored.
type OrderStore interface {
	Load(ctx context.Context, studentID, quizID uuid.UUID) ([]uuid.UUID, error)
	Save(ctx context.Context, studentID, quizID uuid.UUID, order []uuid.UUID) error
}

// Backfill accepts results whose persistence failed, for later retry.
type Backfill interface {
	EnqueueResult(ctx context.Context, p ResultPayload) error
}

// Recorder audits integrity violations. It never influences grading.
type Recorder interface {
	RecordViolation(ctx context.Context, v model.IntegrityViolation) error
}

// Publisher announces session events to live monitors.
type Publisher interface {
	Publish(ctx context.Context, quizID uuid.UUID, ev MonitorEvent) error
}

// MonitorEvent is a join / submit / violation notice for teacher dashboards.
type MonitorEvent struct {
	Type      string    `json:"type"`
	StudentID uuid.UUID `json:"student_id"`
	Score     *int      `json:"score,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// ResultPayload carries everything needed to replay a submission's writes.
type ResultPayload struct {
	AttemptID   *uuid.UUID      `json:"attempt_id,omitempty"`
	QuizID      uuid.UUID       `json:"quiz_id"`
	StudentID   uuid.UUID       `json:"student_id"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
	Score       int             `json:"score"`
	Answers     []AnswerPayload `json:"answers"`
	Retries     int             `json:"retries"`
}

// AnswerPayload is the queued form of one answer record.
type AnswerPayload struct {
	QuestionID uuid.UUID    `json:"question_id"`
	Answer     model.Option `json:"answer"`
	IsCorrect  bool         `json:"is_correct"`
}

type nopNotifier struct{}

func (nopNotifier) Warn(string) {}
func (nopNotifier) Info(string) {}
