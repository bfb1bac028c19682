package model

import (
	"time"

	"github.com/google/uuid"
)

// Quiz is a teacher-authored quiz owned by a class.
type Quiz struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Description      *string   `json:"description,omitempty"`
	ClassID          uuid.UUID `json:"class_id"`
	TeacherID        uuid.UUID `json:"teacher_id"`
	// TimeLimitMinutes is nil for quizzes without a time limit.
	TimeLimitMinutes *int      `json:"time_limit_minutes,omitempty"`
	ShuffleQuestions bool      `json:"shuffle_questions"`
	IsPublished      bool      `json:"is_published"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TimeLimit returns the configured limit and whether one is set at all.
// Non-positive limits count as unlimited.
func (q *Quiz) TimeLimit() (time.Duration, bool) {
	if q.TimeLimitMinutes == nil || *q.TimeLimitMinutes <= 0 {
		return 0, false
	}
	return time.Duration(*q.TimeLimitMinutes) * time.Minute, true
}

// QuizPaper is what a student receives when entering a quiz session.
type QuizPaper struct {
	QuizID           uuid.UUID            `json:"quiz_id"`
	Title            string               `json:"title"`
	Description      *string              `json:"description,omitempty"`
	TimeLimitMinutes *int                 `json:"time_limit_minutes,omitempty"`
	Questions        []QuestionForStudent `json:"questions"`
}

// LobbyStatus is the per-student status of a quiz in the class lobby.
type LobbyStatus string

const (
	LobbyStatusAvailable  LobbyStatus = "available"
	LobbyStatusInProgress LobbyStatus = "in_progress"
	LobbyStatusCompleted  LobbyStatus = "completed"
)

// LobbyQuiz is a published quiz as displayed in a student's class lobby.
type LobbyQuiz struct {
	Quiz
	Status LobbyStatus `json:"status"`
	Score  *int        `json:"score,omitempty"`
}
