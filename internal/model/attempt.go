package model

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is one student's single permitted run of a quiz (quiz_attempts row).
type Attempt struct {
	ID            uuid.UUID   `json:"id"`
	QuizID        uuid.UUID   `json:"quiz_id"`
	StudentID     uuid.UUID   `json:"student_id"`
	StartedAt     time.Time   `json:"started_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
	Score         int         `json:"score"`
	QuestionOrder []uuid.UUID `json:"question_order,omitempty"`
}

// IsCompleted reports whether the attempt has been graded.
func (a *Attempt) IsCompleted() bool {
	return a != nil && a.CompletedAt != nil
}

// AttemptResult is an attempt as listed on the teacher's results page.
type AttemptResult struct {
	AttemptID   uuid.UUID  `json:"attempt_id"`
	StudentID   uuid.UUID  `json:"student_id"`
	Score       int        `json:"score"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// DurationSeconds is only set for completed attempts.
	DurationSeconds *int64 `json:"duration_seconds,omitempty"`
}
