package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerRecord is the write-once graded answer for one question of an attempt.
type AnswerRecord struct {
	ID         uuid.UUID `json:"id"`
	AttemptID  uuid.UUID `json:"attempt_id"`
	QuestionID uuid.UUID `json:"question_id"`
	// Answer is empty when the question was left blank.
	Answer     Option    `json:"answer"`
	IsCorrect  bool      `json:"is_correct"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordAnswerRequest is the payload for answering one question.
type RecordAnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Answer     string    `json:"answer" binding:"required,quiz_option"`
}

// AnswerReview is a graded answer shown to the quiz owner.
type AnswerReview struct {
	QuestionID    uuid.UUID `json:"question_id"`
	Prompt        string    `json:"prompt"`
	Answer        Option    `json:"answer"`
	CorrectOption Option    `json:"correct_option"`
	IsCorrect     bool      `json:"is_correct"`
}
