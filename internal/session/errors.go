package session

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyCompleted is returned when the student already finished the quiz.
	ErrAlreadyCompleted = errors.New("quiz already completed by this student")
	// ErrQuizUnavailable covers missing, unpublished and empty quizzes.
	ErrQuizUnavailable = errors.New("quiz is not available")
	// ErrInvalidState signals an operation that the current phase does not allow.
	ErrInvalidState = errors.New("operation not allowed in current session state")
	// ErrAlreadySubmitted is returned to the losing side of a submit race.
	ErrAlreadySubmitted = fmt.Errorf("%w: already submitted", ErrInvalidState)
	// ErrUnknownQuestion rejects answers for questions outside the quiz.
	ErrUnknownQuestion = errors.New("question does not belong to this quiz")
	// ErrInvalidOption rejects answers outside A-D.
	ErrInvalidOption = errors.New("answer must be one of A, B, C or D")
)

// PersistOp names the write that failed.
type PersistOp string

const (
	OpCreateAttempt   PersistOp = "create_attempt"
	OpCompleteAttempt PersistOp = "complete_attempt"
	OpInsertAnswers   PersistOp = "insert_answers"
	OpBackfill        PersistOp = "backfill"
)

// PersistenceError reports a storage failure that did not stop the session.
type PersistenceError struct {
	Op  PersistOp
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
