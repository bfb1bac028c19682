package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/model"
)

// ErrNotQuizOwner is returned when a teacher asks for another teacher's quiz.
var ErrNotQuizOwner = errors.New("quiz belongs to another teacher")

// QuizReader loads quiz metadata.
type QuizReader interface {
	GetQuiz(ctx context.Context, quizID uuid.UUID) (*model.Quiz, error)
}

// AttemptReader lists and loads attempts.
type AttemptReader interface {
	GetByID(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error)
	ListByQuiz(ctx context.Context, quizID uuid.UUID, page, perPage int) ([]model.AttemptResult, int64, error)
}

// AnswerReader loads the graded answers of an attempt.
type AnswerReader interface {
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerReview, error)
}

// ResultService serves quiz results to the teacher who owns the quiz.
type ResultService struct {
	quizRepo    QuizReader
	attemptRepo AttemptReader
	answerRepo  AnswerReader
}

// NewResultService creates a new ResultService.
func NewResultService(quizRepo QuizReader, attemptRepo AttemptReader, answerRepo AnswerReader) *ResultService {
	return &ResultService{quizRepo: quizRepo, attemptRepo: attemptRepo, answerRepo: answerRepo}
}

// QuizResults is one page of a quiz's attempts.
type QuizResults struct {
	Quiz     *model.Quiz           `json:"quiz"`
	Attempts []model.AttemptResult `json:"attempts"`
	Total    int64                 `json:"-"`
}

// ListResults returns a page of attempts on a quiz owned by teacherID.
func (s *ResultService) ListResults(ctx context.Context, quizID, teacherID uuid.UUID, page, perPage int) (*QuizResults, error) {
	quiz, err := s.OwnedQuiz(ctx, quizID, teacherID)
	if err != nil {
		return nil, err
	}

	attempts, total, err := s.attemptRepo.ListByQuiz(ctx, quizID, page, perPage)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return &QuizResults{Quiz: quiz, Attempts: attempts, Total: total}, nil
}

// AttemptReview is an attempt with its graded answers.
type AttemptReview struct {
	Attempt *model.Attempt       `json:"attempt"`
	Answers []model.AnswerReview `json:"answers"`
}

// GetAttemptAnswers returns the graded answers of an attempt on a quiz owned
// by teacherID.
func (s *ResultService) GetAttemptAnswers(ctx context.Context, attemptID, teacherID uuid.UUID) (*AttemptReview, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if _, err := s.OwnedQuiz(ctx, attempt.QuizID, teacherID); err != nil {
		return nil, err
	}

	answers, err := s.answerRepo.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return &AttemptReview{Attempt: attempt, Answers: answers}, nil
}

// OwnedQuiz loads a quiz and checks that teacherID authored it.
func (s *ResultService) OwnedQuiz(ctx context.Context, quizID, teacherID uuid.UUID) (*model.Quiz, error) {
	quiz, err := s.quizRepo.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.TeacherID != teacherID {
		return nil, ErrNotQuizOwner
	}
	return quiz, nil
}
