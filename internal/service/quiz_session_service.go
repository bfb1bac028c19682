package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stemsi/kuis-backend/internal/session"
)

// QuizSessionService exposes the session engine to the REST and WebSocket
// handlers.
type QuizSessionService struct {
	manager *session.Manager
}

// NewQuizSessionService creates a new QuizSessionService.
func NewQuizSessionService(manager *session.Manager) *QuizSessionService {
	return &QuizSessionService{manager: manager}
}

// SessionView is what a student receives on entering a quiz.
type SessionView struct {
	Paper   model.QuizPaper            `json:"paper"`
	State   session.StateView          `json:"state"`
	Answers map[uuid.UUID]model.Option `json:"answers"`
}

// SubmitResult is the student-facing outcome of a submission.
type SubmitResult struct {
	Score       int             `json:"score"`
	Correct     int             `json:"correct"`
	Total       int             `json:"total"`
	Trigger     session.Trigger `json:"trigger,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
	// Synced is false when the result is still waiting to be stored.
	Synced      bool            `json:"synced"`
}

// NewSubmitResult flattens an outcome for transport.
func NewSubmitResult(out session.Outcome) SubmitResult {
	return SubmitResult{
		Score:       out.Score,
		Correct:     out.Correct,
		Total:       out.Total,
		Trigger:     out.Trigger,
		CompletedAt: out.CompletedAt,
		Synced:      out.SyncErr == nil,
	}
}

// Controller returns the live session of the pair, opening it if needed.
func (s *QuizSessionService) Controller(ctx context.Context, studentID, quizID uuid.UUID) (*session.Controller, error) {
	return s.manager.Open(ctx, studentID, quizID)
}

// Enter opens the session and returns the paper with current progress.
func (s *QuizSessionService) Enter(ctx context.Context, studentID, quizID uuid.UUID) (*SessionView, error) {
	c, err := s.manager.Open(ctx, studentID, quizID)
	if err != nil {
		return nil, err
	}
	paper, err := c.Paper()
	if err != nil {
		return nil, err
	}
	return &SessionView{Paper: paper, State: c.Snapshot(), Answers: c.Answers()}, nil
}

// Start begins the countdown.
func (s *QuizSessionService) Start(ctx context.Context, studentID, quizID uuid.UUID) (session.StateView, error) {
	c, err := s.manager.Open(ctx, studentID, quizID)
	if err != nil {
		return session.StateView{}, err
	}
	if err := c.Start(ctx); err != nil {
		return session.StateView{}, err
	}
	return c.Snapshot(), nil
}

// Answer records one answer. The raw option is normalized first.
func (s *QuizSessionService) Answer(ctx context.Context, studentID, quizID, questionID uuid.UUID, raw string) (session.StateView, error) {
	opt, ok := model.ParseOption(raw)
	if !ok {
		return session.StateView{}, session.ErrInvalidOption
	}
	c, err := s.manager.Open(ctx, studentID, quizID)
	if err != nil {
		return session.StateView{}, err
	}
	if err := c.RecordAnswer(questionID, opt); err != nil {
		return session.StateView{}, err
	}
	return c.Snapshot(), nil
}

// Submit grades the session. A repeated submit returns the first result
// together with session.ErrAlreadySubmitted.
func (s *QuizSessionService) Submit(ctx context.Context, studentID, quizID uuid.UUID) (*SubmitResult, error) {
	c, err := s.manager.Open(ctx, studentID, quizID)
	if errors.Is(err, session.ErrAlreadyCompleted) && c != nil {
		if out, ok := c.Outcome(); ok {
			res := NewSubmitResult(out)
			return &res, session.ErrAlreadySubmitted
		}
	}
	if err != nil {
		return nil, err
	}

	out, err := c.Submit(ctx, session.TriggerManual)
	if err != nil && !errors.Is(err, session.ErrAlreadySubmitted) {
		return nil, err
	}
	res := NewSubmitResult(out)
	return &res, err
}

// Observe passes a client environment event to the integrity guard.
func (s *QuizSessionService) Observe(ctx context.Context, studentID, quizID uuid.UUID, ev model.IntegrityEvent) (session.Reaction, error) {
	c, err := s.manager.Open(ctx, studentID, quizID)
	if err != nil {
		return session.Reaction{}, err
	}
	return c.Observe(ctx, ev), nil
}

// State returns the session state. Completed quizzes report their score.
func (s *QuizSessionService) State(ctx context.Context, studentID, quizID uuid.UUID) (session.StateView, error) {
	c, err := s.manager.Open(ctx, studentID, quizID)
	if errors.Is(err, session.ErrAlreadyCompleted) && c != nil {
		return c.Snapshot(), nil
	}
	if err != nil {
		return session.StateView{}, err
	}
	return c.Snapshot(), nil
}
