package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/model"
)

// LobbyRepository lists a class's published quizzes with student progress.
type LobbyRepository interface {
	ListPublishedByClass(ctx context.Context, classID, studentID uuid.UUID) ([]model.LobbyQuiz, error)
}

// LobbyService builds the student's quiz list.
type LobbyService struct {
	quizRepo LobbyRepository
}

// NewLobbyService creates a new LobbyService.
func NewLobbyService(quizRepo LobbyRepository) *LobbyService {
	return &LobbyService{quizRepo: quizRepo}
}

// GetLobby returns the published quizzes of a class with the student's status
// on each.
func (s *LobbyService) GetLobby(ctx context.Context, classID, studentID uuid.UUID) ([]model.LobbyQuiz, error) {
	quizzes, err := s.quizRepo.ListPublishedByClass(ctx, classID, studentID)
	if err != nil {
		return nil, fmt.Errorf("list class quizzes: %w", err)
	}
	return quizzes, nil
}
