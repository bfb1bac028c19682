package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resultStore struct {
	quizzes  map[uuid.UUID]*model.Quiz
	attempts map[uuid.UUID]*model.Attempt
	answers  map[uuid.UUID][]model.AnswerReview
	// last paging request seen by ListByQuiz
	page, perPage int
}

func (s *resultStore) GetQuiz(_ context.Context, quizID uuid.UUID) (*model.Quiz, error) {
	q, ok := s.quizzes[quizID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return q, nil
}

func (s *resultStore) GetByID(_ context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	a, ok := s.attempts[attemptID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return a, nil
}

func (s *resultStore) ListByQuiz(_ context.Context, quizID uuid.UUID, page, perPage int) ([]model.AttemptResult, int64, error) {
	s.page, s.perPage = page, perPage
	var out []model.AttemptResult
	for _, a := range s.attempts {
		if a.QuizID == quizID {
			out = append(out, model.AttemptResult{AttemptID: a.ID, StudentID: a.StudentID, Score: a.Score})
		}
	}
	return out, int64(len(out)), nil
}

func (s *resultStore) ListByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.AnswerReview, error) {
	return s.answers[attemptID], nil
}

func newResultFixture() (*ResultService, *resultStore, *model.Quiz, *model.Attempt) {
	quiz := &model.Quiz{ID: uuid.New(), TeacherID: uuid.New(), Title: "Kuis"}
	attempt := &model.Attempt{ID: uuid.New(), QuizID: quiz.ID, StudentID: uuid.New(), Score: 75}
	store := &resultStore{
		quizzes:  map[uuid.UUID]*model.Quiz{quiz.ID: quiz},
		attempts: map[uuid.UUID]*model.Attempt{attempt.ID: attempt},
		answers: map[uuid.UUID][]model.AnswerReview{
			attempt.ID: {{QuestionID: uuid.New(), Answer: model.OptionB, IsCorrect: true}},
		},
	}
	return NewResultService(store, store, store), store, quiz, attempt
}

func TestListResults(t *testing.T) {
	svc, store, quiz, attempt := newResultFixture()

	res, err := svc.ListResults(context.Background(), quiz.ID, quiz.TeacherID, 2, 25)
	require.NoError(t, err)
	assert.Equal(t, quiz.ID, res.Quiz.ID)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, attempt.ID, res.Attempts[0].AttemptID)
	assert.EqualValues(t, 1, res.Total)
	assert.Equal(t, 2, store.page)
	assert.Equal(t, 25, store.perPage)
}

func TestListResultsRequiresOwner(t *testing.T) {
	svc, _, quiz, _ := newResultFixture()

	_, err := svc.ListResults(context.Background(), quiz.ID, uuid.New(), 1, 10)
	assert.ErrorIs(t, err, ErrNotQuizOwner)

	_, err = svc.ListResults(context.Background(), uuid.New(), quiz.TeacherID, 1, 10)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetAttemptAnswers(t *testing.T) {
	svc, _, quiz, attempt := newResultFixture()
	ctx := context.Background()

	review, err := svc.GetAttemptAnswers(ctx, attempt.ID, quiz.TeacherID)
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, review.Attempt.ID)
	require.Len(t, review.Answers, 1)
	assert.True(t, review.Answers[0].IsCorrect)

	_, err = svc.GetAttemptAnswers(ctx, attempt.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotQuizOwner)

	_, err = svc.GetAttemptAnswers(ctx, uuid.New(), quiz.TeacherID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
