package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/kuis-backend/internal/middleware"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stemsi/kuis-backend/internal/service"
	"github.com/stemsi/kuis-backend/internal/session"
	"github.com/stemsi/kuis-backend/internal/validator"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Setup()
	os.Exit(m.Run())
}

// memStore is an in-memory stand-in for every repository the handlers reach.
type memStore struct {
	mu        sync.Mutex
	quizzes   map[uuid.UUID]*model.Quiz
	questions map[uuid.UUID][]model.Question
	attempts  map[uuid.UUID]*model.Attempt
	answers   map[uuid.UUID][]model.AnswerRecord
	lobby     []model.LobbyQuiz
}

func newMemStore() *memStore {
	return &memStore{
		quizzes:   make(map[uuid.UUID]*model.Quiz),
		questions: make(map[uuid.UUID][]model.Question),
		attempts:  make(map[uuid.UUID]*model.Attempt),
		answers:   make(map[uuid.UUID][]model.AnswerRecord),
	}
}

// addQuiz stores an untimed, unshuffled quiz with one question per key.
func (s *memStore) addQuiz(teacherID uuid.UUID, keys ...model.Option) *model.Quiz {
	q := &model.Quiz{ID: uuid.New(), Title: "Kuis", TeacherID: teacherID, ClassID: uuid.New(), IsPublished: true}
	s.quizzes[q.ID] = q
	for i, k := range keys {
		s.questions[q.ID] = append(s.questions[q.ID], model.Question{
			ID:            uuid.New(),
			QuizID:        q.ID,
			Prompt:        "Soal",
			OptionA:       "a",
			OptionB:       "b",
			OptionC:       "c",
			OptionD:       "d",
			CorrectOption: k,
			Points:        1,
			CreatedAt:     time.Unix(int64(i), 0),
		})
	}
	return q
}

func (s *memStore) GetQuiz(_ context.Context, quizID uuid.UUID) (*model.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *memStore) ListQuestions(_ context.Context, quizID uuid.UUID) ([]model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Question(nil), s.questions[quizID]...), nil
}

func (s *memStore) FindAttempt(_ context.Context, studentID, quizID uuid.UUID) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.StudentID == studentID && a.QuizID == quizID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateAttempt(ctx context.Context, studentID, quizID uuid.UUID, startedAt time.Time) (*model.Attempt, error) {
	if a, _ := s.FindAttempt(ctx, studentID, quizID); a != nil {
		return a, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &model.Attempt{ID: uuid.New(), QuizID: quizID, StudentID: studentID, StartedAt: startedAt}
	s.attempts[a.ID] = a
	cp := *a
	return &cp, nil
}

func (s *memStore) CompleteAttempt(_ context.Context, attemptID uuid.UUID, score int, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return model.ErrNotFound
	}
	if a.CompletedAt == nil {
		a.Score = score
		a.CompletedAt = &completedAt
	}
	return nil
}

func (s *memStore) GetByID(_ context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) ListByQuiz(_ context.Context, quizID uuid.UUID, page, perPage int) ([]model.AttemptResult, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AttemptResult
	for _, a := range s.attempts {
		if a.QuizID == quizID {
			out = append(out, model.AttemptResult{
				AttemptID:   a.ID,
				StudentID:   a.StudentID,
				Score:       a.Score,
				StartedAt:   a.StartedAt,
				CompletedAt: a.CompletedAt,
			})
		}
	}
	return out, int64(len(out)), nil
}

func (s *memStore) InsertAnswers(_ context.Context, attemptID uuid.UUID, records []model.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[attemptID] = append(s.answers[attemptID], records...)
	return nil
}

func (s *memStore) ListByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.AnswerReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AnswerReview
	for _, r := range s.answers[attemptID] {
		out = append(out, model.AnswerReview{QuestionID: r.QuestionID, Answer: r.Answer, IsCorrect: r.IsCorrect})
	}
	return out, nil
}

func (s *memStore) ListPublishedByClass(_ context.Context, _, _ uuid.UUID) ([]model.LobbyQuiz, error) {
	return s.lobby, nil
}

// env wires real services over a memStore.
type env struct {
	store   *memStore
	manager *session.Manager
	portal  *StudentPortalHandler
	quiz    *QuizHandler
	ws      *WSHandler
}

func newEnv() *env {
	store := newMemStore()
	manager := session.NewManager(session.Deps{
		Quizzes:  store,
		Attempts: store,
		Answers:  store,
		Logger:   zerolog.Nop(),
	})
	sessions := service.NewQuizSessionService(manager)
	results := service.NewResultService(store, store, store)
	return &env{
		store:   store,
		manager: manager,
		portal:  NewStudentPortalHandler(service.NewLobbyService(store), sessions, zerolog.Nop()),
		quiz:    NewQuizHandler(results, zerolog.Nop()),
		ws:      NewWSHandler(sessions, zerolog.Nop(), nil),
	}
}

func claimsFor(userID uuid.UUID, role service.Role) *service.Claims {
	return &service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()},
		Role:             role,
	}
}

// as authenticates every request of the router as claims.
func as(claims *service.Claims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, claims)
		c.Next()
	}
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
