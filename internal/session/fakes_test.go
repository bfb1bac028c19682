package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/model"
)

var errStorage = errors.New("storage unavailable")

type fakeQuizRepo struct {
	quizzes   map[uuid.UUID]*model.Quiz
	questions map[uuid.UUID][]model.Question
}

func (f *fakeQuizRepo) GetQuiz(_ context.Context, quizID uuid.UUID) (*model.Quiz, error) {
	q, ok := f.quizzes[quizID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuizRepo) ListQuestions(_ context.Context, quizID uuid.UUID) ([]model.Question, error) {
	qs := f.questions[quizID]
	out := make([]model.Question, len(qs))
	copy(out, qs)
	return out, nil
}

type fakeAttemptRepo struct {
	mu          sync.Mutex
	attempts    map[sessionKey]*model.Attempt
	createErr   error
	completeErr error
	creates     int
	completes   int
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{attempts: make(map[sessionKey]*model.Attempt)}
}

func (f *fakeAttemptRepo) FindAttempt(_ context.Context, studentID, quizID uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[sessionKey{studentID, quizID}]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptRepo) CreateAttempt(_ context.Context, studentID, quizID uuid.UUID, startedAt time.Time) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	a := &model.Attempt{ID: uuid.New(), QuizID: quizID, StudentID: studentID, StartedAt: startedAt}
	f.attempts[sessionKey{studentID, quizID}] = a
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptRepo) CompleteAttempt(_ context.Context, attemptID uuid.UUID, score int, completedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes++
	if f.completeErr != nil {
		return f.completeErr
	}
	for _, a := range f.attempts {
		if a.ID == attemptID && a.CompletedAt == nil {
			a.Score = score
			at := completedAt
			a.CompletedAt = &at
		}
	}
	return nil
}

func (f *fakeAttemptRepo) put(a *model.Attempt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[sessionKey{a.StudentID, a.QuizID}] = a
}

func (f *fakeAttemptRepo) counts() (creates, completes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.completes
}

type fakeAnswerRepo struct {
	mu      sync.Mutex
	inserts int
	records []model.AnswerRecord
	err     error
}

func (f *fakeAnswerRepo) InsertAnswers(_ context.Context, _ uuid.UUID, records []model.AnswerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, records...)
	return nil
}

type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[sessionKey][]uuid.UUID
	saves  int
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[sessionKey][]uuid.UUID)}
}

func (f *fakeOrderStore) Load(_ context.Context, studentID, quizID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[sessionKey{studentID, quizID}], nil
}

func (f *fakeOrderStore) Save(_ context.Context, studentID, quizID uuid.UUID, order []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.orders[sessionKey{studentID, quizID}] = append([]uuid.UUID(nil), order...)
	return nil
}

type fakeBackfill struct {
	mu       sync.Mutex
	payloads []ResultPayload
}

func (f *fakeBackfill) EnqueueResult(_ context.Context, p ResultPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	return nil
}

type fakeRecorder struct {
	mu         sync.Mutex
	violations []model.IntegrityViolation
}

func (f *fakeRecorder) RecordViolation(_ context.Context, v model.IntegrityViolation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.violations = append(f.violations, v)
	return nil
}

func (f *fakeRecorder) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.violations)
}

type fakeNotifier struct {
	mu    sync.Mutex
	warns []string
	infos []string
	ticks []time.Duration
}

func (f *fakeNotifier) Warn(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warns = append(f.warns, msg)
}

func (f *fakeNotifier) Info(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos = append(f.infos, msg)
}

func (f *fakeNotifier) Tick(remaining time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks = append(f.ticks, remaining)
}

func (f *fakeNotifier) snapshot() (warns, infos []string, ticks []time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.warns...), append([]string(nil), f.infos...), append([]time.Duration(nil), f.ticks...)
}

// fakeClock hands every ticker it creates to the test through created.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	created chan *fakeTicker
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, created: make(chan *fakeTicker, 4)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeClock) NewTicker(time.Duration) Ticker {
	t := &fakeTicker{c: make(chan time.Time), stopped: make(chan struct{})}
	f.created <- t
	return t
}

type fakeTicker struct {
	c        chan time.Time
	stopped  chan struct{}
	stopOnce sync.Once
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

// fixture wires a published quiz with four questions whose keys are A, B, C, D.
type fixture struct {
	quizID    uuid.UUID
	studentID uuid.UUID
	quiz      *model.Quiz
	questions []model.Question

	quizzes  *fakeQuizRepo
	attempts *fakeAttemptRepo
	answers  *fakeAnswerRepo
	orders   *fakeOrderStore
	backfill *fakeBackfill
	recorder *fakeRecorder
	clock    *fakeClock
}

func newFixture(limitMinutes *int, shuffle bool) *fixture {
	quizID := uuid.New()
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	keys := []model.Option{model.OptionA, model.OptionB, model.OptionC, model.OptionD}
	questions := make([]model.Question, len(keys))
	for i, k := range keys {
		questions[i] = model.Question{
			ID:            uuid.New(),
			QuizID:        quizID,
			Prompt:        "Soal",
			OptionA:       "a",
			OptionB:       "b",
			OptionC:       "c",
			OptionD:       "d",
			CorrectOption: k,
			Points:        1,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
	}

	quiz := &model.Quiz{
		ID:               quizID,
		Title:            "Kuis Matematika",
		ClassID:          uuid.New(),
		TeacherID:        uuid.New(),
		TimeLimitMinutes: limitMinutes,
		ShuffleQuestions: shuffle,
		IsPublished:      true,
	}

	return &fixture{
		quizID:    quizID,
		studentID: uuid.New(),
		quiz:      quiz,
		questions: questions,
		quizzes: &fakeQuizRepo{
			quizzes:   map[uuid.UUID]*model.Quiz{quizID: quiz},
			questions: map[uuid.UUID][]model.Question{quizID: questions},
		},
		attempts: newFakeAttemptRepo(),
		answers:  &fakeAnswerRepo{},
		orders:   newFakeOrderStore(),
		backfill: &fakeBackfill{},
		recorder: &fakeRecorder{},
		clock:    newFakeClock(base.Add(time.Hour)),
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Quizzes:  f.quizzes,
		Attempts: f.attempts,
		Answers:  f.answers,
		Orders:   f.orders,
		Backfill: f.backfill,
		Recorder: f.recorder,
		Clock:    f.clock,
	}
}

func intPtr(v int) *int { return &v }
