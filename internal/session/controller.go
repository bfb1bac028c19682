package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/kuis-backend/internal/metrics"
	"github.com/stemsi/kuis-backend/internal/model"
)

const (
	defaultTickInterval = time.Second
	autoSubmitTimeout   = 30 * time.Second

	msgSubmitted     = "Kuis selesai! Nilai Anda: %d/100"
	msgSubmittedSync = "Kuis sudah terkirim, tetapi terjadi kendala sinkronisasi. Nilai Anda: %d/100"
)

// Deps are the collaborators shared by every controller. Orders, Backfill,
// Recorder and Publisher are optional.
type Deps struct {
	Quizzes   QuizRepository
	Attempts  AttemptRepository
	Answers   AnswerRepository
	Orders    OrderStore
	Backfill  Backfill
	Recorder  Recorder
	Publisher Publisher

	Clock        Clock
	// TickInterval is both the ticker period and the amount taken off the
	// countdown per tick.
	TickInterval time.Duration
	Logger       zerolog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = RealClock{}
	}
	if d.TickInterval <= 0 {
		d.TickInterval = defaultTickInterval
	}
	return d
}

// Outcome is what a submission produced. SyncErr is set when grading
// succeeded but some writes did not; the session is submitted regardless.
type Outcome struct {
	Result
	Trigger     Trigger   `json:"trigger"`
	CompletedAt time.Time `json:"completed_at"`
	SyncErr     error     `json:"-"`
}

// Controller owns one student's session of one quiz.
type Controller struct {
	deps  Deps
	log   zerolog.Logger
	guard *Guard

	mu        sync.Mutex
	studentID uuid.UUID
	quizID    uuid.UUID
	prepared  bool
	quiz      *model.Quiz
	questions []model.Question
	order     []uuid.UUID
	limit     time.Duration
	timed     bool
	state     State
	answers   map[uuid.UUID]model.Option
	notifier  Notifier
	stop      chan struct{}
	done      chan struct{}
	outcome   *Outcome
	closed    bool

	// lastActive is the last time a student used the session.
	lastActive time.Time

	// attemptMu serializes attempt creation between Start and Submit.
	attemptMu sync.Mutex
	attempt   *model.Attempt
}

// NewController returns a controller in NotStarted state. Initialize must be
// called before anything else.
func NewController(deps Deps) *Controller {
	deps = deps.withDefaults()
	return &Controller{
		deps:       deps,
		log:        deps.Logger,
		state:      NotStarted{},
		answers:    make(map[uuid.UUID]model.Option),
		notifier:   nopNotifier{},
		done:       make(chan struct{}),
		lastActive: deps.Clock.Now(),
	}
}

// Initialize loads the quiz for studentID and prepares the question order.
// A repeated call for the same pair returns the cached preparation, or
// ErrAlreadyCompleted once the session has been submitted.
func (c *Controller) Initialize(ctx context.Context, studentID, quizID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = c.deps.Clock.Now()

	if c.prepared || c.outcome != nil {
		if studentID != c.studentID || quizID != c.quizID {
			return ErrInvalidState
		}
		if _, ok := c.state.(Submitted); ok {
			return ErrAlreadyCompleted
		}
		return nil
	}

	c.studentID, c.quizID = studentID, quizID
	c.log = c.deps.Logger.With().
		Str("component", "session_controller").
		Str("quiz_id", quizID.String()).
		Str("student_id", studentID.String()).
		Logger()
	c.guard = newGuard(quizID, studentID, &c.deps, c.log)

	attempt, err := c.deps.Attempts.FindAttempt(ctx, studentID, quizID)
	if err != nil {
		return fmt.Errorf("find attempt: %w", err)
	}
	if attempt.IsCompleted() {
		c.state = Submitted{Score: attempt.Score, CompletedAt: *attempt.CompletedAt}
		c.outcome = &Outcome{
			Result:      Result{Score: attempt.Score},
			CompletedAt: *attempt.CompletedAt,
		}
		close(c.done)
		return ErrAlreadyCompleted
	}

	quiz, err := c.deps.Quizzes.GetQuiz(ctx, quizID)
	if errors.Is(err, model.ErrNotFound) {
		return ErrQuizUnavailable
	}
	if err != nil {
		return fmt.Errorf("get quiz: %w", err)
	}
	if !quiz.IsPublished {
		return ErrQuizUnavailable
	}

	questions, err := c.deps.Quizzes.ListQuestions(ctx, quizID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrQuizUnavailable
	}

	if quiz.ShuffleQuestions {
		if order := c.loadOrder(ctx, attempt); len(order) > 0 {
			questions = ApplyOrder(questions, order)
		} else {
			questions = Shuffle(questions, newSessionRand())
		}
		c.order = QuestionIDs(questions)
		c.saveOrder(ctx)
	}

	c.attemptMu.Lock()
	c.attempt = attempt
	c.attemptMu.Unlock()

	c.quiz = quiz
	c.questions = questions
	c.limit, c.timed = quiz.TimeLimit()
	c.prepared = true

	c.log.Debug().
		Int("questions", len(questions)).
		Bool("shuffled", quiz.ShuffleQuestions).
		Bool("resuming", attempt != nil).
		Msg("Session initialized")
	return nil
}

// loadOrder prefers the order store and falls back to the order persisted on
// the attempt, writing it back to the store.
func (c *Controller) loadOrder(ctx context.Context, attempt *model.Attempt) []uuid.UUID {
	if c.deps.Orders != nil {
		order, err := c.deps.Orders.Load(ctx, c.studentID, c.quizID)
		if err != nil {
			c.log.Warn().Err(err).Msg("Failed to load question order, falling back")
		} else if len(order) > 0 {
			return order
		}
	}
	if attempt != nil && len(attempt.QuestionOrder) > 0 {
		return attempt.QuestionOrder
	}
	return nil
}

func (c *Controller) saveOrder(ctx context.Context) {
	if c.deps.Orders == nil || len(c.order) == 0 {
		return
	}
	if err := c.deps.Orders.Save(ctx, c.studentID, c.quizID, c.order); err != nil {
		c.log.Warn().Err(err).Msg("Failed to save question order")
	}
}

// Start moves the session into InProgress and arms the countdown.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if !c.prepared || c.closed {
		c.mu.Unlock()
		return ErrInvalidState
	}
	if _, ok := c.state.(NotStarted); !ok {
		c.mu.Unlock()
		return ErrInvalidState
	}

	now := c.deps.Clock.Now()
	c.lastActive = now
	startedAt := now
	c.attemptMu.Lock()
	if c.attempt != nil {
		startedAt = c.attempt.StartedAt
	}
	c.attemptMu.Unlock()

	var remaining time.Duration
	if c.timed {
		remaining = c.limit - now.Sub(startedAt)
		if remaining < 0 {
			remaining = 0
		}
	}

	c.state = InProgress{StartedAt: startedAt, TimeRemaining: remaining, Timed: c.timed}
	c.stop = make(chan struct{})
	stop := c.stop
	c.guard.Attach(c.notifier)
	c.mu.Unlock()

	metrics.ActiveSessions.Inc()

	if _, err := c.ensureAttempt(ctx, startedAt); err != nil {
		metrics.PersistenceFailures.WithLabelValues(string(OpCreateAttempt)).Inc()
		c.log.Error().Err(err).Msg("Failed to create attempt, continuing without it")
	} else {
		// The order worker can only attach the order once the row exists.
		c.saveOrder(ctx)
	}

	c.publish(ctx, MonitorEvent{Type: "join", StudentID: c.studentID, At: now})

	if !c.timed {
		return nil
	}
	if remaining <= 0 {
		c.log.Info().Msg("Time already elapsed on resume, submitting")
		c.autoSubmit()
		return nil
	}

	go c.countdown(stop)
	return nil
}

func (c *Controller) countdown(stop <-chan struct{}) {
	ticker := c.deps.Clock.NewTicker(c.deps.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			c.mu.Lock()
			st, ok := c.state.(InProgress)
			if !ok {
				c.mu.Unlock()
				return
			}
			st.TimeRemaining -= c.deps.TickInterval
			if st.TimeRemaining < 0 {
				st.TimeRemaining = 0
			}
			c.state = st
			n := c.notifier
			c.mu.Unlock()

			if tn, ok := n.(TickNotifier); ok {
				tn.Tick(st.TimeRemaining)
			}
			if st.TimeRemaining == 0 {
				c.autoSubmit()
				return
			}
		}
	}
}

func (c *Controller) autoSubmit() {
	ctx, cancel := context.WithTimeout(context.Background(), autoSubmitTimeout)
	defer cancel()

	if _, err := c.Submit(ctx, TriggerTimeout); err != nil && !errors.Is(err, ErrAlreadySubmitted) {
		c.log.Error().Err(err).Msg("Timeout submission failed")
	}
}

// RecordAnswer stores the selected option for a question, replacing any
// earlier choice. Nothing is persisted until submission.
func (c *Controller) RecordAnswer(questionID uuid.UUID, option model.Option) error {
	if !option.Valid() {
		return ErrInvalidOption
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.state.(InProgress); !ok || c.closed {
		return ErrInvalidState
	}
	if !c.hasQuestion(questionID) {
		return ErrUnknownQuestion
	}
	c.lastActive = c.deps.Clock.Now()
	c.answers[questionID] = option
	return nil
}

func (c *Controller) hasQuestion(id uuid.UUID) bool {
	for i := range c.questions {
		if c.questions[i].ID == id {
			return true
		}
	}
	return false
}

// Submit grades the session and persists the result. Only the first call
// grades; later or concurrent calls wait for it and get its outcome along
// with ErrAlreadySubmitted.
func (c *Controller) Submit(ctx context.Context, trigger Trigger) (Outcome, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Outcome{}, ErrInvalidState
	}
	var started InProgress
	switch st := c.state.(type) {
	case InProgress:
		started = st
	case Submitted:
		done := c.done
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		}
		out, _ := c.Outcome()
		return out, ErrAlreadySubmitted
	default:
		c.mu.Unlock()
		return Outcome{}, ErrInvalidState
	}

	now := c.deps.Clock.Now()
	res := Grade(c.questions, c.answers)
	c.state = Submitted{Score: res.Score, CompletedAt: now, Trigger: trigger}
	close(c.stop)
	c.mu.Unlock()

	c.guard.Detach()
	metrics.ActiveSessions.Dec()
	metrics.QuizSubmissions.WithLabelValues(string(trigger)).Inc()

	syncErr := c.persist(ctx, started.StartedAt, now, res)
	out := Outcome{Result: res, Trigger: trigger, CompletedAt: now, SyncErr: syncErr}

	c.mu.Lock()
	c.outcome = &out
	n := c.notifier
	c.mu.Unlock()
	close(c.done)

	logEvent := c.log.Info()
	if syncErr != nil {
		logEvent = c.log.Warn().Err(syncErr)
		n.Warn(fmt.Sprintf(msgSubmittedSync, res.Score))
	} else {
		n.Info(fmt.Sprintf(msgSubmitted, res.Score))
	}
	logEvent.
		Str("trigger", string(trigger)).
		Int("score", res.Score).
		Int("correct", res.Correct).
		Int("total", res.Total).
		Msg("Quiz submitted")

	score := res.Score
	c.publish(ctx, MonitorEvent{Type: "submit", StudentID: c.studentID, Score: &score, Detail: string(trigger), At: now})
	return out, nil
}

// persist writes the completion and every answer record. Both writes are
// always attempted; whatever failed is queued for backfill.
func (c *Controller) persist(ctx context.Context, startedAt, completedAt time.Time, res Result) error {
	payload := ResultPayload{
		QuizID:      c.quizID,
		StudentID:   c.studentID,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Score:       res.Score,
		Answers:     res.answerPayloads(),
	}

	var errs []error
	attempt, err := c.ensureAttempt(ctx, startedAt)
	if err != nil {
		errs = append(errs, &PersistenceError{Op: OpCreateAttempt, Err: err})
	} else {
		id := attempt.ID
		payload.AttemptID = &id
		if err := c.deps.Attempts.CompleteAttempt(ctx, id, res.Score, completedAt); err != nil {
			errs = append(errs, &PersistenceError{Op: OpCompleteAttempt, Err: err})
		}
		if err := c.deps.Answers.InsertAnswers(ctx, id, res.Records(id)); err != nil {
			errs = append(errs, &PersistenceError{Op: OpInsertAnswers, Err: err})
		}
	}
	if len(errs) == 0 {
		return nil
	}

	for _, e := range errs {
		var pe *PersistenceError
		if errors.As(e, &pe) {
			metrics.PersistenceFailures.WithLabelValues(string(pe.Op)).Inc()
		}
	}

	if c.deps.Backfill == nil {
		return errors.Join(errs...)
	}
	if err := c.deps.Backfill.EnqueueResult(ctx, payload); err != nil {
		metrics.PersistenceFailures.WithLabelValues(string(OpBackfill)).Inc()
		errs = append(errs, &PersistenceError{Op: OpBackfill, Err: err})
	}
	return errors.Join(errs...)
}

func (c *Controller) ensureAttempt(ctx context.Context, startedAt time.Time) (*model.Attempt, error) {
	c.attemptMu.Lock()
	defer c.attemptMu.Unlock()

	if c.attempt != nil {
		return c.attempt, nil
	}
	a, err := c.deps.Attempts.CreateAttempt(ctx, c.studentID, c.quizID, startedAt)
	if err != nil {
		return nil, err
	}
	c.attempt = a
	return a, nil
}

func (c *Controller) publish(ctx context.Context, ev MonitorEvent) {
	if c.deps.Publisher == nil {
		return
	}
	if err := c.deps.Publisher.Publish(ctx, c.quizID, ev); err != nil {
		c.log.Debug().Err(err).Str("event", ev.Type).Msg("Monitor publish failed")
	}
}

// Observe forwards a client environment event to the integrity guard.
func (c *Controller) Observe(ctx context.Context, ev model.IntegrityEvent) Reaction {
	c.mu.Lock()
	g := c.guard
	c.lastActive = c.deps.Clock.Now()
	c.mu.Unlock()
	if g == nil {
		return Reaction{}
	}
	return g.Observe(ctx, ev)
}

// Bind routes notifications to n, typically a freshly connected socket.
func (c *Controller) Bind(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
	c.lastActive = c.deps.Clock.Now()
	if _, ok := c.state.(InProgress); ok && !c.closed {
		c.guard.Attach(n)
	}
}

// idleSince reports when an evictable session was last used. Submitted,
// timed in-progress and connected sessions are never evictable: the first
// two end on their own and the last one is in use.
func (c *Controller) idleSince() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, unbound := c.notifier.(nopNotifier); !unbound {
		return time.Time{}, false
	}
	switch st := c.state.(type) {
	case NotStarted:
		return c.lastActive, true
	case InProgress:
		if st.Timed {
			return time.Time{}, false
		}
		return c.lastActive, true
	}
	return time.Time{}, false
}

// Unbind drops the current notifier. The countdown keeps running so an
// unattended session still submits on time, and the guard keeps auditing
// events reported over other channels until the session ends.
func (c *Controller) Unbind(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n != nil && c.notifier != n {
		return
	}
	c.notifier = nopNotifier{}
	c.lastActive = c.deps.Clock.Now()
	if _, ok := c.state.(InProgress); ok && !c.closed {
		c.guard.Attach(nopNotifier{})
	}
}

// Close stops the countdown and the guard without submitting. The attempt
// stays open in storage and can be resumed by a new controller.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if _, ok := c.state.(InProgress); ok {
		close(c.stop)
		metrics.ActiveSessions.Dec()
	}
	if c.guard != nil {
		c.guard.Detach()
	}
	c.notifier = nopNotifier{}
}

// State returns a snapshot of the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot is State rendered for transport, with answer progress.
func (c *Controller) Snapshot() StateView {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View(c.state)
	v.Answered = len(c.answers)
	v.Total = len(c.questions)
	return v
}

// Answers returns a copy of the in-memory answers.
func (c *Controller) Answers() map[uuid.UUID]model.Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uuid.UUID]model.Option, len(c.answers))
	for k, v := range c.answers {
		out[k] = v
	}
	return out
}

// Paper is the student-facing quiz in presentation order, without answers.
func (c *Controller) Paper() (model.QuizPaper, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.prepared {
		return model.QuizPaper{}, ErrInvalidState
	}
	qs := make([]model.QuestionForStudent, len(c.questions))
	for i := range c.questions {
		qs[i] = c.questions[i].ForStudent()
	}
	return model.QuizPaper{
		QuizID:           c.quiz.ID,
		Title:            c.quiz.Title,
		Description:      c.quiz.Description,
		TimeLimitMinutes: c.quiz.TimeLimitMinutes,
		Questions:        qs,
	}, nil
}

// Outcome returns the submission outcome once there is one.
func (c *Controller) Outcome() (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == nil {
		return Outcome{}, false
	}
	return *c.outcome, true
}

// Done is closed once the session has been submitted and persisted.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Guard exposes the integrity guard of the session, nil before Initialize.
func (c *Controller) Guard() *Guard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guard
}
