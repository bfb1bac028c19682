package session

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/kuis-backend/internal/metrics"
	"github.com/stemsi/kuis-backend/internal/model"
)

const (
	msgTabSwitch     = "Jangan berpindah tab selama mengerjakan kuis!"
	msgShortcut      = "Shortcut tidak diizinkan selama kuis!"
	msgContextMenu   = "Klik kanan tidak diizinkan selama kuis!"
	msgLeavePage     = "Jangan meninggalkan halaman selama mengerjakan kuis!"
	msgConfirmUnload = "Apakah Anda yakin ingin meninggalkan halaman? Jawaban akan hilang."
)

// Reaction tells the page what to do with the event it reported.
type Reaction struct {
	Violation      bool   `json:"violation"`
	PreventDefault bool   `json:"prevent_default"`
	ConfirmUnload  bool   `json:"confirm_unload"`
	ConfirmMessage string `json:"confirm_message,omitempty"`
	Warning        string `json:"warning,omitempty"`
}

// Guard watches environment events while a session is in progress. It only
// warns and audits: it never pauses the countdown, blocks answers or submits.
type Guard struct {
	quizID    uuid.UUID
	studentID uuid.UUID
	recorder  Recorder
	publisher Publisher
	clock     Clock
	log       zerolog.Logger

	mu       sync.Mutex
	attached bool
	notifier Notifier
}

func newGuard(quizID, studentID uuid.UUID, deps *Deps, log zerolog.Logger) *Guard {
	return &Guard{
		quizID:    quizID,
		studentID: studentID,
		recorder:  deps.Recorder,
		publisher: deps.Publisher,
		clock:     deps.Clock,
		log:       log.With().Str("component", "integrity_guard").Logger(),
		notifier:  nopNotifier{},
	}
}

// Attach starts observing and routes warnings to n.
func (g *Guard) Attach(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	g.mu.Lock()
	g.attached = true
	g.notifier = n
	g.mu.Unlock()
}

// Detach stops observing. Events arriving afterwards are ignored.
func (g *Guard) Detach() {
	g.mu.Lock()
	g.attached = false
	g.notifier = nopNotifier{}
	g.mu.Unlock()
}

// Attached reports whether the guard is currently observing.
func (g *Guard) Attached() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attached
}

// Observe classifies ev, warns the student and audits the violation.
func (g *Guard) Observe(ctx context.Context, ev model.IntegrityEvent) Reaction {
	g.mu.Lock()
	attached, notifier := g.attached, g.notifier
	g.mu.Unlock()

	if !attached {
		return Reaction{}
	}

	r := classify(ev)
	if !r.Violation {
		return r
	}

	notifier.Warn(r.Warning)
	metrics.IntegrityViolations.WithLabelValues(string(ev.Kind)).Inc()

	v := model.IntegrityViolation{
		QuizID:     g.quizID,
		StudentID:  g.studentID,
		Kind:       ev.Kind,
		Detail:     ev.Key,
		RecordedAt: g.clock.Now(),
	}
	g.log.Info().
		Str("kind", string(ev.Kind)).
		Str("key", ev.Key).
		Msg("Integrity violation observed")

	if g.recorder != nil {
		if err := g.recorder.RecordViolation(ctx, v); err != nil {
			g.log.Warn().Err(err).Msg("Failed to record integrity violation")
		}
	}
	if g.publisher != nil {
		if err := g.publisher.Publish(ctx, g.quizID, MonitorEvent{
			Type:      "violation",
			StudentID: g.studentID,
			Detail:    string(ev.Kind),
			At:        v.RecordedAt,
		}); err != nil {
			g.log.Debug().Err(err).Str("event", "violation").Msg("Monitor publish failed")
		}
	}
	return r
}

func classify(ev model.IntegrityEvent) Reaction {
	switch ev.Kind {
	case model.IntegrityVisibilityHidden:
		return Reaction{Violation: true, Warning: msgTabSwitch}
	case model.IntegrityBeforeUnload:
		return Reaction{
			Violation:      true,
			PreventDefault: true,
			ConfirmUnload:  true,
			ConfirmMessage: msgConfirmUnload,
			Warning:        msgLeavePage,
		}
	case model.IntegrityContextMenu:
		return Reaction{Violation: true, PreventDefault: true, Warning: msgContextMenu}
	case model.IntegrityKeyDown:
		if IsBlockedShortcut(ev.Key, ev.Ctrl || ev.Meta, ev.Shift) {
			return Reaction{Violation: true, PreventDefault: true, Warning: msgShortcut}
		}
	}
	return Reaction{}
}

// IsBlockedShortcut reports whether the key combination opens inspection
// tools: F12, Ctrl+Shift+I, Ctrl+Shift+C or Ctrl+U.
func IsBlockedShortcut(key string, ctrl, shift bool) bool {
	if strings.EqualFold(key, "F12") {
		return true
	}
	if !ctrl {
		return false
	}
	switch strings.ToUpper(key) {
	case "I", "C":
		return shift
	case "U":
		return true
	}
	return false
}
