package model

import (
	"time"

	"github.com/google/uuid"
)

// IntegrityEventKind names an environment signal reported by the exam page.
type IntegrityEventKind string

const (
	IntegrityVisibilityHidden IntegrityEventKind = "visibility_hidden"
	IntegrityBeforeUnload     IntegrityEventKind = "before_unload"
	IntegrityContextMenu      IntegrityEventKind = "context_menu"
	IntegrityKeyDown          IntegrityEventKind = "key_down"
)

// IntegrityEvent is the payload a client sends when it observes something.
type IntegrityEvent struct {
	Kind  IntegrityEventKind `json:"kind" binding:"required,oneof=visibility_hidden before_unload context_menu key_down"`
	Key   string             `json:"key,omitempty"`
	Ctrl  bool               `json:"ctrl,omitempty"`
	Shift bool               `json:"shift,omitempty"`
	Meta  bool               `json:"meta,omitempty"`
}

// IntegrityViolation is an audited detection (quiz_integrity_events row).
type IntegrityViolation struct {
	QuizID     uuid.UUID          `json:"quiz_id"`
	StudentID  uuid.UUID          `json:"student_id"`
	Kind       IntegrityEventKind `json:"kind"`
	Detail     string             `json:"detail,omitempty"`
	RecordedAt time.Time          `json:"recorded_at"`
}
