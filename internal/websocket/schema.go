package websocket

import (
	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stemsi/kuis-backend/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionStart  Action = "start"
	ActionAnswer Action = "answer"
	ActionSubmit Action = "submit"
	ActionGuard  Action = "guard"
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest selects an option for one question.
type AnswerRequest struct {
	Action     Action    `json:"action"`
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Answer     string    `json:"answer" binding:"required,quiz_option"`
}

// GuardRequest reports an environment event observed by the page.
type GuardRequest struct {
	Action Action               `json:"action"`
	Event  model.IntegrityEvent `json:"event"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState   Event = "state"
	EventSaved   Event = "saved"
	EventWarning Event = "warning"
	EventInfo    Event = "info"
	EventTick    Event = "tick"
	EventGuard   Event = "guard"
	EventGraded  Event = "graded"
	EventError   Event = "error"
	EventPong    Event = "pong"
)

// StateResponse carries the session state, and the paper on connect.
type StateResponse struct {
	Event   Event                      `json:"event"`
	State   session.StateView          `json:"state"`
	Paper   *model.QuizPaper           `json:"paper,omitempty"`
	Answers map[uuid.UUID]model.Option `json:"answers,omitempty"`
}

type SavedResponse struct {
	Event      Event     `json:"event"`
	QuestionID uuid.UUID `json:"question_id"`
	Answered   int       `json:"answered"`
	Total      int       `json:"total"`
}

// MessageResponse is a warning or info toast.
type MessageResponse struct {
	Event   Event  `json:"event"`
	Message string `json:"message"`
}

type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

type GuardResponse struct {
	Event    Event            `json:"event"`
	Reaction session.Reaction `json:"reaction"`
}

type GradedResponse struct {
	Event   Event           `json:"event"`
	Score   int             `json:"score"`
	Correct int             `json:"correct"`
	Total   int             `json:"total"`
	Trigger session.Trigger `json:"trigger,omitempty"`
	Synced  bool            `json:"synced"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
