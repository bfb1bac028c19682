package session

import (
	"time"
)

// Phase is the coarse position of a session in its lifecycle.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitted  Phase = "submitted"
)

// Trigger says what caused a submission.
type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerTimeout Trigger = "timeout"
)

// State is one of NotStarted, InProgress or Submitted.
type State interface {
	Phase() Phase
	isState()
}

// NotStarted is the state between Initialize and Start.
type NotStarted struct{}

// InProgress is the state while the student is answering.
type InProgress struct {
	StartedAt     time.Time
	// TimeRemaining is meaningless when Timed is false.
	TimeRemaining time.Duration
	Timed         bool
}

// Submitted is terminal.
type Submitted struct {
	Score       int
	CompletedAt time.Time
	Trigger     Trigger
}

func (NotStarted) Phase() Phase { return PhaseNotStarted }
func (InProgress) Phase() Phase { return PhaseInProgress }
func (Submitted) Phase() Phase  { return PhaseSubmitted }

func (NotStarted) isState() {}
func (InProgress) isState() {}
func (Submitted) isState()  {}

// StateView is the JSON rendering of a State for the UI shell.
type StateView struct {
	Phase            Phase      `json:"phase"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	RemainingSeconds *int       `json:"remaining_seconds,omitempty"`
	Score            *int       `json:"score,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Trigger          Trigger    `json:"trigger,omitempty"`
	Answered         int        `json:"answered"`
	Total            int        `json:"total"`
}

// View flattens s for transport.
func View(s State) StateView {
	v := StateView{Phase: s.Phase()}
	switch st := s.(type) {
	case InProgress:
		started := st.StartedAt
		v.StartedAt = &started
		if st.Timed {
			secs := int(st.TimeRemaining / time.Second)
			v.RemainingSeconds = &secs
		}
	case Submitted:
		score, completed := st.Score, st.CompletedAt
		v.Score = &score
		v.CompletedAt = &completed
		v.Trigger = st.Trigger
	}
	return v
}
