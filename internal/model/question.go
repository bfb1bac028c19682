package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Option is the label of one of the four fixed choices of a question.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// Options lists the labels in display order.
var Options = []Option{OptionA, OptionB, OptionC, OptionD}

// ParseOption normalizes user input ("b", " B ") to an Option.
// The second return value reports whether the label is one of A-D.
func ParseOption(s string) (Option, bool) {
	o := Option(strings.ToUpper(strings.TrimSpace(s)))
	return o, o.Valid()
}

// Valid reports whether o is one of the four labels.
func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Question represents a single multiple choice quiz question.
type Question struct {
	ID            uuid.UUID `json:"id"`
	QuizID        uuid.UUID `json:"quiz_id"`
	Prompt        string    `json:"prompt"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	CorrectOption Option    `json:"correct_option"`
	Points        int       `json:"points"`
	ImageURL      *string   `json:"image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Weight returns the point weight of the question, defaulting to 1.
func (q *Question) Weight() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// ForStudent strips the answer key.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:     q.ID,
		Prompt: q.Prompt,
		Options: []ChoiceForStudent{
			{Label: OptionA, Text: q.OptionA},
			{Label: OptionB, Text: q.OptionB},
			{Label: OptionC, Text: q.OptionC},
			{Label: OptionD, Text: q.OptionD},
		},
		ImageURL: q.ImageURL,
	}
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID       uuid.UUID          `json:"id"`
	Prompt   string             `json:"prompt"`
	Options  []ChoiceForStudent `json:"options"`
	ImageURL *string            `json:"image_url,omitempty"`
}

// ChoiceForStudent is one labelled choice.
type ChoiceForStudent struct {
	Label Option `json:"label"`
	Text  string `json:"text"`
}
