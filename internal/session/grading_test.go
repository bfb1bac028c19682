package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func questionsWithKeys(keys ...model.Option) []model.Question {
	qs := make([]model.Question, len(keys))
	for i, k := range keys {
		qs[i] = model.Question{ID: uuid.New(), CorrectOption: k, Points: 1}
	}
	return qs
}

func TestGradeMixedAnswers(t *testing.T) {
	qs := questionsWithKeys(model.OptionA, model.OptionB, model.OptionC, model.OptionD)
	answers := map[uuid.UUID]model.Option{
		qs[0].ID: model.OptionA,
		qs[1].ID: model.OptionB,
		qs[2].ID: model.Option("X"),
	}

	res := Grade(qs, answers)

	assert.Equal(t, 50, res.Score)
	assert.Equal(t, 2, res.Correct)
	assert.Equal(t, 4, res.Total)
	require.Len(t, res.Questions, 4)
	assert.True(t, res.Questions[0].Correct)
	assert.True(t, res.Questions[1].Correct)
	assert.False(t, res.Questions[2].Correct)
	assert.False(t, res.Questions[3].Correct)
	assert.Equal(t, model.Option(""), res.Questions[3].Answer)
}

func TestGradeAllCorrectAndAllBlank(t *testing.T) {
	qs := questionsWithKeys(model.OptionC, model.OptionA, model.OptionD)

	all := make(map[uuid.UUID]model.Option)
	for _, q := range qs {
		all[q.ID] = q.CorrectOption
	}
	assert.Equal(t, 100, Grade(qs, all).Score)

	blank := Grade(qs, nil)
	assert.Equal(t, 0, blank.Score)
	assert.Equal(t, 0, blank.Correct)
	for _, g := range blank.Questions {
		assert.False(t, g.Correct)
	}
}

func TestGradeRounding(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		total   int
		want    int
	}{
		{"one of three", 1, 3, 33},
		{"two of three", 2, 3, 67},
		{"half rounds up", 1, 8, 13},
		{"one of six", 1, 6, 17},
		{"none", 0, 7, 0},
		{"all", 7, 7, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := make([]model.Option, tt.total)
			for i := range keys {
				keys[i] = model.OptionA
			}
			qs := questionsWithKeys(keys...)
			answers := make(map[uuid.UUID]model.Option)
			for i := 0; i < tt.correct; i++ {
				answers[qs[i].ID] = model.OptionA
			}
			assert.Equal(t, tt.want, Grade(qs, answers).Score)
		})
	}
}

func TestGradeBoundsAndDeterminism(t *testing.T) {
	for total := 1; total <= 40; total++ {
		keys := make([]model.Option, total)
		for i := range keys {
			keys[i] = model.OptionB
		}
		qs := questionsWithKeys(keys...)
		for correct := 0; correct <= total; correct++ {
			answers := make(map[uuid.UUID]model.Option)
			for i := 0; i < correct; i++ {
				answers[qs[i].ID] = model.OptionB
			}
			first := Grade(qs, answers)
			second := Grade(qs, answers)
			assert.Equal(t, first, second)
			assert.GreaterOrEqual(t, first.Score, 0)
			assert.LessOrEqual(t, first.Score, 100)
		}
	}
}

func TestGradeEmptyQuizScoresZero(t *testing.T) {
	res := Grade(nil, nil)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 0, res.Total)
}

func TestGradeWeights(t *testing.T) {
	qs := questionsWithKeys(model.OptionA, model.OptionB)
	qs[0].Points = 3
	qs[1].Points = 0

	res := Grade(qs, map[uuid.UUID]model.Option{qs[0].ID: model.OptionA})

	assert.Equal(t, 3, res.EarnedPoints)
	assert.Equal(t, 4, res.TotalPoints)
	assert.Equal(t, 50, res.Score)
}

func TestResultRecordsCoverEveryQuestion(t *testing.T) {
	qs := questionsWithKeys(model.OptionA, model.OptionB, model.OptionC)
	res := Grade(qs, map[uuid.UUID]model.Option{qs[1].ID: model.OptionB})
	attemptID := uuid.New()

	recs := res.Records(attemptID)

	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, attemptID, r.AttemptID)
		assert.Equal(t, qs[i].ID, r.QuestionID)
		assert.Equal(t, res.Questions[i].Correct, r.IsCorrect)
	}
	assert.Equal(t, model.Option(""), recs[0].Answer)
	assert.True(t, recs[1].IsCorrect)
}
