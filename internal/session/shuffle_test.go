package session

import (
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffleDoesNotMutateInput(t *testing.T) {
	qs := questionsWithKeys(model.OptionA, model.OptionB, model.OptionC, model.OptionD, model.OptionA, model.OptionB)
	before := QuestionIDs(qs)

	out := Shuffle(qs, rand.New(rand.NewPCG(1, 2)))

	assert.Equal(t, before, QuestionIDs(qs))
	assert.ElementsMatch(t, before, QuestionIDs(out))
}

func TestShuffleIsReproducibleForSeed(t *testing.T) {
	qs := questionsWithKeys(model.OptionA, model.OptionB, model.OptionC, model.OptionD, model.OptionA, model.OptionB, model.OptionC)

	a := Shuffle(qs, rand.New(rand.NewPCG(42, 7)))
	b := Shuffle(qs, rand.New(rand.NewPCG(42, 7)))

	assert.Equal(t, QuestionIDs(a), QuestionIDs(b))
}

func TestApplyOrder(t *testing.T) {
	qs := questionsWithKeys(model.OptionA, model.OptionB, model.OptionC, model.OptionD)
	stale := uuid.New()
	order := []uuid.UUID{qs[2].ID, stale, qs[0].ID, qs[2].ID}

	out := ApplyOrder(qs, order)

	require.Len(t, out, 4)
	assert.Equal(t, []uuid.UUID{qs[2].ID, qs[0].ID, qs[1].ID, qs[3].ID}, QuestionIDs(out))
}
