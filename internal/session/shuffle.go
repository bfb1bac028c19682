package session

import (
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/model"
)

// Shuffle returns a new slice holding questions in a random order drawn from
// rng. The input slice is left untouched.
func Shuffle(questions []model.Question, rng *rand.Rand) []model.Question {
	out := make([]model.Question, len(questions))
	copy(out, questions)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// ApplyOrder arranges questions by a previously stored id order. Ids that no
// longer exist are skipped; questions missing from order keep their stored
// position after the ordered ones.
func ApplyOrder(questions []model.Question, order []uuid.UUID) []model.Question {
	byID := make(map[uuid.UUID]int, len(questions))
	for i := range questions {
		byID[questions[i].ID] = i
	}

	out := make([]model.Question, 0, len(questions))
	used := make(map[uuid.UUID]bool, len(questions))
	for _, id := range order {
		i, ok := byID[id]
		if !ok || used[id] {
			continue
		}
		used[id] = true
		out = append(out, questions[i])
	}
	for i := range questions {
		if !used[questions[i].ID] {
			out = append(out, questions[i])
		}
	}
	return out
}

// QuestionIDs lists the ids of questions in order.
func QuestionIDs(questions []model.Question) []uuid.UUID {
	ids := make([]uuid.UUID, len(questions))
	for i := range questions {
		ids[i] = questions[i].ID
	}
	return ids
}

func newSessionRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
