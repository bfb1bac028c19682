package session

import (
	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/model"
)

// GradedQuestion is the correctness verdict for one question.
type GradedQuestion struct {
	QuestionID uuid.UUID    `json:"question_id"`
	Answer     model.Option `json:"answer"`
	Correct    bool         `json:"correct"`
}

// Result is the output of Grade.
type Result struct {
	// Score is round-half-up(100 * Correct / Total), always within 0..100.
	Score        int              `json:"score"`
	Correct      int              `json:"correct"`
	Total        int              `json:"total"`
	EarnedPoints int              `json:"earned_points"`
	TotalPoints  int              `json:"total_points"`
	Questions    []GradedQuestion `json:"questions"`
}

// Grade scores answers against the answer key held by questions. It reads
// nothing but its arguments, so equal inputs always give equal results.
// A question missing from answers counts as blank and incorrect.
func Grade(questions []model.Question, answers map[uuid.UUID]model.Option) Result {
	res := Result{
		Total:     len(questions),
		Questions: make([]GradedQuestion, 0, len(questions)),
	}

	for i := range questions {
		q := &questions[i]
		ans := answers[q.ID]
		correct := ans != "" && ans == q.CorrectOption

		res.TotalPoints += q.Weight()
		if correct {
			res.Correct++
			res.EarnedPoints += q.Weight()
		}
		res.Questions = append(res.Questions, GradedQuestion{
			QuestionID: q.ID,
			Answer:     ans,
			Correct:    correct,
		})
	}

	res.Score = percent(res.Correct, res.Total)
	return res
}

// percent is round-half-up(100*n/d) in integer arithmetic; 0 when d is 0.
func percent(n, d int) int {
	if d <= 0 {
		return 0
	}
	return (200*n + d) / (2 * d)
}

// Records turns the graded questions into one answer record per question,
// blank ones included.
func (r Result) Records(attemptID uuid.UUID) []model.AnswerRecord {
	out := make([]model.AnswerRecord, len(r.Questions))
	for i, g := range r.Questions {
		out[i] = model.AnswerRecord{
			AttemptID:  attemptID,
			QuestionID: g.QuestionID,
			Answer:     g.Answer,
			IsCorrect:  g.Correct,
		}
	}
	return out
}

func (r Result) answerPayloads() []AnswerPayload {
	out := make([]AnswerPayload, len(r.Questions))
	for i, g := range r.Questions {
		out[i] = AnswerPayload{QuestionID: g.QuestionID, Answer: g.Answer, IsCorrect: g.Correct}
	}
	return out
}
