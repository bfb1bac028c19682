package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stemsi/kuis-backend/internal/response"
	"github.com/stemsi/kuis-backend/internal/service"
	ws "github.com/stemsi/kuis-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) dialStream(t *testing.T, studentID, quizID uuid.UUID) *websocket.Conn {
	t.Helper()
	r := gin.New()
	r.GET("/ws/v1/student/quizzes/:quiz_id/stream", as(claimsFor(studentID, service.RoleStudent)), e.ws.QuizWebSocketStream)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/student/quizzes/" + quizID.String() + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// next skips toasts until an event of the given kind arrives.
func next(t *testing.T, conn *websocket.Conn, event ws.Event) json.RawMessage {
	t.Helper()
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", event)
		var head struct {
			Event ws.Event `json:"event"`
		}
		require.NoError(t, json.Unmarshal(raw, &head))
		if head.Event == event {
			return raw
		}
		if head.Event != ws.EventInfo && head.Event != ws.EventWarning && head.Event != ws.EventTick {
			t.Fatalf("waiting for %s, got %s", event, raw)
		}
	}
}

func TestQuizWebSocketStream(t *testing.T) {
	e := newEnv()
	quiz := e.store.addQuiz(uuid.New(), model.OptionA, model.OptionB, model.OptionC, model.OptionD)
	qs := e.store.questions[quiz.ID]
	studentID := uuid.New()
	conn := e.dialStream(t, studentID, quiz.ID)

	var hello ws.StateResponse
	require.NoError(t, json.Unmarshal(next(t, conn, ws.EventState), &hello))
	require.NotNil(t, hello.Paper)
	assert.Len(t, hello.Paper.Questions, 4)
	assert.Equal(t, "not_started", string(hello.State.Phase))

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "ping"}))
	next(t, conn, ws.EventPong)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "start"}))
	var started ws.StateResponse
	require.NoError(t, json.Unmarshal(next(t, conn, ws.EventState), &started))
	assert.Equal(t, "in_progress", string(started.State.Phase))

	// [A, B, X, ""] scores 50.
	for i, ans := range []string{"A", "B", "A"} {
		require.NoError(t, conn.WriteJSON(map[string]any{"action": "answer", "question_id": qs[i].ID, "answer": ans}))
		var saved ws.SavedResponse
		require.NoError(t, json.Unmarshal(next(t, conn, ws.EventSaved), &saved))
		assert.Equal(t, i+1, saved.Answered)
		assert.Equal(t, 4, saved.Total)
	}

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "answer", "question_id": qs[3].ID, "answer": "Z"}))
	var bad ws.ErrorResponse
	require.NoError(t, json.Unmarshal(next(t, conn, ws.EventError), &bad))
	assert.Equal(t, string(response.ErrValidation), bad.Code)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "guard", "event": map[string]any{"kind": "visibility_hidden"}}))
	var guard ws.GuardResponse
	require.NoError(t, json.Unmarshal(next(t, conn, ws.EventGuard), &guard))
	assert.True(t, guard.Reaction.Violation)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "submit"}))
	var graded ws.GradedResponse
	require.NoError(t, json.Unmarshal(next(t, conn, ws.EventGraded), &graded))
	assert.Equal(t, 50, graded.Score)
	assert.Equal(t, 2, graded.Correct)
	assert.True(t, graded.Synced)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "submit"}))
	var again ws.ErrorResponse
	require.NoError(t, json.Unmarshal(next(t, conn, ws.EventError), &again))
	assert.Equal(t, string(response.ErrAlreadySubmitted), again.Code)
}

func TestQuizWebSocketStreamCompleted(t *testing.T) {
	e := newEnv()
	quiz := e.store.addQuiz(uuid.New(), model.OptionA)
	a := e.completedAttempt(t, quiz, 100)

	conn := e.dialStream(t, a.StudentID, quiz.ID)

	var state ws.StateResponse
	require.NoError(t, json.Unmarshal(next(t, conn, ws.EventState), &state))
	assert.Equal(t, "submitted", string(state.State.Phase))
	require.NotNil(t, state.State.Score)
	assert.Equal(t, 100, *state.State.Score)

	var errResp ws.ErrorResponse
	require.NoError(t, json.Unmarshal(next(t, conn, ws.EventError), &errResp))
	assert.Equal(t, string(response.ErrAlreadyCompleted), errResp.Code)
}
