package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stemsi/kuis-backend/internal/response"
	"github.com/stemsi/kuis-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ownership is checked before any subscription, so no Redis is needed here.
func TestMonitorQuizSSERejects(t *testing.T) {
	e := newEnv()
	teacherID := uuid.New()
	quiz := e.store.addQuiz(teacherID, model.OptionA)
	h := NewMonitorHandler(nil, service.NewResultService(e.store, e.store, e.store), zerolog.Nop())

	tests := []struct {
		name   string
		caller uuid.UUID
		quiz   string
		status int
		code   response.ErrCode
	}{
		{"other teacher", uuid.New(), quiz.ID.String(), http.StatusForbidden, response.ErrNotQuizOwner},
		{"unknown quiz", teacherID, uuid.NewString(), http.StatusNotFound, response.ErrNotFound},
		{"bad id", teacherID, "nope", http.StatusBadRequest, response.ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/monitor/:quiz_id", as(claimsFor(tt.caller, service.RoleTeacher)), h.MonitorQuizSSE)

			w := serve(r, http.MethodGet, "/monitor/"+tt.quiz, "")
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w.Body.Bytes())
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}
