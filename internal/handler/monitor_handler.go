package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stemsi/kuis-backend/internal/response"
	"github.com/stemsi/kuis-backend/internal/service"
)

const (
	keepAliveInterval = 30 * time.Second
	snapshotTimeout   = 5 * time.Second
	snapshotSize      = 1000
)

// MonitorSubscriber opens the live event channel of a quiz.
type MonitorSubscriber interface {
	Subscribe(ctx context.Context, quizID uuid.UUID) *redis.PubSub
}

// MonitorHandler streams join, submit and violation events of a quiz to its
// teacher over SSE.
type MonitorHandler struct {
	monitor       MonitorSubscriber
	resultService *service.ResultService
	log           zerolog.Logger
}

func NewMonitorHandler(monitor MonitorSubscriber, resultService *service.ResultService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor:       monitor,
		resultService: resultService,
		log:           log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorQuizSSE godoc
// GET /api/v1/teacher/quizzes/:quiz_id/monitor
func (h *MonitorHandler) MonitorQuizSSE(c *gin.Context) {
	teacherID, ok := userID(c)
	if !ok {
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	reqCtx := c.Request.Context()

	quiz, err := h.resultService.OwnedQuiz(reqCtx, quizID, teacherID)
	if err != nil {
		status, code := sessionErrorCode(err)
		response.Fail(c, status, code)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.sendSnapshot(c, reqCtx, quiz)

	pubsub := h.monitor.Subscribe(reqCtx, quizID)
	defer pubsub.Close()
	ch := pubsub.Channel()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	log := h.log.With().Str("quiz_id", quizID.String()).Logger()
	log.Info().Msg("Teacher attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			log.Info().Msg("Teacher disconnected from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Events are already JSON.
			writeSSE(c, []byte(msg.Payload))

		case <-keepAlive.C:
			writeSSE(c, pingPayload)
		}
	}
}

// sendSnapshot writes the first event: the quiz and its attempts so far.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, parent context.Context, quiz *model.Quiz) {
	ctx, cancel := context.WithTimeout(parent, snapshotTimeout)
	defer cancel()

	results, err := h.resultService.ListResults(ctx, quiz.ID, quiz.TeacherID, 1, snapshotSize)
	attempts := []model.AttemptResult{}
	if err != nil {
		h.log.Warn().Err(err).Str("quiz_id", quiz.ID.String()).Msg("Failed to load monitor snapshot")
	} else if results.Attempts != nil {
		attempts = results.Attempts
	}

	completed := 0
	for _, a := range attempts {
		if a.CompletedAt != nil {
			completed++
		}
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": map[string]interface{}{
			"quiz": map[string]interface{}{
				"id":                 quiz.ID,
				"title":              quiz.Title,
				"time_limit_minutes": quiz.TimeLimitMinutes,
			},
			"stats": map[string]interface{}{
				"total_joined":      len(attempts),
				"total_in_progress": len(attempts) - completed,
				"total_completed":   completed,
			},
			"attempts": attempts,
		},
	})
	c.Writer.Flush()
}

func writeSSE(c *gin.Context, data []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(data)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
