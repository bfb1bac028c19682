package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stemsi/kuis-backend/internal/response"
	"github.com/stemsi/kuis-backend/internal/service"
	"github.com/stemsi/kuis-backend/internal/session"
	"github.com/stemsi/kuis-backend/internal/validator"
	ws "github.com/stemsi/kuis-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler runs a quiz session over a WebSocket. The socket is the
// session's notifier while it is connected.
type WSHandler struct {
	sessionService *service.QuizSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.QuizSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// QuizWebSocketStream godoc
// WS /ws/v1/student/quizzes/:quiz_id/stream
func (h *WSHandler) QuizWebSocketStream(c *gin.Context) {
	studentID, quizID, ok := sessionParams(c)
	if !ok {
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	// Session work outlives a dropped socket: a submit in flight must finish.
	ctx := context.WithoutCancel(c.Request.Context())

	wsLog := h.log.With().
		Str("student_id", studentID.String()).
		Str("quiz_id", quizID.String()).
		Logger()

	ctrl, err := h.sessionService.Controller(ctx, studentID, quizID)
	if err != nil {
		if errors.Is(err, session.ErrAlreadyCompleted) && ctrl != nil {
			_ = conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: ctrl.Snapshot()})
		}
		writeSessionError(conn, err)
		return
	}

	paper, err := ctrl.Paper()
	if err != nil {
		writeSessionError(conn, err)
		return
	}

	ctrl.Bind(conn)
	defer ctrl.Unbind(conn)

	if err := conn.WriteTyped(ws.StateResponse{
		Event:   ws.EventState,
		State:   ctrl.Snapshot(),
		Paper:   &paper,
		Answers: ctrl.Answers(),
	}); err != nil {
		return
	}

	wsLog.Info().Msg("Student connected")

	// The graded event is sent once, whichever trigger submitted the session.
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		select {
		case <-ctrl.Done():
			if out, ok := ctrl.Outcome(); ok {
				_ = conn.WriteTyped(gradedResponse(out))
			}
		case <-quit:
		}
	}()

	for {
		var msg json.RawMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			_ = conn.WriteError(string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload))
			continue
		}

		switch env.Action {
		case ws.ActionStart:
			h.handleStart(ctx, conn, ctrl)
		case ws.ActionAnswer:
			h.handleAnswer(conn, ctrl, msg)
		case ws.ActionSubmit:
			h.handleSubmit(ctx, conn, ctrl)
		case ws.ActionGuard:
			h.handleGuard(ctx, conn, ctrl, msg)
		case ws.ActionPing:
			_ = conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			_ = conn.WriteError(string(response.ErrInvalidPayload), "unknown action: "+string(env.Action))
		}
	}
}

func (h *WSHandler) handleStart(ctx context.Context, conn *ws.Conn, ctrl *session.Controller) {
	if err := ctrl.Start(ctx); err != nil {
		writeSessionError(conn, err)
		return
	}
	_ = conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: ctrl.Snapshot()})
}

func (h *WSHandler) handleAnswer(conn *ws.Conn, ctrl *session.Controller, msg json.RawMessage) {
	var req ws.AnswerRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		_ = conn.WriteError(string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload))
		return
	}
	if fields := validator.Struct(&req); fields != nil {
		_ = conn.WriteError(string(response.ErrValidation), firstField(fields))
		return
	}

	opt, _ := model.ParseOption(req.Answer)
	if err := ctrl.RecordAnswer(req.QuestionID, opt); err != nil {
		writeSessionError(conn, err)
		return
	}

	snap := ctrl.Snapshot()
	_ = conn.WriteTyped(ws.SavedResponse{
		Event:      ws.EventSaved,
		QuestionID: req.QuestionID,
		Answered:   snap.Answered,
		Total:      snap.Total,
	})
}

// handleSubmit only reports failures. The outcome goes out as a graded event.
func (h *WSHandler) handleSubmit(ctx context.Context, conn *ws.Conn, ctrl *session.Controller) {
	if _, err := ctrl.Submit(ctx, session.TriggerManual); err != nil {
		writeSessionError(conn, err)
	}
}

func (h *WSHandler) handleGuard(ctx context.Context, conn *ws.Conn, ctrl *session.Controller, msg json.RawMessage) {
	var req ws.GuardRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		_ = conn.WriteError(string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload))
		return
	}
	if fields := validator.Struct(&req.Event); fields != nil {
		_ = conn.WriteError(string(response.ErrValidation), firstField(fields))
		return
	}

	reaction := ctrl.Observe(ctx, req.Event)
	_ = conn.WriteTyped(ws.GuardResponse{Event: ws.EventGuard, Reaction: reaction})
}

func gradedResponse(out session.Outcome) ws.GradedResponse {
	return ws.GradedResponse{
		Event:   ws.EventGraded,
		Score:   out.Score,
		Correct: out.Correct,
		Total:   out.Total,
		Trigger: out.Trigger,
		Synced:  out.SyncErr == nil,
	}
}

func writeSessionError(conn *ws.Conn, err error) {
	_, code := sessionErrorCode(err)
	_ = conn.WriteError(string(code), response.GetMessage(code))
}

func firstField(fields map[string]string) string {
	for name, msg := range fields {
		return name + ": " + msg
	}
	return response.GetMessage(response.ErrValidation)
}
