package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/kuis-backend/internal/middleware"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stemsi/kuis-backend/internal/response"
	"github.com/stemsi/kuis-backend/internal/service"
	"github.com/stemsi/kuis-backend/internal/session"
	"github.com/stemsi/kuis-backend/internal/validator"
)

// StudentPortalHandler handles student-facing endpoints (lobby, quiz taking).
type StudentPortalHandler struct {
	lobbyService   *service.LobbyService
	sessionService *service.QuizSessionService
	log            zerolog.Logger
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	lobbyService *service.LobbyService,
	sessionService *service.QuizSessionService,
	log zerolog.Logger,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		lobbyService:   lobbyService,
		sessionService: sessionService,
		log:            log.With().Str("component", "student_portal_handler").Logger(),
	}
}

// GetLobby godoc
// GET /api/v1/student/classes/:class_id/quizzes
// Returns the published quizzes of the class with the student's status on each.
func (h *StudentPortalHandler) GetLobby(c *gin.Context) {
	studentID, ok := userID(c)
	if !ok {
		return
	}

	classID, err := uuid.Parse(c.Param("class_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	lobby, err := h.lobbyService.GetLobby(c.Request.Context(), classID, studentID)
	if err != nil {
		h.log.Error().Err(err).Str("class_id", classID.String()).Msg("Failed to load lobby")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if lobby == nil {
		lobby = []model.LobbyQuiz{}
	}

	response.Success(c, http.StatusOK, gin.H{"quizzes": lobby})
}

// EnterQuiz godoc
// GET /api/v1/student/quizzes/:quiz_id
// Opens the session and returns the paper in presentation order with progress.
// A completed quiz answers 409 ALREADY_COMPLETED.
func (h *StudentPortalHandler) EnterQuiz(c *gin.Context) {
	studentID, quizID, ok := sessionParams(c)
	if !ok {
		return
	}

	view, err := h.sessionService.Enter(c.Request.Context(), studentID, quizID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// StartQuiz godoc
// POST /api/v1/student/quizzes/:quiz_id/start
func (h *StudentPortalHandler) StartQuiz(c *gin.Context) {
	studentID, quizID, ok := sessionParams(c)
	if !ok {
		return
	}

	state, err := h.sessionService.Start(c.Request.Context(), studentID, quizID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// RecordAnswer godoc
// PUT /api/v1/student/quizzes/:quiz_id/answers
// Stores one answer in the session. Nothing is persisted until submission.
func (h *StudentPortalHandler) RecordAnswer(c *gin.Context) {
	studentID, quizID, ok := sessionParams(c)
	if !ok {
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.sessionService.Answer(c.Request.Context(), studentID, quizID, req.QuestionID, req.Answer)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// SubmitQuiz godoc
// POST /api/v1/student/quizzes/:quiz_id/submit
// Grades the session. A repeated submit returns the first result with
// 409 ALREADY_SUBMITTED.
func (h *StudentPortalHandler) SubmitQuiz(c *gin.Context) {
	studentID, quizID, ok := sessionParams(c)
	if !ok {
		return
	}

	result, err := h.sessionService.Submit(c.Request.Context(), studentID, quizID)
	if errors.Is(err, session.ErrAlreadySubmitted) && result != nil {
		response.FailWithData(c, http.StatusConflict, response.ErrAlreadySubmitted, gin.H{"result": result})
		return
	}
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetQuizState godoc
// GET /api/v1/student/quizzes/:quiz_id/state
// Covers page reloads: phase, remaining time and answer progress.
func (h *StudentPortalHandler) GetQuizState(c *gin.Context) {
	studentID, quizID, ok := sessionParams(c)
	if !ok {
		return
	}

	state, err := h.sessionService.State(c.Request.Context(), studentID, quizID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// ReportIntegrityEvent godoc
// POST /api/v1/student/quizzes/:quiz_id/guard
// Passes a page event to the integrity guard and returns how the page
// should react.
func (h *StudentPortalHandler) ReportIntegrityEvent(c *gin.Context) {
	studentID, quizID, ok := sessionParams(c)
	if !ok {
		return
	}

	var req model.IntegrityEvent
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	reaction, err := h.sessionService.Observe(c.Request.Context(), studentID, quizID, req)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reaction": reaction})
}

func (h *StudentPortalHandler) failSession(c *gin.Context, err error) {
	status, code := sessionErrorCode(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Quiz session request failed")
	}
	response.Fail(c, status, code)
}

// userID reads the caller's id from the JWT claims, writing the failure
// response itself.
func userID(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return uuid.Nil, false
	}
	id, err := claims.UserID()
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return uuid.Nil, false
	}
	return id, true
}

func sessionParams(c *gin.Context) (studentID, quizID uuid.UUID, ok bool) {
	studentID, ok = userID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, uuid.Nil, false
	}
	return studentID, quizID, true
}
