package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stemsi/kuis-backend/internal/response"
	"github.com/stemsi/kuis-backend/internal/service"
)

const maxPerPage = 100

// QuizHandler serves quiz results to the teacher who owns the quiz.
type QuizHandler struct {
	resultService *service.ResultService
	log           zerolog.Logger
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(resultService *service.ResultService, log zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		resultService: resultService,
		log:           log.With().Str("component", "quiz_handler").Logger(),
	}
}

// GetQuizResults godoc
// GET /api/v1/teacher/quizzes/:quiz_id/results?page=1&per_page=10
func (h *QuizHandler) GetQuizResults(c *gin.Context) {
	teacherID, ok := userID(c)
	if !ok {
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = 10
	}

	results, err := h.resultService.ListResults(c.Request.Context(), quizID, teacherID, page, perPage)
	if err != nil {
		h.fail(c, err)
		return
	}

	attempts := results.Attempts
	if attempts == nil {
		attempts = []model.AttemptResult{}
	}

	response.SuccessWithPagination(c, http.StatusOK,
		gin.H{"quiz": results.Quiz, "attempts": attempts},
		response.NewPagination(page, perPage, results.Total),
	)
}

// GetAttemptAnswers godoc
// GET /api/v1/teacher/attempts/:attempt_id/answers
func (h *QuizHandler) GetAttemptAnswers(c *gin.Context) {
	teacherID, ok := userID(c)
	if !ok {
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	review, err := h.resultService.GetAttemptAnswers(c.Request.Context(), attemptID, teacherID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, review)
}

func (h *QuizHandler) fail(c *gin.Context, err error) {
	status, code := sessionErrorCode(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Result query failed")
	}
	response.Fail(c, status, code)
}
