package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/kuis-backend/internal/config"
	"github.com/stemsi/kuis-backend/internal/handler"
	"github.com/stemsi/kuis-backend/internal/metrics"
	"github.com/stemsi/kuis-backend/internal/middleware"
	"github.com/stemsi/kuis-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	StudentPortal *handler.StudentPortalHandler
	Quiz          *handler.QuizHandler
	WS            *handler.WSHandler
	Monitor       *handler.MonitorHandler
	System        *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.TokenValidator,
	limiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(metrics.Middleware())

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", metrics.Handler())

	// ─── 1. Student Group (JWT siswa) ──────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(auth),
		limiter.Middleware(),
		middleware.NoStore(),
	)
	{
		studentAPI.GET("/classes/:class_id/quizzes",
			middleware.RequireClassMember("class_id"),
			handlers.StudentPortal.GetLobby,
		)

		quizzes := studentAPI.Group("/quizzes/:quiz_id")
		{
			quizzes.GET("", handlers.StudentPortal.EnterQuiz)
			quizzes.GET("/state", handlers.StudentPortal.GetQuizState)
			quizzes.POST("/start", handlers.StudentPortal.StartQuiz)
			quizzes.PUT("/answers", handlers.StudentPortal.RecordAnswer)
			quizzes.POST("/submit", handlers.StudentPortal.SubmitQuiz)
			quizzes.POST("/guard", handlers.StudentPortal.ReportIntegrityEvent)
		}
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(auth))
	{
		ws.GET("/student/quizzes/:quiz_id/stream", handlers.WS.QuizWebSocketStream)
	}

	// ─── 3. Teacher Group (JWT guru) ───────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(auth))
	{
		teacherAPI.GET("/quizzes/:quiz_id/results", handlers.Quiz.GetQuizResults)
		teacherAPI.GET("/quizzes/:quiz_id/monitor", handlers.Monitor.MonitorQuizSSE)
		teacherAPI.GET("/attempts/:attempt_id/answers", handlers.Quiz.GetAttemptAnswers)
	}

	return router
}
