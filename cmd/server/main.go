package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/kuis-backend/internal/cache"
	"github.com/stemsi/kuis-backend/internal/config"
	"github.com/stemsi/kuis-backend/internal/database"
	"github.com/stemsi/kuis-backend/internal/handler"
	"github.com/stemsi/kuis-backend/internal/logger"
	"github.com/stemsi/kuis-backend/internal/metrics"
	"github.com/stemsi/kuis-backend/internal/middleware"
	"github.com/stemsi/kuis-backend/internal/repository"
	"github.com/stemsi/kuis-backend/internal/router"
	"github.com/stemsi/kuis-backend/internal/service"
	"github.com/stemsi/kuis-backend/internal/session"
	"github.com/stemsi/kuis-backend/internal/validator"
	"github.com/stemsi/kuis-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Dur("tick_interval", cfg.TickInterval).
		Msg("Starting Kuis Backend")

	// ─── Initialize Validator & Metrics ────────────────────────────────
	validator.Setup()
	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories & Stores ──────────────────────────────
	quizRepo := repository.NewQuizRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)

	orderStore := cache.NewOrderStore(rdb)
	resultQueue := cache.NewResultQueue(rdb)
	integrityQueue := cache.NewIntegrityQueue(rdb)
	monitor := cache.NewMonitor(rdb)

	// ─── Session Engine ────────────────────────────────────────────────
	manager := session.NewManager(session.Deps{
		Quizzes:      quizRepo,
		Attempts:     attemptRepo,
		Answers:      answerRepo,
		Orders:       orderStore,
		Backfill:     resultQueue,
		Recorder:     integrityQueue,
		Publisher:    monitor,
		TickInterval: cfg.TickInterval,
		Logger:       log.With().Str("component", "session").Logger(),
	})
	manager.IdleTTL = cfg.SessionIdleTTL

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	lobbyService := service.NewLobbyService(quizRepo)
	resultService := service.NewResultService(quizRepo, attemptRepo, answerRepo)
	sessionService := service.NewQuizSessionService(manager)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		StudentPortal: handler.NewStudentPortalHandler(lobbyService, sessionService, log),
		Quiz:          handler.NewQuizHandler(resultService, log),
		WS:            handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		Monitor:       handler.NewMonitorHandler(monitor, resultService, log),
		System:        handler.NewSystemHandler(pool, rdb, manager, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	resultWorker := worker.NewResultWorker(pool, rdb, attemptRepo, answerRepo, cfg.ResultRetryDelay, log)
	integrityWorker := worker.NewIntegrityWorker(pool, rdb, log)
	orderWorker := worker.NewQuestionOrderWorker(pool, rdb, log)

	for _, start := range []func(context.Context){
		resultWorker.Start,
		integrityWorker.Start,
		orderWorker.Start,
		manager.Run,
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start(workerCtx)
		}()
	}

	// Rate limiter for student routes (120 requests per minute per student).
	limiter := middleware.NewRateLimiter(120, time.Minute)
	go limiter.Run(workerCtx.Done())

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, limiter, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop countdowns. Open attempts resume on the next connection.
	manager.Shutdown()

	// 3. Stop background workers and wait for in-flight batches.
	workerCancel()
	wg.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
