package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/kuis-backend/internal/config"
	"github.com/stemsi/kuis-backend/internal/database"
	"github.com/stemsi/kuis-backend/internal/logger"
	"github.com/stemsi/kuis-backend/internal/service"
)

type seedQuestion struct {
	prompt  string
	options [4]string
	correct string
}

var questions = []seedQuestion{
	{"Ibu kota Indonesia adalah ...", [4]string{"Jakarta", "Bandung", "Surabaya", "Medan"}, "A"},
	{"Hasil dari 7 x 8 adalah ...", [4]string{"54", "56", "58", "64"}, "B"},
	{"Planet terbesar di tata surya adalah ...", [4]string{"Mars", "Bumi", "Jupiter", "Saturnus"}, "C"},
	{"Rumus kimia air adalah ...", [4]string{"CO2", "O2", "NaCl", "H2O"}, "D"},
	{"Proklamasi kemerdekaan dibacakan pada tahun ...", [4]string{"1945", "1949", "1950", "1965"}, "A"},
	{"Satuan SI untuk gaya adalah ...", [4]string{"Joule", "Newton", "Watt", "Pascal"}, "B"},
	{"Bilangan prima terkecil adalah ...", [4]string{"0", "1", "2", "3"}, "C"},
	{"Hewan yang termasuk mamalia adalah ...", [4]string{"Ikan hiu", "Penyu", "Katak", "Paus"}, "D"},
	{"Akar kuadrat dari 144 adalah ...", [4]string{"12", "14", "16", "24"}, "A"},
	{"Benua terluas di dunia adalah ...", [4]string{"Afrika", "Asia", "Eropa", "Amerika"}, "B"},
}

func main() {
	var (
		students  int
		timeLimit int
		shuffle   bool
		classFlag string
	)
	flag.IntVar(&students, "students", 5, "Number of student tokens to mint")
	flag.IntVar(&timeLimit, "time-limit", 10, "Time limit in minutes, 0 for none")
	flag.BoolVar(&shuffle, "shuffle", true, "Shuffle questions per student")
	flag.StringVar(&classFlag, "class", "", "Class ID (random when empty)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	classID := uuid.New()
	if classFlag != "" {
		if classID, err = uuid.Parse(classFlag); err != nil {
			log.Fatal().Err(err).Msg("Invalid class ID")
		}
	}
	teacherID := uuid.New()

	var limit *int
	if timeLimit > 0 {
		limit = &timeLimit
	}

	fmt.Println("=== Seeding demo quiz ===")

	var quizID uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO quizzes (title, description, class_id, teacher_id, time_limit_minutes, shuffle_questions, is_published)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		 RETURNING id`,
		"Kuis Pengetahuan Umum", "Kuis latihan pengetahuan umum.", classID, teacherID, limit, shuffle,
	).Scan(&quizID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create quiz")
	}

	// created_at is staggered so the stored order is deterministic.
	base := time.Now()
	rows := make([][]any, len(questions))
	for i, q := range questions {
		rows[i] = []any{quizID, q.prompt, q.options[0], q.options[1], q.options[2], q.options[3], q.correct, 1, base.Add(time.Duration(i) * time.Millisecond)}
	}
	n, err := pool.CopyFrom(ctx,
		pgx.Identifier{"quiz_questions"},
		[]string{"quiz_id", "prompt", "option_a", "option_b", "option_c", "option_d", "correct_option", "points", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to insert questions")
	}

	fmt.Printf("Quiz %s created with %d questions in class %s\n", quizID, n, classID)

	auth := service.NewAuthService(cfg)
	ttl := 24 * time.Hour

	teacherToken, err := auth.IssueToken(teacherID, service.RoleTeacher, nil, ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to mint teacher token")
	}
	fmt.Printf("\nTeacher %s\n  token: %s\n", teacherID, teacherToken)

	for i := 0; i < students; i++ {
		studentID := uuid.New()
		token, err := auth.IssueToken(studentID, service.RoleStudent, &classID, ttl)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to mint student token")
		}
		fmt.Printf("Student %d %s\n  token: %s\n", i+1, studentID, token)
	}

	fmt.Println("\nSeed completed!")
}
