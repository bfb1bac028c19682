package worker

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stemsi/kuis-backend/internal/config"
	"github.com/stemsi/kuis-backend/internal/model"
)

const insertIntegrityEventSQL = `INSERT INTO quiz_integrity_events (quiz_id, student_id, kind, detail, recorded_at)
	VALUES ($1, $2, $3, $4::jsonb, $5)`

// IntegrityWorker moves audited violations from Redis into
// quiz_integrity_events.
type IntegrityWorker struct {
	pool *pgxpool.Pool
	b    *batcher[model.IntegrityViolation]
	log  zerolog.Logger
}

// NewIntegrityWorker creates a new IntegrityWorker.
func NewIntegrityWorker(pool *pgxpool.Pool, src queue, log zerolog.Logger) *IntegrityWorker {
	w := &IntegrityWorker{
		pool: pool,
		log:  log.With().Str("component", "integrity_worker").Logger(),
	}
	w.b = &batcher[model.IntegrityViolation]{
		name:         "integrity",
		key:          config.WorkerKey.PersistIntegrityQueue,
		src:          src,
		size:         BatchSize,
		timeout:      BatchTimeout,
		requeueDelay: BatchTimeout,
		flush:        w.flush,
		log:          w.log,
	}
	return w
}

// Start runs the worker loop until ctx is cancelled. Call in a goroutine.
func (w *IntegrityWorker) Start(ctx context.Context) {
	w.b.run(ctx)
}

// flush attempts a bulk COPY, then row-by-row inserts; rows that still fail
// are returned for requeueing.
func (w *IntegrityWorker) flush(ctx context.Context, batch []model.IntegrityViolation) []model.IntegrityViolation {
	err := w.bulkInsert(ctx, batch)
	if err == nil {
		return nil
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	var failed []model.IntegrityViolation
	for _, v := range batch {
		_, err := w.pool.Exec(ctx, insertIntegrityEventSQL,
			v.QuizID, v.StudentID, string(v.Kind), violationDetail(v), v.RecordedAt)
		if err != nil {
			w.log.Error().Err(err).Str("student_id", v.StudentID.String()).Msg("Insert failed, requeueing")
			failed = append(failed, v)
		}
	}
	return failed
}

func (w *IntegrityWorker) bulkInsert(ctx context.Context, batch []model.IntegrityViolation) error {
	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"quiz_integrity_events"},
		[]string{"quiz_id", "student_id", "kind", "detail", "recorded_at"},
		pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
			v := batch[i]
			return []any{v.QuizID, v.StudentID, string(v.Kind), violationDetail(v), v.RecordedAt}, nil
		}),
	)
	return err
}

// violationDetail renders the jsonb detail column.
func violationDetail(v model.IntegrityViolation) string {
	detail := map[string]string{}
	if v.Detail != "" {
		detail["key"] = v.Detail
	}
	raw, _ := json.Marshal(detail)
	return string(raw)
}
