package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty allows all", raw: "", want: nil},
		{name: "single", raw: "https://kuis.sch.id", want: []string{"https://kuis.sch.id"}},
		{name: "trims and skips blanks", raw: " https://a.test , ,https://b.test ", want: []string{"https://a.test", "https://b.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseOrigins(tt.raw))
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TICK_INTERVAL_MS", "250")
	t.Setenv("MAX_DB_CONNS", "not-a-number")
	t.Setenv("SESSION_IDLE_TTL_MINUTES", "5")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, int32(16), cfg.MaxDBConns)
	assert.Equal(t, 5*time.Minute, cfg.SessionIdleTTL)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "student:s1:quiz:q1:question_order", CacheKey.StudentQuestionOrderKey("q1", "s1"))
	assert.Equal(t, "quiz:q1:monitor", CacheKey.QuizMonitorChannel("q1"))
}
