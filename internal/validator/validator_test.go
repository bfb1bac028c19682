package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizOptionRule(t *testing.T) {
	Setup()

	tests := []struct {
		answer string
		ok     bool
	}{
		{"A", true},
		{"d", true},
		{" b ", true},
		{"E", false},
		{"AB", false},
	}
	for _, tt := range tests {
		req := model.RecordAnswerRequest{QuestionID: uuid.New(), Answer: tt.answer}
		fields := Struct(&req)
		if tt.ok {
			assert.Nil(t, fields, "answer %q", tt.answer)
		} else {
			require.NotNil(t, fields, "answer %q", tt.answer)
			assert.Equal(t, "answer must be one of A, B, C or D", fields["answer"])
		}
	}
}

func TestBindReportsJSONFieldNames(t *testing.T) {
	Setup()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"kind":"shake"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var ev model.IntegrityEvent
	fields := Bind(c, &ev)

	require.NotNil(t, fields)
	assert.Contains(t, fields, "kind")
}

func TestBindSyntaxError(t *testing.T) {
	Setup()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	c.Request.Header.Set("Content-Type", "application/json")

	var ev model.IntegrityEvent
	fields := Bind(c, &ev)
	assert.Contains(t, fields, "detail")
}
