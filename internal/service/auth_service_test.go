package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(secret string) *AuthService {
	return NewAuthService(&config.Config{JWTSecret: secret})
}

func TestIssueAndValidateToken(t *testing.T) {
	auth := newAuth("secret")
	userID := uuid.New()
	classID := uuid.New()

	token, err := auth.IssueToken(userID, RoleStudent, &classID, time.Hour)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, RoleStudent, claims.Role)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, id)

	cls, ok := claims.StudentClassID()
	assert.True(t, ok)
	assert.Equal(t, classID, cls)
}

func TestValidateTokenRejects(t *testing.T) {
	auth := newAuth("secret")
	userID := uuid.New()

	expired, err := auth.IssueToken(userID, RoleTeacher, nil, -time.Minute)
	require.NoError(t, err)
	_, err = auth.ValidateToken(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	foreign, err := newAuth("other").IssueToken(userID, RoleTeacher, nil, time.Hour)
	require.NoError(t, err)
	_, err = auth.ValidateToken(foreign)
	assert.ErrorIs(t, err, jwt.ErrSignatureInvalid)

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleStudent,
	})
	signed, err := badSubject.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = auth.ValidateToken(signed)
	assert.Error(t, err)

	_, err = auth.ValidateToken("garbage")
	assert.Error(t, err)
}

func TestTeacherTokenHasNoClass(t *testing.T) {
	auth := newAuth("secret")
	token, err := auth.IssueToken(uuid.New(), RoleTeacher, nil, time.Hour)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	_, ok := claims.StudentClassID()
	assert.False(t, ok)
}
