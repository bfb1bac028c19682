package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/kuis-backend/internal/config"
)

// Role is the user role carried by tokens from the school auth service.
type Role string

const (
	RoleStudent Role = "siswa"
	RoleTeacher Role = "guru"
	RoleParent  Role = "orangtua"
)

// Claims extends JWT standard claims with app-specific fields. Subject holds
// the user UUID.
type Claims struct {
	jwt.RegisteredClaims
	Role    Role   `json:"role"`
	// ClassID is only set on student tokens.
	ClassID string `json:"class_id,omitempty"`
}

// UserID parses the subject as a UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// StudentClassID returns the class of a student token, if present.
func (c *Claims) StudentClassID() (uuid.UUID, bool) {
	if c.ClassID == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.ClassID)
	return id, err == nil
}

// AuthService validates tokens issued by the school auth service.
type AuthService struct {
	cfg *config.Config
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{cfg: cfg}
}

// IssueToken signs a token with the shared secret. Production tokens come
// from the auth service; this is used by tooling and tests.
func (s *AuthService) IssueToken(userID uuid.UUID, role Role, classID *uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	if classID != nil {
		claims.ClassID = classID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}

	return claims, nil
}
