package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTokenNotFound is returned when a token lookup finds nothing.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// TokenKind distinguishes session tokens from one-time reset tokens.
type TokenKind string

const (
	TokenKindAPI   TokenKind = "api"
	TokenKindReset TokenKind = "reset"
)

// Token is an opaque bearer credential tied to a user.
type Token struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Value     string
	Kind      TokenKind
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// NewToken mints a token of the given kind. A nil ttl means the token
// never expires.
func NewToken(userID uuid.UUID, kind TokenKind, ttl time.Duration, now time.Time) (*Token, error) {
	value, err := randomToken()
	if err != nil {
		return nil, err
	}

	t := &Token{
		ID:        uuid.New(),
		UserID:    userID,
		Value:     value,
		Kind:      kind,
		CreatedAt: now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		t.ExpiresAt = &expiresAt
	}
	return t, nil
}

// IsExpired reports whether the token is past its expiry.
func (t *Token) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// randomToken returns 32 bytes of hex-encoded entropy.
func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
