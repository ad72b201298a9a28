package auth

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultTTL      = 24 * 7 * time.Hour
	DefaultCacheTTL = 30 * time.Second
	// SessionHeader carries the session token on every authenticated request.
	SessionHeader = "x-session-id"

	tokenBytes = 32
)

var ErrSessionNotFound = errors.New("session not found")

var (
	_ Registry = (*Service)(nil)
	_ Registry = (*MemoryRegistry)(nil)
)

// Checker resolves a session token into the id of its user.
type Checker interface {
	ResolveSession(ctx context.Context, token string) (int, error)
}

type Registry interface {
	Checker
	CreateSession(ctx context.Context, userID int) (string, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteUserSessions(ctx context.Context, userID int) error
	ScanAndClean(ctx context.Context)
}

type ctxKey struct{}

func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(ctxKey{}).(int)
	return userID, ok
}
