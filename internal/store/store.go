package store

import (
	"context"
	"errors"
	"time"

	"ragchat/internal/model/chat"
	"ragchat/internal/model/user"
)

var (
	// ErrNotFound is returned when a point lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// UserStore persists registered accounts.
type UserStore interface {
	InsertUser(ctx context.Context, u user.User) error
	FindUserByID(ctx context.Context, userID string) (user.User, error)
	FindUserByEmail(ctx context.Context, email string) (user.User, error)
	TouchLastActive(ctx context.Context, userID string, at time.Time) error
}

// SessionStore persists conversation threads. All filters are equality-based.
type SessionStore interface {
	InsertSession(ctx context.Context, s chat.Session) error
	FindSessionByID(ctx context.Context, sessionID string) (chat.Session, error)
	// UpsertActiveSession atomically returns the active session for a user id,
	// inserting the candidate when none exists. The bool reports whether the
	// candidate was inserted. This closes the check-then-act race on first
	// contact from an anonymous visitor.
	UpsertActiveSession(ctx context.Context, candidate chat.Session) (chat.Session, bool, error)
	ListActiveSessions(ctx context.Context, userID string, limit int, byUpdatedDesc bool) ([]chat.Session, error)
	// TouchSession increments message_count and refreshes updated_at.
	TouchSession(ctx context.Context, sessionID string, at time.Time) error
	// ResetSession rewrites title and updated_at and zeroes message_count.
	ResetSession(ctx context.Context, sessionID, title string, at time.Time) error
	// ReassignSessions moves every session owned by fromUserID to toUserID and
	// returns the number of sessions moved. Zero matches is not an error.
	ReassignSessions(ctx context.Context, fromUserID, toUserID string) (int64, error)
	// DeleteSession removes the session record and reports whether it existed.
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
}

// MessageStore persists conversation turns.
type MessageStore interface {
	InsertMessage(ctx context.Context, m chat.Message) error
	// ListMessages returns up to limit messages ordered by timestamp ascending.
	ListMessages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error)
	DeleteSessionMessages(ctx context.Context, sessionID string) (int64, error)
}

// Store aggregates the three collections behind one shared connection.
type Store interface {
	UserStore
	SessionStore
	MessageStore
	Close(ctx context.Context) error
}
