package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ragchat/internal/model/chat"
	"ragchat/internal/model/identity"
	"ragchat/internal/store"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	defaultTitle = "New Chat"

	// DefaultMessageLimit caps transcript reads.
	DefaultMessageLimit = 50
	// DefaultSessionLimit caps session listings for registered users.
	DefaultSessionLimit = 20
)

// Store is the slice of the document store the session service needs.
type Store interface {
	store.SessionStore
	store.MessageStore
}

// Service owns session and message records and implements the
// anonymous/registered session policy.
type Service struct {
	store Store
}

// NewService wires the session service to a document store.
func NewService(st Store) *Service {
	return &Service{store: st}
}

func newSession(userID string) chat.Session {
	now := time.Now().UTC()
	return chat.Session{
		SessionID:    uuid.NewString(),
		UserID:       userID,
		Title:        defaultTitle,
		CreatedAt:    now,
		UpdatedAt:    now,
		MessageCount: 0,
		IsActive:     true,
	}
}

// Create provisions a brand-new session unconditionally. Callers wanting the
// per-user-class policy must go through CreateSmart.
func (s *Service) Create(ctx context.Context, userID string) (string, error) {
	sess := newSession(userID)
	if err := s.store.InsertSession(ctx, sess); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return sess.SessionID, nil
}

// CreateSmart applies the session policy: an anonymous visitor keeps a single
// session whose content is replaced on each "new chat", while a registered
// user always gets a fresh session.
func (s *Service) CreateSmart(ctx context.Context, ref identity.UserRef) (string, error) {
	if ref.Anonymous {
		return s.replaceAnonymousContent(ctx, ref.ID)
	}
	return s.Create(ctx, ref.ID)
}

// replaceAnonymousContent reuses the visitor's active session after wiping its
// transcript and resetting its metadata, creating the session on first contact.
func (s *Service) replaceAnonymousContent(ctx context.Context, userID string) (string, error) {
	sess, created, err := s.store.UpsertActiveSession(ctx, newSession(userID))
	if err != nil {
		return "", fmt.Errorf("failed to resolve anonymous session: %w", err)
	}
	if created {
		return sess.SessionID, nil
	}

	if _, err := s.store.DeleteSessionMessages(ctx, sess.SessionID); err != nil {
		return "", fmt.Errorf("failed to clear session messages: %w", err)
	}
	if err := s.store.ResetSession(ctx, sess.SessionID, defaultTitle, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("failed to reset session metadata: %w", err)
	}
	return sess.SessionID, nil
}

// GetOrCreateAnonymous returns the visitor's single active session, creating
// it on first contact. Unlike CreateSmart it never discards existing messages.
func (s *Service) GetOrCreateAnonymous(ctx context.Context, userID string) (string, error) {
	sess, _, err := s.store.UpsertActiveSession(ctx, newSession(userID))
	if err != nil {
		return "", fmt.Errorf("failed to resolve anonymous session: %w", err)
	}
	return sess.SessionID, nil
}

// AddMessage appends a turn to the session and bumps the session metadata.
// The metadata update is best-effort: message_count is a display hint, so a
// failed counter bump is logged rather than rolled back.
func (s *Service) AddMessage(ctx context.Context, sessionID, msgType, content string) (string, error) {
	if _, err := s.store.FindSessionByID(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to look up session: %w", err)
	}

	msg := chat.Message{
		MessageID: uuid.NewString(),
		SessionID: sessionID,
		Type:      msgType,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to insert message: %w", err)
	}

	if err := s.store.TouchSession(ctx, sessionID, msg.Timestamp); err != nil {
		log.Printf("[session] failed to update metadata for session=%s: %v", sessionID, err)
	}
	return msg.MessageID, nil
}

// Messages returns the transcript ordered by timestamp ascending.
func (s *Service) Messages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	messages, err := s.store.ListMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return messages, nil
}

// UserSessions lists active sessions. Anonymous visitors get at most their
// single session; registered users get up to limit sessions, most recently
// updated first.
func (s *Service) UserSessions(ctx context.Context, ref identity.UserRef, limit int) ([]chat.Summary, error) {
	if limit <= 0 {
		limit = DefaultSessionLimit
	}
	sorted := true
	if ref.Anonymous {
		limit = 1
		sorted = false
	}

	sessions, err := s.store.ListActiveSessions(ctx, ref.ID, limit, sorted)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	summaries := make([]chat.Summary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, chat.Summary{
			SessionID:    sess.SessionID,
			Title:        sess.Title,
			UpdatedAt:    sess.UpdatedAt.Format(time.RFC3339),
			MessageCount: sess.MessageCount,
		})
	}
	return summaries, nil
}

// Delete removes the session and its transcript, messages first. It reports
// whether the session existed; deleting a missing session is not an error.
func (s *Service) Delete(ctx context.Context, sessionID string) (bool, error) {
	if _, err := s.store.FindSessionByID(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up session: %w", err)
	}

	deleted, err := s.store.DeleteSessionMessages(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session messages: %w", err)
	}

	existed, err := s.store.DeleteSession(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	if existed {
		log.Printf("[session] deleted session=%s with %d messages", sessionID, deleted)
	}
	return existed, nil
}

// Migrate reassigns every session owned by fromUserID to toUserID. Used when
// an anonymous visitor registers, so their history survives account creation.
// Running it with no matching sessions is a no-op.
func (s *Service) Migrate(ctx context.Context, fromUserID, toUserID string) error {
	moved, err := s.store.ReassignSessions(ctx, fromUserID, toUserID)
	if err != nil {
		return fmt.Errorf("failed to migrate sessions: %w", err)
	}
	log.Printf("[session] migrated %d sessions from %s to %s", moved, fromUserID, toUserID)
	return nil
}
