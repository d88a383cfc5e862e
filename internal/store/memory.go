package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"ragchat/internal/model/chat"
	"ragchat/internal/model/user"
)

// MemoryStore keeps all records in process memory. It serves development runs
// without a MongoDB instance and the service-level tests. Semantics mirror
// MongoStore, including sort and limit behaviour.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]user.User      // keyed by user_id
	sessions map[string]chat.Session   // keyed by session_id
	messages map[string][]chat.Message // keyed by session_id
}

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]user.User),
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(_ context.Context) error { return nil }

// --- users ---

func (s *MemoryStore) InsertUser(_ context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	s.users[u.UserID] = u
	return nil
}

func (s *MemoryStore) FindUserByID(_ context.Context, userID string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return user.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, ErrNotFound
}

func (s *MemoryStore) TouchLastActive(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.LastActive = at
	s.users[userID] = u
	return nil
}

// --- sessions ---

func (s *MemoryStore) InsertSession(_ context.Context, sess chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.SessionID]; exists {
		return ErrDuplicate
	}
	s.sessions[sess.SessionID] = sess
	return nil
}

func (s *MemoryStore) FindSessionByID(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) UpsertActiveSession(_ context.Context, candidate chat.Session) (chat.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.UserID == candidate.UserID && sess.IsActive {
			return sess, false, nil
		}
	}
	s.sessions[candidate.SessionID] = candidate
	return candidate, true, nil
}

func (s *MemoryStore) ListActiveSessions(_ context.Context, userID string, limit int, byUpdatedDesc bool) ([]chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []chat.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.IsActive {
			sessions = append(sessions, sess)
		}
	}
	if byUpdatedDesc {
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
		})
	}
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (s *MemoryStore) TouchSession(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.UpdatedAt = at
	sess.MessageCount++
	s.sessions[sessionID] = sess
	return nil
}

func (s *MemoryStore) ResetSession(_ context.Context, sessionID, title string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.Title = title
	sess.UpdatedAt = at
	sess.MessageCount = 0
	s.sessions[sessionID] = sess
	return nil
}

func (s *MemoryStore) ReassignSessions(_ context.Context, fromUserID, toUserID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var moved int64
	for id, sess := range s.sessions {
		if sess.UserID == fromUserID {
			sess.UserID = toUserID
			s.sessions[id] = sess
			moved++
		}
	}
	return moved, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(s.sessions, sessionID)
	return true, nil
}

// --- messages ---

func (s *MemoryStore) InsertMessage(_ context.Context, m chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[m.SessionID] = append(s.messages[m.SessionID], m)
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, sessionID string, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	copied := make([]chat.Message, len(msgs))
	copy(copied, msgs)
	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].Timestamp.Before(copied[j].Timestamp)
	})
	if limit > 0 && len(copied) > limit {
		copied = copied[:limit]
	}
	return copied, nil
}

func (s *MemoryStore) DeleteSessionMessages(_ context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := int64(len(s.messages[sessionID]))
	delete(s.messages, sessionID)
	return deleted, nil
}
