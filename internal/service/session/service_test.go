package session_test

import (
	"context"
	"testing"
	"time"

	"ragchat/internal/model/chat"
	"ragchat/internal/model/identity"
	"ragchat/internal/service/session"
	"ragchat/internal/store"
)

func newService() *session.Service {
	return session.NewService(store.NewMemoryStore())
}

func TestCreateSmartRegisteredAlwaysNew(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	ref := identity.ParseUserRef("registered-user-1")

	first, err := svc.CreateSmart(ctx, ref)
	if err != nil {
		t.Fatalf("CreateSmart err: %v", err)
	}
	second, err := svc.CreateSmart(ctx, ref)
	if err != nil {
		t.Fatalf("CreateSmart err: %v", err)
	}

	if first == second {
		t.Fatalf("expected distinct session ids, got %s twice", first)
	}

	summaries, err := svc.UserSessions(ctx, ref, 0)
	if err != nil {
		t.Fatalf("UserSessions err: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(summaries))
	}
}

func TestCreateSmartAnonymousReusesSingleSession(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	ref := identity.ParseUserRef("anon_7")

	first, err := svc.CreateSmart(ctx, ref)
	if err != nil {
		t.Fatalf("CreateSmart err: %v", err)
	}

	if _, err := svc.AddMessage(ctx, first, chat.TypeUser, "hello"); err != nil {
		t.Fatalf("AddMessage err: %v", err)
	}
	if _, err := svc.AddMessage(ctx, first, chat.TypeAI, "hi there"); err != nil {
		t.Fatalf("AddMessage err: %v", err)
	}

	second, err := svc.CreateSmart(ctx, ref)
	if err != nil {
		t.Fatalf("CreateSmart err: %v", err)
	}
	if first != second {
		t.Fatalf("expected same session id, got %s and %s", first, second)
	}

	messages, err := svc.Messages(ctx, second, 0)
	if err != nil {
		t.Fatalf("Messages err: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected cleared transcript, got %d messages", len(messages))
	}

	summaries, err := svc.UserSessions(ctx, ref, 0)
	if err != nil {
		t.Fatalf("UserSessions err: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 session, got %d", len(summaries))
	}
	if summaries[0].MessageCount != 0 {
		t.Fatalf("expected reset message count, got %d", summaries[0].MessageCount)
	}
}

func TestGetOrCreateAnonymousPreservesMessages(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	first, err := svc.GetOrCreateAnonymous(ctx, "anon_9")
	if err != nil {
		t.Fatalf("GetOrCreateAnonymous err: %v", err)
	}
	if _, err := svc.AddMessage(ctx, first, chat.TypeUser, "keep me"); err != nil {
		t.Fatalf("AddMessage err: %v", err)
	}

	second, err := svc.GetOrCreateAnonymous(ctx, "anon_9")
	if err != nil {
		t.Fatalf("GetOrCreateAnonymous err: %v", err)
	}
	if first != second {
		t.Fatalf("expected same session id, got %s and %s", first, second)
	}

	messages, err := svc.Messages(ctx, second, 0)
	if err != nil {
		t.Fatalf("Messages err: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "keep me" {
		t.Fatalf("expected preserved transcript, got %+v", messages)
	}
}

func TestAddMessageRoundTrip(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	sessionID, err := svc.Create(ctx, "registered-user-2")
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	if _, err := svc.AddMessage(ctx, sessionID, chat.TypeUser, "what is Go?"); err != nil {
		t.Fatalf("AddMessage err: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := svc.AddMessage(ctx, sessionID, chat.TypeAI, "a programming language"); err != nil {
		t.Fatalf("AddMessage err: %v", err)
	}

	messages, err := svc.Messages(ctx, sessionID, 0)
	if err != nil {
		t.Fatalf("Messages err: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Type != chat.TypeUser || messages[0].Content != "what is Go?" {
		t.Fatalf("unexpected first message: %+v", messages[0])
	}
	if messages[1].Type != chat.TypeAI || messages[1].Content != "a programming language" {
		t.Fatalf("unexpected second message: %+v", messages[1])
	}
	if messages[1].Timestamp.Before(messages[0].Timestamp) {
		t.Fatal("messages out of timestamp order")
	}
}

func TestAddMessageMissingSession(t *testing.T) {
	svc := newService()

	_, err := svc.AddMessage(context.Background(), "missing", chat.TypeUser, "hello")
	if err != session.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestDeleteCascadesAndIsIdempotent(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	sessionID, err := svc.Create(ctx, "registered-user-3")
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if _, err := svc.AddMessage(ctx, sessionID, chat.TypeUser, "bye"); err != nil {
		t.Fatalf("AddMessage err: %v", err)
	}

	existed, err := svc.Delete(ctx, sessionID)
	if err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	if !existed {
		t.Fatal("expected delete to report existing session")
	}

	messages, err := svc.Messages(ctx, sessionID, 0)
	if err != nil {
		t.Fatalf("Messages err: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected cascaded message delete, got %d messages", len(messages))
	}

	existed, err = svc.Delete(ctx, sessionID)
	if err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	if existed {
		t.Fatal("expected second delete to report missing session")
	}

	existed, err = svc.Delete(ctx, "never-existed")
	if err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	if existed {
		t.Fatal("expected delete of unknown session to report missing")
	}
}

func TestMigrateReassignsAllSessions(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	// createSession applies no uniqueness policy, so an anonymous id can
	// accumulate several sessions through it.
	if _, err := svc.Create(ctx, "anon_123"); err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if _, err := svc.Create(ctx, "anon_123"); err != nil {
		t.Fatalf("Create err: %v", err)
	}

	if err := svc.Migrate(ctx, "anon_123", "new-user-id"); err != nil {
		t.Fatalf("Migrate err: %v", err)
	}

	migrated, err := svc.UserSessions(ctx, identity.ParseUserRef("new-user-id"), 0)
	if err != nil {
		t.Fatalf("UserSessions err: %v", err)
	}
	if len(migrated) != 2 {
		t.Fatalf("expected 2 migrated sessions, got %d", len(migrated))
	}

	remaining, err := svc.UserSessions(ctx, identity.ParseUserRef("anon_123"), 0)
	if err != nil {
		t.Fatalf("UserSessions err: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no sessions left for anonymous id, got %d", len(remaining))
	}

	// Re-running with no matches is a no-op, not an error.
	if err := svc.Migrate(ctx, "anon_123", "new-user-id"); err != nil {
		t.Fatalf("Migrate err on empty set: %v", err)
	}
}

func TestUserSessionsAnonymousReturnsAtMostOne(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.GetOrCreateAnonymous(ctx, "anon_7"); err != nil {
		t.Fatalf("GetOrCreateAnonymous err: %v", err)
	}

	summaries, err := svc.UserSessions(ctx, identity.ParseUserRef("anon_7"), 50)
	if err != nil {
		t.Fatalf("UserSessions err: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected exactly 1 summary, got %d", len(summaries))
	}
}

func TestUserSessionsRegisteredSortedByRecency(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	ref := identity.ParseUserRef("registered-user-4")

	older, err := svc.Create(ctx, ref.ID)
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	newer, err := svc.Create(ctx, ref.ID)
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := svc.AddMessage(ctx, older, chat.TypeUser, "bump"); err != nil {
		t.Fatalf("AddMessage err: %v", err)
	}

	summaries, err := svc.UserSessions(ctx, ref, 0)
	if err != nil {
		t.Fatalf("UserSessions err: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].SessionID != older {
		t.Fatalf("expected most recently updated session first, got %s want %s (newer=%s)", summaries[0].SessionID, older, newer)
	}
}
