package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ragchat/internal/model/user"
	"ragchat/internal/service/session"
	"ragchat/internal/store"
)

var (
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password so a
	// caller cannot tell which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
)

// Service orchestrates registration and login on top of the credential
// primitives and the session lifecycle (for anonymous history migration).
type Service struct {
	users      store.UserStore
	sessions   *session.Service
	tokens     *TokenManager
	bcryptCost int
}

// NewService wires the identity manager.
func NewService(users store.UserStore, sessions *session.Service, tokens *TokenManager, bcryptCost int) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

// TokenTTL exposes the token validity window for cookie max-age.
func (s *Service) TokenTTL() time.Duration { return s.tokens.TTL() }

// Result is the outcome of a successful registration or login.
type Result struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	UserType string `json:"user_type"`
	Token    string `json:"-"`
}

// Register creates an account and issues a token. When anonymousUserID is
// supplied, sessions accumulated anonymously are reassigned to the new user so
// the conversation history survives account creation.
func (s *Service) Register(ctx context.Context, email, password, name, anonymousUserID string) (Result, error) {
	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return Result{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return Result{}, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return Result{}, err
	}

	now := time.Now().UTC()
	u := user.User{
		UserID:       uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		UserType:     user.TypeRegistered,
		CreatedAt:    now,
		LastActive:   now,
	}
	if err := s.users.InsertUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return Result{}, ErrEmailTaken
		}
		return Result{}, fmt.Errorf("failed to create user: %w", err)
	}

	if anonymousUserID != "" {
		// The account exists at this point; a failed migration loses history
		// but must not fail the registration.
		if err := s.sessions.Migrate(ctx, anonymousUserID, u.UserID); err != nil {
			log.Printf("[auth] failed to migrate sessions from %s: %v", anonymousUserID, err)
		}
	}

	token, err := s.tokens.Issue(u.UserID, u.Email)
	if err != nil {
		return Result{}, err
	}
	return Result{UserID: u.UserID, Email: u.Email, Name: u.Name, UserType: u.UserType, Token: token}, nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	u, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, ErrInvalidCredentials
		}
		return Result{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if !CheckPassword(password, u.PasswordHash) {
		return Result{}, ErrInvalidCredentials
	}

	if err := s.users.TouchLastActive(ctx, u.UserID, time.Now().UTC()); err != nil {
		log.Printf("[auth] failed to refresh last_active for user=%s: %v", u.UserID, err)
	}

	token, err := s.tokens.Issue(u.UserID, u.Email)
	if err != nil {
		return Result{}, err
	}
	return Result{UserID: u.UserID, Email: u.Email, Name: u.Name, UserType: u.UserType, Token: token}, nil
}

// CurrentUser resolves a bearer token to its account.
func (s *Service) CurrentUser(ctx context.Context, token string) (user.User, error) {
	claims := s.tokens.Verify(token)
	if claims == nil {
		return user.User{}, ErrInvalidToken
	}

	u, err := s.users.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}
