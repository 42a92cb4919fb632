package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lenana-drops/lenana/internal/shared"
	"github.com/lenana-drops/lenana/internal/users"
)

// UserSource resolves accounts during login.
type UserSource interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
}

// Service wraps authentication business rules.
type Service struct {
	userSource UserSource
	tokens     *TokenStore
	sessions   Repository
}

// NewService constructs a new Service. sessions may be nil when no durable
// session trail is wanted.
func NewService(userSource UserSource, tokens *TokenStore, sessions Repository) *Service {
	return &Service{userSource: userSource, tokens: tokens, sessions: sessions}
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	UserID    int64       `json:"user_id"`
	Name      string      `json:"name"`
	Role      shared.Role `json:"role"`
}

// Login validates credentials and issues a bearer token. Failures never
// reveal whether the email exists.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (LoginResult, error) {
	user, err := s.userSource.FindByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, shared.ErrInvalidCredentials
	}

	actor := shared.Actor{ID: user.ID, Name: user.Name, Role: user.Role}
	token, err := s.tokens.Issue(ctx, actor)
	if err != nil {
		return LoginResult{}, err
	}
	expiresAt := time.Now().UTC().Add(s.tokens.TTL())
	if s.sessions != nil {
		// Best effort: a missing trail row never blocks login.
		_ = s.sessions.CreateSession(ctx, token, user.ID, expiresAt, ip, userAgent)
	}
	return LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		Name:      user.Name,
		Role:      user.Role,
	}, nil
}

// Logout revokes the token and drops the session trail row.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return err
	}
	if s.sessions != nil {
		_ = s.sessions.DeleteSession(ctx, token)
	}
	return nil
}

// Resolve maps a bearer token to an actor.
func (s *Service) Resolve(ctx context.Context, token string) (shared.Actor, bool, error) {
	return s.tokens.Resolve(ctx, token)
}
