package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/lenana-drops/lenana/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Create(ctx context.Context, u User) (int64, error)
	Get(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, limit, offset int) ([]User, error)
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages staff accounts.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the users service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateInput describes a new account.
type CreateInput struct {
	Name     string
	Email    string
	Password string
	Role     shared.Role
	ActorID  int64
}

func validRole(role shared.Role) bool {
	switch role {
	case shared.RoleOwner, shared.RoleMaker, shared.RoleChecker:
		return true
	}
	return false
}

// Create registers a new active account with a bcrypt password hash.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	if strings.TrimSpace(input.Name) == "" {
		return User{}, fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	if !validRole(input.Role) {
		return User{}, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, input.Role)
	}
	if len(input.Password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	id, err := s.repo.Create(ctx, User{
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: string(hash),
		Role:         input.Role,
		IsActive:     true,
	})
	if err != nil {
		return User{}, err
	}
	created, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, input.ActorID, "users:create", created.ID, map[string]any{
		"email": created.Email,
		"role":  created.Role,
	})
	return created, nil
}

// Get fetches one user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// List returns users.
func (s *Service) List(ctx context.Context, limit, offset int) ([]User, error) {
	out, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []User{}
	}
	return out, nil
}

// Deactivate disables an account. Disabled accounts fail authentication;
// already issued tokens expire on their own.
func (s *Service) Deactivate(ctx context.Context, id, actorID int64) (User, error) {
	if id == actorID {
		return User{}, fmt.Errorf("%w: cannot deactivate own account", shared.ErrValidation)
	}
	ok, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, fmt.Errorf("%w: user", shared.ErrNotFound)
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "users:deactivate", user.ID, map[string]any{"email": user.Email})
	return user, nil
}

// Activate re-enables an account.
func (s *Service) Activate(ctx context.Context, id, actorID int64) (User, error) {
	ok, err := s.repo.SetActive(ctx, id, true)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, fmt.Errorf("%w: user", shared.ErrNotFound)
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "users:activate", user.ID, map[string]any{"email": user.Email})
	return user, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: fmt.Sprintf("%d", userID),
		Meta:     meta,
	})
}
