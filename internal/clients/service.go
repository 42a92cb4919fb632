package clients

import (
	"context"
	"fmt"

	"github.com/lenana-drops/lenana/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Create(ctx context.Context, c Client) (int64, error)
	Get(ctx context.Context, id int64) (Client, error)
	List(ctx context.Context, search string, limit, offset int) ([]Client, error)
	Update(ctx context.Context, c Client) error
}

// Service manages client records.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the clients service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create registers a new client.
func (s *Service) Create(ctx context.Context, c Client) (Client, error) {
	if c.Name == "" {
		return Client{}, fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return Client{}, err
	}
	return s.repo.Get(ctx, id)
}

// Get fetches one client.
func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	return s.repo.Get(ctx, id)
}

// List returns clients.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Client, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, search, limit, offset)
}

// Update replaces mutable fields of an existing client.
func (s *Service) Update(ctx context.Context, c Client) (Client, error) {
	if c.ID <= 0 {
		return Client{}, fmt.Errorf("%w: client id required", shared.ErrValidation)
	}
	if c.Name == "" {
		return Client{}, fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return Client{}, err
	}
	return s.repo.Get(ctx, c.ID)
}
