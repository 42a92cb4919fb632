package catalog

import (
	"context"
	"fmt"

	"github.com/lenana-drops/lenana/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Create(ctx context.Context, p Product) (int64, error)
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context, includeInactive bool, limit, offset int) ([]Product, error)
	Update(ctx context.Context, p Product) error
}

// Service manages the product catalog.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the catalog service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create registers a new product.
func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	if p.SKU == "" || p.Name == "" {
		return Product{}, fmt.Errorf("%w: sku and name required", shared.ErrValidation)
	}
	if p.SizeML <= 0 {
		return Product{}, fmt.Errorf("%w: size must be positive", shared.ErrValidation)
	}
	if p.UnitPrice < 0 {
		return Product{}, fmt.Errorf("%w: unit price must be non-negative", shared.ErrValidation)
	}
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

// Get fetches one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns catalog entries.
func (s *Service) List(ctx context.Context, includeInactive bool, limit, offset int) ([]Product, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, includeInactive, limit, offset)
}

// Update replaces mutable fields of an existing product.
func (s *Service) Update(ctx context.Context, p Product) (Product, error) {
	if p.ID <= 0 {
		return Product{}, fmt.Errorf("%w: product id required", shared.ErrValidation)
	}
	if p.Name == "" {
		return Product{}, fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, p.ID)
}

// ProductName resolves the display name for a product. Production batches
// snapshot this at creation time.
func (s *Service) ProductName(ctx context.Context, productID int64) (string, error) {
	p, err := s.repo.Get(ctx, productID)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}
