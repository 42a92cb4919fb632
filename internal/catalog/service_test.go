package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lenana-drops/lenana/internal/shared"
)

type memoryRepo struct {
	products map[int64]Product
	bySKU    map[string]int64
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: map[int64]Product{}, bySKU: map[string]int64{}}
}

func (r *memoryRepo) Create(ctx context.Context, p Product) (int64, error) {
	if _, ok := r.bySKU[p.SKU]; ok {
		return 0, fmt.Errorf("%w: sku %s", shared.ErrDuplicate, p.SKU)
	}
	r.nextID++
	p.ID = r.nextID
	p.IsActive = true
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	r.products[p.ID] = p
	r.bySKU[p.SKU] = p.ID
	return p.ID, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: product", shared.ErrNotFound)
	}
	return p, nil
}

func (r *memoryRepo) List(ctx context.Context, includeInactive bool, limit, offset int) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if !includeInactive && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRepo) Update(ctx context.Context, p Product) error {
	existing, ok := r.products[p.ID]
	if !ok {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, p.ID)
	}
	p.SKU = existing.SKU
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	r.products[p.ID] = p
	return nil
}

func TestCreateAndLookupName(t *testing.T) {
	svc := NewService(newMemoryRepo())

	p, err := svc.Create(context.Background(), Product{
		SKU: "WTR-500", Name: "Lenana Drops 500ml", SizeML: 500, UnitPrice: 1.5,
	})
	require.NoError(t, err)
	require.True(t, p.IsActive)

	name, err := svc.ProductName(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, "Lenana Drops 500ml", name)

	_, err = svc.ProductName(context.Background(), 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Product{SKU: "", Name: "x", SizeML: 500})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Product{SKU: "WTR", Name: "x", SizeML: 0})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Product{SKU: "WTR", Name: "x", SizeML: 500, UnitPrice: -1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDuplicateSKU(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Product{SKU: "WTR-500", Name: "a", SizeML: 500})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), Product{SKU: "WTR-500", Name: "b", SizeML: 500})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdateDeactivates(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), Product{SKU: "WTR-1L", Name: "Lenana Drops 1L", SizeML: 1000, UnitPrice: 2.5})
	require.NoError(t, err)

	p.IsActive = false
	updated, err := svc.Update(context.Background(), p)
	require.NoError(t, err)
	require.False(t, updated.IsActive)

	active, err := svc.List(context.Background(), false, 50, 0)
	require.NoError(t, err)
	require.Empty(t, active)
}
