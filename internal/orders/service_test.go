package orders

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lenana-drops/lenana/internal/inventory"
	"github.com/lenana-drops/lenana/internal/shared"
)

type memoryInventory struct {
	ID        int64
	Available int64
	Reserved  int64
}

type memoryState struct {
	orders    map[int64]Order
	stock     map[int64]memoryInventory // keyed by product id
	movements []inventory.Movement
}

func (s *memoryState) clone() *memoryState {
	next := &memoryState{
		orders:    make(map[int64]Order, len(s.orders)),
		stock:     make(map[int64]memoryInventory, len(s.stock)),
		movements: append([]inventory.Movement(nil), s.movements...),
	}
	for id, o := range s.orders {
		o.Items = append([]Item(nil), o.Items...)
		next.orders[id] = o
	}
	for id, inv := range s.stock {
		next.stock[id] = inv
	}
	return next
}

// memoryRepo implements RepositoryPort with snapshot-rollback transactions.
type memoryRepo struct {
	mu          sync.Mutex
	state       *memoryState
	nextOrderID int64
	nextItemID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: &memoryState{orders: map[int64]Order{}, stock: map[int64]memoryInventory{}}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	shadow := r.state.clone()
	tx := &memoryTx{repo: r, state: shadow}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.state = shadow
	return nil
}

func (r *memoryRepo) GetOrder(ctx context.Context, id int64) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.state.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: order", shared.ErrNotFound)
	}
	return o, nil
}

func (r *memoryRepo) ListOrders(ctx context.Context, status *OrderStatus, clientID *int64, limit, offset int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.state.orders {
		if status != nil && o.Status != *status {
			continue
		}
		if clientID != nil && o.ClientID != *clientID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

type memoryTx struct {
	repo  *memoryRepo
	state *memoryState
}

func (t *memoryTx) InsertOrder(ctx context.Context, o Order) (int64, error) {
	t.repo.nextOrderID++
	o.ID = t.repo.nextOrderID
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	t.state.orders[o.ID] = o
	return o.ID, nil
}

func (t *memoryTx) InsertItem(ctx context.Context, item Item) error {
	t.repo.nextItemID++
	item.ID = t.repo.nextItemID
	o := t.state.orders[item.OrderID]
	o.Items = append(o.Items, item)
	t.state.orders[item.OrderID] = o
	return nil
}

func (t *memoryTx) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	o, ok := t.state.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: order", shared.ErrNotFound)
	}
	return o, nil
}

func (t *memoryTx) SetStatus(ctx context.Context, id int64, status OrderStatus, at time.Time) error {
	o := t.state.orders[id]
	o.Status = status
	o.UpdatedAt = at
	t.state.orders[id] = o
	return nil
}

func (t *memoryTx) ReserveStock(ctx context.Context, productID, qty, updatedBy int64) error {
	inv, ok := t.state.stock[productID]
	if !ok || inv.Available < qty {
		return inventory.ErrInsufficientStock
	}
	inv.Available -= qty
	inv.Reserved += qty
	t.state.stock[productID] = inv
	return nil
}

func (t *memoryTx) ReleaseStock(ctx context.Context, productID, qty, updatedBy int64) error {
	inv, ok := t.state.stock[productID]
	if !ok || inv.Reserved < qty {
		return inventory.ErrInsufficientStock
	}
	inv.Available += qty
	inv.Reserved -= qty
	t.state.stock[productID] = inv
	return nil
}

func (t *memoryTx) ConsumeReserved(ctx context.Context, productID, qty, updatedBy int64) error {
	inv, ok := t.state.stock[productID]
	if !ok || inv.Reserved < qty {
		return inventory.ErrInsufficientStock
	}
	inv.Reserved -= qty
	t.state.stock[productID] = inv
	return nil
}

func (t *memoryTx) ResolveInventoryID(ctx context.Context, productID int64) (int64, error) {
	inv, ok := t.state.stock[productID]
	if !ok {
		return 0, inventory.ErrRecordNotFound
	}
	return inv.ID, nil
}

func (t *memoryTx) InsertMovement(ctx context.Context, m inventory.Movement) error {
	m.ID = int64(len(t.state.movements) + 1)
	t.state.movements = append(t.state.movements, m)
	return nil
}

func seedStock(repo *memoryRepo, productID, available int64) {
	repo.state.stock[productID] = memoryInventory{ID: productID * 10, Available: available}
}

func createOrder(t *testing.T, svc *Service, items ...ItemInput) Order {
	t.Helper()
	order, err := svc.Create(context.Background(), CreateInput{ClientID: 1, Items: items, ActorID: 4})
	require.NoError(t, err)
	return order
}

func TestCreateReservesStock(t *testing.T) {
	repo := newMemoryRepo()
	seedStock(repo, 7, 100)
	seedStock(repo, 8, 50)
	svc := NewService(repo, nil)

	order := createOrder(t, svc,
		ItemInput{ProductID: 7, Quantity: 30, UnitPrice: 2.5},
		ItemInput{ProductID: 8, Quantity: 10, UnitPrice: 4})

	require.Equal(t, StatusPending, order.Status)
	require.Len(t, order.Items, 2)
	require.InDelta(t, 115.0, order.TotalAmount, 0.001)

	require.Equal(t, int64(70), repo.state.stock[7].Available)
	require.Equal(t, int64(30), repo.state.stock[7].Reserved)
	require.Equal(t, int64(40), repo.state.stock[8].Available)
	require.Equal(t, int64(10), repo.state.stock[8].Reserved)

	// Two entries per line, one per side of the move.
	require.Len(t, repo.state.movements, 4)
	var availableSum, reservedSum int64
	for _, m := range repo.state.movements {
		switch m.Kind {
		case inventory.MovementKindAvailable:
			availableSum += m.Delta
		case inventory.MovementKindReserved:
			reservedSum += m.Delta
		}
	}
	require.Equal(t, int64(-40), availableSum)
	require.Equal(t, int64(40), reservedSum)
}

func TestCreateRollsBackOnInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	seedStock(repo, 7, 100)
	seedStock(repo, 8, 5)
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		ClientID: 1,
		Items: []ItemInput{
			{ProductID: 7, Quantity: 30, UnitPrice: 2.5},
			{ProductID: 8, Quantity: 10, UnitPrice: 4},
		},
		ActorID: 4,
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	// The first line's reservation must not survive the failed second line.
	require.Equal(t, int64(100), repo.state.stock[7].Available)
	require.Zero(t, repo.state.stock[7].Reserved)
	require.Empty(t, repo.state.orders)
	require.Empty(t, repo.state.movements)
}

func TestFulfilConsumesReservation(t *testing.T) {
	repo := newMemoryRepo()
	seedStock(repo, 7, 100)
	svc := NewService(repo, nil)

	order := createOrder(t, svc, ItemInput{ProductID: 7, Quantity: 30, UnitPrice: 2.5})

	fulfilled, err := svc.Fulfil(context.Background(), order.ID, 9)
	require.NoError(t, err)
	require.Equal(t, StatusFulfilled, fulfilled.Status)
	require.Equal(t, int64(70), repo.state.stock[7].Available)
	require.Zero(t, repo.state.stock[7].Reserved)

	_, err = svc.Fulfil(context.Background(), order.ID, 9)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCancelReleasesReservation(t *testing.T) {
	repo := newMemoryRepo()
	seedStock(repo, 7, 100)
	svc := NewService(repo, nil)

	order := createOrder(t, svc, ItemInput{ProductID: 7, Quantity: 30, UnitPrice: 2.5})

	cancelled, err := svc.Cancel(context.Background(), order.ID, 9)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Equal(t, int64(100), repo.state.stock[7].Available)
	require.Zero(t, repo.state.stock[7].Reserved)

	// The available ledger sum reconciles back to zero net change.
	var availableSum int64
	for _, m := range repo.state.movements {
		if m.Kind == inventory.MovementKindAvailable {
			availableSum += m.Delta
		}
	}
	require.Zero(t, availableSum)

	_, err = svc.Fulfil(context.Background(), order.ID, 9)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), CreateInput{ClientID: 0})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{ClientID: 1})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{
		ClientID: 1,
		Items: []ItemInput{
			{ProductID: 7, Quantity: 5, UnitPrice: 1},
			{ProductID: 7, Quantity: 2, UnitPrice: 1},
		},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}
