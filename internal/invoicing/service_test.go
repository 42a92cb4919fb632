package invoicing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lenana-drops/lenana/internal/orders"
	"github.com/lenana-drops/lenana/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	invoices map[int64]Invoice
	byNumber map[string]int64
	byOrder  map[int64]int64
	nextID   int64
	// raceOnce makes the first Create collide on the number, simulating a
	// concurrent issuer winning the sequence.
	raceOnce bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		invoices: map[int64]Invoice{},
		byNumber: map[string]int64{},
		byOrder:  map[int64]int64{},
	}
}

func (r *memoryRepo) Create(ctx context.Context, inv Invoice) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.raceOnce {
		r.raceOnce = false
		r.byNumber[inv.InvoiceNumber] = -1
		return 0, fmt.Errorf("%w: invoices_invoice_number_key", shared.ErrDuplicate)
	}
	if _, ok := r.byNumber[inv.InvoiceNumber]; ok {
		return 0, fmt.Errorf("%w: invoices_invoice_number_key", shared.ErrDuplicate)
	}
	if _, ok := r.byOrder[inv.OrderID]; ok {
		return 0, fmt.Errorf("%w: invoices_order_id_key", shared.ErrDuplicate)
	}
	r.nextID++
	inv.ID = r.nextID
	r.invoices[inv.ID] = inv
	r.byNumber[inv.InvoiceNumber] = inv.ID
	r.byOrder[inv.OrderID] = inv.ID
	return inv.ID, nil
}

func (r *memoryRepo) NextSequence(ctx context.Context, prefix string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for number := range r.byNumber {
		if !strings.HasPrefix(number, prefix) {
			continue
		}
		var seq int
		fmt.Sscanf(strings.TrimPrefix(number, prefix), "%d", &seq)
		if seq > max {
			max = seq
		}
	}
	return max + 1, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, fmt.Errorf("%w: invoice", shared.ErrNotFound)
	}
	return inv, nil
}

func (r *memoryRepo) GetByOrder(ctx context.Context, orderID int64) (Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byOrder[orderID]
	if !ok {
		return Invoice{}, fmt.Errorf("%w: invoice", shared.ErrNotFound)
	}
	return r.invoices[id], nil
}

func (r *memoryRepo) SetStatus(ctx context.Context, id int64, status InvoiceStatus, paidAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.Status != StatusIssued {
		return false, nil
	}
	inv.Status = status
	inv.PaidAt = paidAt
	r.invoices[id] = inv
	return true, nil
}

func (r *memoryRepo) List(ctx context.Context, status *InvoiceStatus, clientID *int64, limit, offset int) ([]Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Invoice
	for _, inv := range r.invoices {
		if status != nil && inv.Status != *status {
			continue
		}
		if clientID != nil && inv.ClientID != *clientID {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

type stubOrders struct {
	orders map[int64]orders.Order
}

func (s *stubOrders) Get(ctx context.Context, orderID int64) (orders.Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return orders.Order{}, fmt.Errorf("%w: order", shared.ErrNotFound)
	}
	return o, nil
}

func fulfilledOrder(id int64) orders.Order {
	return orders.Order{
		ID:          id,
		OrderNumber: fmt.Sprintf("ORD-%05d", id),
		ClientID:    3,
		Status:      orders.StatusFulfilled,
		TotalAmount: 150,
	}
}

func TestIssueNumbersSequentiallyPerMonth(t *testing.T) {
	repo := newMemoryRepo()
	lookup := &stubOrders{orders: map[int64]orders.Order{
		1: fulfilledOrder(1),
		2: fulfilledOrder(2),
	}}
	svc := NewService(repo, lookup, nil)

	first, err := svc.Issue(context.Background(), 1, 9)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), 2, 9)
	require.NoError(t, err)

	prefix := MonthPrefix(time.Now().UTC())
	require.Equal(t, prefix+"0001", first.InvoiceNumber)
	require.Equal(t, prefix+"0002", second.InvoiceNumber)
	require.Equal(t, StatusIssued, first.Status)
	require.InDelta(t, 150.0, first.Amount, 0.001)
}

func TestIssueRetriesOnNumberRace(t *testing.T) {
	repo := newMemoryRepo()
	repo.raceOnce = true
	lookup := &stubOrders{orders: map[int64]orders.Order{1: fulfilledOrder(1)}}
	svc := NewService(repo, lookup, nil)

	inv, err := svc.Issue(context.Background(), 1, 9)
	require.NoError(t, err)
	require.Equal(t, MonthPrefix(time.Now().UTC())+"0002", inv.InvoiceNumber)
}

func TestIssueRequiresFulfilledOrder(t *testing.T) {
	repo := newMemoryRepo()
	pending := fulfilledOrder(1)
	pending.Status = orders.StatusPending
	lookup := &stubOrders{orders: map[int64]orders.Order{1: pending}}
	svc := NewService(repo, lookup, nil)

	_, err := svc.Issue(context.Background(), 1, 9)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestIssueOncePerOrder(t *testing.T) {
	repo := newMemoryRepo()
	lookup := &stubOrders{orders: map[int64]orders.Order{1: fulfilledOrder(1)}}
	svc := NewService(repo, lookup, nil)

	_, err := svc.Issue(context.Background(), 1, 9)
	require.NoError(t, err)

	_, err = svc.Issue(context.Background(), 1, 9)
	require.ErrorIs(t, err, shared.ErrDuplicate)
	require.Len(t, repo.invoices, 1)
}

func TestPaidAndVoidTransitions(t *testing.T) {
	repo := newMemoryRepo()
	lookup := &stubOrders{orders: map[int64]orders.Order{1: fulfilledOrder(1)}}
	svc := NewService(repo, lookup, nil)

	inv, err := svc.Issue(context.Background(), 1, 9)
	require.NoError(t, err)

	paid, err := svc.MarkPaid(context.Background(), inv.ID, 9)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	_, err = svc.Void(context.Background(), inv.ID, 9)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}
