package stockin

import (
	"context"
	"errors"
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
}

type memoryState struct {
	intakes   map[int64]Intake
	stock     map[int64]memoryInventory // keyed by product id
	movements []inventory.Movement
}

func (s *memoryState) clone() *memoryState {
	next := &memoryState{
		intakes:   make(map[int64]Intake, len(s.intakes)),
		stock:     make(map[int64]memoryInventory, len(s.stock)),
		movements: append([]inventory.Movement(nil), s.movements...),
	}
	for id, in := range s.intakes {
		next.intakes[id] = in
	}
	for id, inv := range s.stock {
		next.stock[id] = inv
	}
	return next
}

// memoryRepo implements RepositoryPort with snapshot-rollback transactions.
// failStep injects a fault at a named sub-operation of the approval
// transaction.
type memoryRepo struct {
	mu           sync.Mutex
	state        *memoryState
	nextIntakeID int64
	nextInvID    int64
	numbers      map[string]bool
	failStep     string
}

var errInjected = errors.New("injected failure")

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		state:   &memoryState{intakes: map[int64]Intake{}, stock: map[int64]memoryInventory{}},
		numbers: map[string]bool{},
	}
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

func (r *memoryRepo) CreateIntake(ctx context.Context, in Intake) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.numbers[in.IntakeNumber] {
		return 0, fmt.Errorf("%w: intake number %s", shared.ErrDuplicate, in.IntakeNumber)
	}
	r.nextIntakeID++
	in.ID = r.nextIntakeID
	in.CreatedAt = time.Now().UTC()
	r.state.intakes[in.ID] = in
	r.numbers[in.IntakeNumber] = true
	return in.ID, nil
}

func (r *memoryRepo) GetIntake(ctx context.Context, id int64) (Intake, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.state.intakes[id]
	if !ok {
		return Intake{}, fmt.Errorf("%w: intake", shared.ErrNotFound)
	}
	return in, nil
}

func (r *memoryRepo) RejectIntake(ctx context.Context, id, reviewedBy int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.state.intakes[id]
	if !ok || in.Status != StatusPending {
		return false, nil
	}
	in.Status = StatusRejected
	in.ReviewedBy = &reviewedBy
	in.ReviewedAt = &at
	r.state.intakes[id] = in
	return true, nil
}

func (r *memoryRepo) ListIntakes(ctx context.Context, status *IntakeStatus, limit, offset int) ([]Intake, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Intake
	for _, in := range r.state.intakes {
		if status != nil && in.Status != *status {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}

type memoryTx struct {
	repo  *memoryRepo
	state *memoryState
}

func (t *memoryTx) GetIntakeForUpdate(ctx context.Context, id int64) (Intake, error) {
	in, ok := t.state.intakes[id]
	if !ok {
		return Intake{}, fmt.Errorf("%w: intake", shared.ErrNotFound)
	}
	return in, nil
}

func (t *memoryTx) MarkReviewed(ctx context.Context, id int64, status IntakeStatus, reviewedBy int64, reviewedAt time.Time) error {
	if t.repo.failStep == "review" {
		return errInjected
	}
	in := t.state.intakes[id]
	in.Status = status
	in.ReviewedBy = &reviewedBy
	in.ReviewedAt = &reviewedAt
	t.state.intakes[id] = in
	return nil
}

func (t *memoryTx) CreditInventory(ctx context.Context, productID, availableDelta int64, countDate time.Time, updatedBy int64) error {
	if t.repo.failStep == "credit" {
		return errInjected
	}
	inv, ok := t.state.stock[productID]
	if !ok {
		t.repo.nextInvID++
		inv = memoryInventory{ID: t.repo.nextInvID}
	}
	inv.Available += availableDelta
	t.state.stock[productID] = inv
	return nil
}

func (t *memoryTx) ResolveInventoryID(ctx context.Context, productID int64) (int64, error) {
	if t.repo.failStep == "resolve" {
		return 0, errInjected
	}
	inv, ok := t.state.stock[productID]
	if !ok {
		return 0, inventory.ErrRecordNotFound
	}
	return inv.ID, nil
}

func (t *memoryTx) InsertMovement(ctx context.Context, m inventory.Movement) error {
	if t.repo.failStep == "movement" {
		return errInjected
	}
	m.ID = int64(len(t.state.movements) + 1)
	t.state.movements = append(t.state.movements, m)
	return nil
}

func pendingIntake(t *testing.T, svc *Service, productID, qty int64) Intake {
	t.Helper()
	in, err := svc.Create(context.Background(), CreateInput{
		ProductID: productID,
		Quantity:  qty,
		Source:    "Supplier return",
		ActorID:   3,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, in.Status)
	return in
}

func TestApproveCreditsInventoryAndLedger(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	in := pendingIntake(t, svc, 7, 40)

	approved, err := svc.Approve(context.Background(), in.ID, 9)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	require.Equal(t, int64(9), *approved.ReviewedBy)

	require.Equal(t, int64(40), repo.state.stock[7].Available)
	require.Len(t, repo.state.movements, 1)
	m := repo.state.movements[0]
	require.Equal(t, repo.state.stock[7].ID, m.InventoryID)
	require.Equal(t, inventory.MovementKindAvailable, m.Kind)
	require.Equal(t, int64(40), m.Delta)
	require.Contains(t, m.Reason, in.IntakeNumber)
}

func TestApproveAccumulatesOntoExistingStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.state.stock[7] = memoryInventory{ID: 42, Available: 60}
	svc := NewService(repo, nil)

	in := pendingIntake(t, svc, 7, 25)

	_, err := svc.Approve(context.Background(), in.ID, 9)
	require.NoError(t, err)
	require.Equal(t, int64(85), repo.state.stock[7].Available)
	require.Equal(t, int64(42), repo.state.movements[0].InventoryID)
}

func TestApproveRollsBackOnFault(t *testing.T) {
	for _, step := range []string{"review", "credit", "resolve", "movement"} {
		t.Run(step, func(t *testing.T) {
			repo := newMemoryRepo()
			repo.failStep = step
			svc := NewService(repo, nil)

			in := pendingIntake(t, svc, 7, 40)

			_, err := svc.Approve(context.Background(), in.ID, 9)
			require.Error(t, err)

			after, err := svc.Get(context.Background(), in.ID)
			require.NoError(t, err)
			require.Equal(t, StatusPending, after.Status)
			require.Zero(t, repo.state.stock[7].Available)
			require.Empty(t, repo.state.movements)
		})
	}
}

func TestApproveTwiceFails(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	in := pendingIntake(t, svc, 7, 40)

	_, err := svc.Approve(context.Background(), in.ID, 9)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), in.ID, 9)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Equal(t, int64(40), repo.state.stock[7].Available)
	require.Len(t, repo.state.movements, 1)
}

func TestRejectIntake(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	in := pendingIntake(t, svc, 7, 40)

	rejected, err := svc.Reject(context.Background(), in.ID, 9)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.Empty(t, repo.state.stock)
	require.Empty(t, repo.state.movements)

	_, err = svc.Approve(context.Background(), in.ID, 9)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), CreateInput{ProductID: 0, Quantity: 5})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{ProductID: 1, Quantity: 0})
	require.ErrorIs(t, err, shared.ErrValidation)
}
