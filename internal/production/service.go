package production

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lenana-drops/lenana/internal/inventory"
	"github.com/lenana-drops/lenana/internal/shared"
)

// fallbackProductName is stored when the catalog lookup fails at creation.
// Batch creation never fails on a lookup failure alone.
const fallbackProductName = "Unknown Product"

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreateBatch(ctx context.Context, b Batch) (int64, error)
	GetBatch(ctx context.Context, id int64) (Batch, error)
	GetBatchByNumber(ctx context.Context, number string) (Batch, error)
	StartBatch(ctx context.Context, id int64, at time.Time) (bool, error)
	CompleteBatch(ctx context.Context, id, quantityCompleted int64, at time.Time) (bool, error)
	RejectBatch(ctx context.Context, id int64, reason string, qcBy int64, at time.Time) (bool, error)
	ListBatches(ctx context.Context, filter ListFilter) ([]Batch, error)
}

// ProductLookup resolves product display names for the creation snapshot.
type ProductLookup interface {
	ProductName(ctx context.Context, productID int64) (string, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives the batch state machine and the QC approval transaction.
type Service struct {
	repo    RepositoryPort
	catalog ProductLookup
	audit   AuditPort
}

// NewService constructs the production service.
func NewService(repo RepositoryPort, catalog ProductLookup, audit AuditPort) *Service {
	return &Service{repo: repo, catalog: catalog, audit: audit}
}

// CreateInput describes a new batch request.
type CreateInput struct {
	ProductID       int64
	QuantityPlanned int64
	ActorID         int64
}

// Create registers a new PENDING batch with a freshly generated number.
func (s *Service) Create(ctx context.Context, input CreateInput) (Batch, error) {
	if input.ProductID <= 0 {
		return Batch{}, fmt.Errorf("%w: product id required", shared.ErrValidation)
	}
	if input.QuantityPlanned <= 0 {
		return Batch{}, fmt.Errorf("%w: quantity planned must be positive", shared.ErrValidation)
	}

	productName := fallbackProductName
	if s.catalog != nil {
		if name, err := s.catalog.ProductName(ctx, input.ProductID); err == nil && name != "" {
			productName = name
		}
	}

	batch := Batch{
		ProductID:       input.ProductID,
		ProductName:     productName,
		QuantityPlanned: input.QuantityPlanned,
		Status:          StatusPending,
		ProductionDate:  time.Now().UTC(),
		CreatedBy:       input.ActorID,
	}

	var id int64
	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		batch.BatchNumber = NewBatchNumber()
		id, err = s.repo.CreateBatch(ctx, batch)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrDuplicate) {
			return Batch{}, err
		}
	}
	if err != nil {
		return Batch{}, fmt.Errorf("production: batch number generation exhausted: %w", err)
	}

	created, err := s.repo.GetBatch(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	s.recordAudit(ctx, input.ActorID, "production:create", created.ID, map[string]any{
		"batch_number": created.BatchNumber,
		"product_id":   created.ProductID,
		"planned":      created.QuantityPlanned,
	})
	return created, nil
}

// Start transitions PENDING -> IN_PROGRESS. The update is a guarded
// conditional write; on zero rows the batch is re-fetched to distinguish
// not-found from wrong-state.
func (s *Service) Start(ctx context.Context, batchID, actorID int64) (Batch, error) {
	ok, err := s.repo.StartBatch(ctx, batchID, time.Now().UTC())
	if err != nil {
		return Batch{}, err
	}
	if !ok {
		return Batch{}, s.transitionConflict(ctx, batchID, StatusPending)
	}
	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return Batch{}, err
	}
	s.recordAudit(ctx, actorID, "production:start", batch.ID, map[string]any{"batch_number": batch.BatchNumber})
	return batch, nil
}

// Complete transitions IN_PROGRESS -> COMPLETED and records the produced
// quantity.
func (s *Service) Complete(ctx context.Context, batchID, quantityCompleted, actorID int64) (Batch, error) {
	if quantityCompleted < 0 {
		return Batch{}, fmt.Errorf("%w: quantity completed must be non-negative", shared.ErrValidation)
	}
	ok, err := s.repo.CompleteBatch(ctx, batchID, quantityCompleted, time.Now().UTC())
	if err != nil {
		return Batch{}, err
	}
	if !ok {
		return Batch{}, s.transitionConflict(ctx, batchID, StatusInProgress)
	}
	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return Batch{}, err
	}
	s.recordAudit(ctx, actorID, "production:complete", batch.ID, map[string]any{
		"batch_number": batch.BatchNumber,
		"completed":    quantityCompleted,
	})
	return batch, nil
}

// Reject moves a PENDING or COMPLETED batch to REJECTED.
func (s *Service) Reject(ctx context.Context, batchID int64, reason string, actorID int64) (Batch, error) {
	if len(strings.TrimSpace(reason)) < 5 {
		return Batch{}, fmt.Errorf("%w: rejection reason must be at least 5 characters", shared.ErrValidation)
	}
	ok, err := s.repo.RejectBatch(ctx, batchID, reason, actorID, time.Now().UTC())
	if err != nil {
		return Batch{}, err
	}
	if !ok {
		batch, ferr := s.repo.GetBatch(ctx, batchID)
		if ferr != nil {
			return Batch{}, ferr
		}
		return Batch{}, fmt.Errorf("%w: batch %s is %s, rejection requires PENDING or COMPLETED",
			shared.ErrInvalidState, batch.BatchNumber, batch.Status)
	}
	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return Batch{}, err
	}
	s.recordAudit(ctx, actorID, "production:reject", batch.ID, map[string]any{
		"batch_number": batch.BatchNumber,
		"reason":       reason,
	})
	return batch, nil
}

// QCApproveInput carries the quality-control submission.
type QCApproveInput struct {
	BatchID      int64
	DefectiveQty int64
	PassedQty    int64
	Notes        string
	ActorID      int64
}

// QCApprove finalises a COMPLETED batch in one atomic transaction: the batch
// becomes APPROVED, the product's inventory is credited additively, and the
// stock movement ledger gains one entry per non-zero quantity. Any failure
// rolls the whole attempt back. Approving twice fails on the state check
// against the locked row, which is the defence against double-crediting.
func (s *Service) QCApprove(ctx context.Context, input QCApproveInput) (Batch, error) {
	if input.DefectiveQty < 0 || input.PassedQty < 0 {
		return Batch{}, fmt.Errorf("%w: quantities must be non-negative", shared.ErrValidation)
	}

	now := time.Now().UTC()
	var approved Batch
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		batch, err := tx.GetBatchForUpdate(ctx, input.BatchID)
		if err != nil {
			return err
		}
		if batch.Status != StatusCompleted {
			return fmt.Errorf("%w: batch %s is %s, QC approval requires COMPLETED",
				shared.ErrInvalidState, batch.BatchNumber, batch.Status)
		}
		if batch.QuantityCompleted == nil {
			return fmt.Errorf("%w: batch %s has no completed quantity", shared.ErrInvalidState, batch.BatchNumber)
		}
		if input.DefectiveQty+input.PassedQty != *batch.QuantityCompleted {
			return fmt.Errorf("%w: defective %d + passed %d does not equal completed %d",
				shared.ErrQuantityMismatch, input.DefectiveQty, input.PassedQty, *batch.QuantityCompleted)
		}

		if err := tx.ApproveBatch(ctx, batch.ID, input.DefectiveQty, input.PassedQty, input.Notes, input.ActorID, now); err != nil {
			return fmt.Errorf("production: approve batch: %w", err)
		}
		if err := tx.CreditInventory(ctx, batch.ProductID, input.PassedQty, input.DefectiveQty, now, input.ActorID); err != nil {
			return fmt.Errorf("production: credit inventory: %w", err)
		}

		// The upsert may have merged into an existing row, so the ledger must
		// reference the id read back after the upsert, never a speculative one.
		inventoryID, err := tx.ResolveInventoryID(ctx, batch.ProductID)
		if err != nil {
			return fmt.Errorf("production: resolve inventory id after upsert: %w", err)
		}

		if input.PassedQty > 0 {
			err := tx.InsertMovement(ctx, inventory.Movement{
				InventoryID: inventoryID,
				Kind:        inventory.MovementKindAvailable,
				Delta:       input.PassedQty,
				Reason:      fmt.Sprintf("QC passed for batch %s - added to available stock", batch.BatchNumber),
				ByUser:      input.ActorID,
				CreatedAt:   now,
			})
			if err != nil {
				return fmt.Errorf("production: ledger passed entry: %w", err)
			}
		}
		if input.DefectiveQty > 0 {
			err := tx.InsertMovement(ctx, inventory.Movement{
				InventoryID: inventoryID,
				Kind:        inventory.MovementKindDamaged,
				Delta:       input.DefectiveQty,
				Reason:      fmt.Sprintf("QC defective for batch %s - added to damaged stock", batch.BatchNumber),
				ByUser:      input.ActorID,
				CreatedAt:   now,
			})
			if err != nil {
				return fmt.Errorf("production: ledger defective entry: %w", err)
			}
		}

		approved = batch
		approved.Status = StatusApproved
		approved.QualityCheckPassed = true
		approved.DefectiveQty = &input.DefectiveQty
		approved.PassedQty = &input.PassedQty
		if input.Notes != "" {
			approved.QCNotes = &input.Notes
		}
		approved.QCBy = &input.ActorID
		approved.QCAt = &now
		return nil
	})
	if err != nil {
		return Batch{}, err
	}

	s.recordAudit(ctx, input.ActorID, "production:qc_approve", approved.ID, map[string]any{
		"batch_number": approved.BatchNumber,
		"passed":       input.PassedQty,
		"defective":    input.DefectiveQty,
	})
	return approved, nil
}

// Get fetches one batch.
func (s *Service) Get(ctx context.Context, batchID int64) (Batch, error) {
	return s.repo.GetBatch(ctx, batchID)
}

// List returns batches matching the filter. Empty results are an empty
// slice, never an error.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Batch, error) {
	batches, err := s.repo.ListBatches(ctx, filter)
	if err != nil {
		return nil, err
	}
	if batches == nil {
		batches = []Batch{}
	}
	return batches, nil
}

// transitionConflict re-fetches the batch after a zero-row conditional
// update and reports not-found or wrong-state accordingly.
func (s *Service) transitionConflict(ctx context.Context, batchID int64, want BatchStatus) error {
	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: batch %s is %s, expected %s", shared.ErrInvalidState, batch.BatchNumber, batch.Status, want)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, batchID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "production_batch",
		EntityID: fmt.Sprintf("%d", batchID),
		Meta:     meta,
	})
}
