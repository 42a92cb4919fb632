package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lenana-drops/lenana/internal/shared"
)

// StorePort abstracts repository usage for the service.
type StorePort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, productID int64) (Record, error)
	List(ctx context.Context, limit, offset int) ([]Record, error)
	ListMovements(ctx context.Context, productID int64, limit, offset int) ([]Movement, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inventory reads and manual stock moves.
type Service struct {
	store StorePort
	audit AuditPort
}

// NewService builds a Service.
func NewService(store StorePort, audit AuditPort) *Service {
	return &Service{store: store, audit: audit}
}

// Get returns the record for a product.
func (s *Service) Get(ctx context.Context, productID int64) (Record, error) {
	if productID <= 0 {
		return Record{}, fmt.Errorf("%w: product id required", shared.ErrValidation)
	}
	rec, err := s.store.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Record{}, fmt.Errorf("%w: no inventory for product %d", shared.ErrNotFound, productID)
		}
		return Record{}, err
	}
	return rec, nil
}

// List returns inventory records.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.List(ctx, limit, offset)
}

// ListMovements returns the product's ledger, newest first.
func (s *Service) ListMovements(ctx context.Context, productID int64, limit, offset int) ([]Movement, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("%w: product id required", shared.ErrValidation)
	}
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListMovements(ctx, productID, limit, offset)
}

// AdjustInput describes a manual available-stock adjustment.
type AdjustInput struct {
	ProductID int64
	Delta     int64
	Reason    string
	ActorID   int64
}

// Adjust applies a manual delta to available stock. Negative deltas are
// floored at zero rather than rejected; the ledger entry records the delta
// actually applied so the ledger still reconciles to the stored quantity.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (Record, error) {
	if input.ProductID <= 0 {
		return Record{}, fmt.Errorf("%w: product id required", shared.ErrValidation)
	}
	if input.Delta == 0 {
		return Record{}, fmt.Errorf("%w: delta must be non-zero", shared.ErrValidation)
	}
	if input.Reason == "" {
		return Record{}, fmt.Errorf("%w: reason required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	var updated Record
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetForUpdate(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				if input.Delta < 0 {
					return fmt.Errorf("%w: no inventory for product %d", shared.ErrNotFound, input.ProductID)
				}
				if err := tx.Credit(ctx, input.ProductID, input.Delta, 0, now, input.ActorID); err != nil {
					return err
				}
				id, err := tx.ResolveID(ctx, input.ProductID)
				if err != nil {
					return fmt.Errorf("inventory: resolve id after credit: %w", err)
				}
				updated = Record{ID: id, ProductID: input.ProductID, QuantityAvailable: input.Delta, LastStockCountDate: now, UpdatedBy: input.ActorID}
				return tx.InsertMovement(ctx, Movement{
					InventoryID: id,
					Kind:        MovementKindAvailable,
					Delta:       input.Delta,
					Reason:      input.Reason,
					ByUser:      input.ActorID,
					CreatedAt:   now,
				})
			}
			return err
		}

		newAvailable := rec.QuantityAvailable + input.Delta
		if newAvailable < 0 {
			newAvailable = 0
		}
		applied := newAvailable - rec.QuantityAvailable
		if err := tx.SetAvailable(ctx, input.ProductID, newAvailable, input.ActorID, now); err != nil {
			return err
		}
		if applied != 0 {
			if err := tx.InsertMovement(ctx, Movement{
				InventoryID: rec.ID,
				Kind:        MovementKindAvailable,
				Delta:       applied,
				Reason:      input.Reason,
				ByUser:      input.ActorID,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}
		updated = rec
		updated.QuantityAvailable = newAvailable
		updated.LastStockCountDate = now
		updated.UpdatedBy = input.ActorID
		return nil
	})
	if err != nil {
		return Record{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "inventory:adjust",
			Entity:   "inventory_record",
			EntityID: fmt.Sprintf("%d", input.ProductID),
			Meta: map[string]any{
				"product_id": input.ProductID,
				"delta":      input.Delta,
				"reason":     input.Reason,
			},
		})
	}
	return updated, nil
}
