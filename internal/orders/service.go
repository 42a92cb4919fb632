package orders

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/lenana-drops/lenana/internal/inventory"
	"github.com/lenana-drops/lenana/internal/shared"
)

const maxNumberAttempts = 5

// NewOrderNumber generates a random order number. Uniqueness is enforced by
// the database; callers retry on a duplicate.
func NewOrderNumber() string {
	return fmt.Sprintf("ORD-%05d", rand.IntN(100000))
}

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (Order, error)
	ListOrders(ctx context.Context, status *OrderStatus, clientID *int64, limit, offset int) ([]Order, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages orders. Stock reservations move quantity between the
// available and reserved columns inside the same transaction as the order
// rows, with ledger entries recording both sides of each move.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the orders service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ItemInput is one requested order line.
type ItemInput struct {
	ProductID int64
	Quantity  int64
	UnitPrice float64
}

// CreateInput describes a new order request.
type CreateInput struct {
	ClientID int64
	Items    []ItemInput
	Note     string
	ActorID  int64
}

// Create registers a PENDING order and reserves stock for every line. The
// order rows and the reservations commit together; insufficient stock on any
// line rolls the whole order back.
func (s *Service) Create(ctx context.Context, input CreateInput) (Order, error) {
	if input.ClientID <= 0 {
		return Order{}, fmt.Errorf("%w: client id required", shared.ErrValidation)
	}
	if len(input.Items) == 0 {
		return Order{}, fmt.Errorf("%w: at least one item required", shared.ErrValidation)
	}
	seen := make(map[int64]bool, len(input.Items))
	var total float64
	for _, item := range input.Items {
		if item.ProductID <= 0 {
			return Order{}, fmt.Errorf("%w: product id required on every item", shared.ErrValidation)
		}
		if item.Quantity <= 0 {
			return Order{}, fmt.Errorf("%w: item quantity must be positive", shared.ErrValidation)
		}
		if item.UnitPrice < 0 {
			return Order{}, fmt.Errorf("%w: unit price must be non-negative", shared.ErrValidation)
		}
		if seen[item.ProductID] {
			return Order{}, fmt.Errorf("%w: duplicate product %d on order", shared.ErrValidation, item.ProductID)
		}
		seen[item.ProductID] = true
		total += float64(item.Quantity) * item.UnitPrice
	}

	now := time.Now().UTC()
	var orderID int64
	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number := NewOrderNumber()
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			id, err := tx.InsertOrder(ctx, Order{
				OrderNumber: number,
				ClientID:    input.ClientID,
				Status:      StatusPending,
				TotalAmount: total,
				Note:        input.Note,
				CreatedBy:   input.ActorID,
			})
			if err != nil {
				return err
			}
			for _, item := range input.Items {
				if err := tx.InsertItem(ctx, Item{
					OrderID:   id,
					ProductID: item.ProductID,
					Quantity:  item.Quantity,
					UnitPrice: item.UnitPrice,
				}); err != nil {
					return err
				}
				if err := s.reserveLine(ctx, tx, item.ProductID, item.Quantity, number, input.ActorID, now); err != nil {
					return err
				}
			}
			orderID = id
			return nil
		})
		if err == nil || !errors.Is(err, shared.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Order{}, fmt.Errorf("orders: order number generation exhausted: %w", err)
		}
		return Order{}, err
	}

	created, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, input.ActorID, "orders:create", created.ID, map[string]any{
		"order_number": created.OrderNumber,
		"client_id":    created.ClientID,
		"items":        len(created.Items),
	})
	return created, nil
}

// reserveLine moves available stock to reserved and records both sides of
// the move in the ledger.
func (s *Service) reserveLine(ctx context.Context, tx TxRepository, productID, qty int64, orderNumber string, actorID int64, now time.Time) error {
	if err := tx.ReserveStock(ctx, productID, qty, actorID); err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			return fmt.Errorf("%w: insufficient stock for product %d", shared.ErrInvalidState, productID)
		}
		return err
	}
	inventoryID, err := tx.ResolveInventoryID(ctx, productID)
	if err != nil {
		return fmt.Errorf("orders: resolve inventory id: %w", err)
	}
	err = tx.InsertMovement(ctx, inventory.Movement{
		InventoryID: inventoryID,
		Kind:        inventory.MovementKindAvailable,
		Delta:       -qty,
		Reason:      fmt.Sprintf("Reserved for order %s", orderNumber),
		ByUser:      actorID,
		CreatedAt:   now,
	})
	if err != nil {
		return err
	}
	return tx.InsertMovement(ctx, inventory.Movement{
		InventoryID: inventoryID,
		Kind:        inventory.MovementKindReserved,
		Delta:       qty,
		Reason:      fmt.Sprintf("Reserved for order %s", orderNumber),
		ByUser:      actorID,
		CreatedAt:   now,
	})
}

// Fulfil consumes the reservation of a PENDING order and marks it FULFILLED.
func (s *Service) Fulfil(ctx context.Context, orderID, actorID int64) (Order, error) {
	now := time.Now().UTC()
	var fulfilled Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusPending {
			return fmt.Errorf("%w: order %s is %s, fulfilment requires PENDING",
				shared.ErrInvalidState, order.OrderNumber, order.Status)
		}
		if err := tx.SetStatus(ctx, order.ID, StatusFulfilled, now); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := tx.ConsumeReserved(ctx, item.ProductID, item.Quantity, actorID); err != nil {
				return fmt.Errorf("orders: consume reservation for product %d: %w", item.ProductID, err)
			}
			inventoryID, err := tx.ResolveInventoryID(ctx, item.ProductID)
			if err != nil {
				return fmt.Errorf("orders: resolve inventory id: %w", err)
			}
			err = tx.InsertMovement(ctx, inventory.Movement{
				InventoryID: inventoryID,
				Kind:        inventory.MovementKindReserved,
				Delta:       -item.Quantity,
				Reason:      fmt.Sprintf("Order %s fulfilled", order.OrderNumber),
				ByUser:      actorID,
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
		}
		fulfilled = order
		fulfilled.Status = StatusFulfilled
		fulfilled.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actorID, "orders:fulfil", fulfilled.ID, map[string]any{"order_number": fulfilled.OrderNumber})
	return fulfilled, nil
}

// Cancel releases the reservation of a PENDING order and marks it CANCELLED.
func (s *Service) Cancel(ctx context.Context, orderID, actorID int64) (Order, error) {
	now := time.Now().UTC()
	var cancelled Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusPending {
			return fmt.Errorf("%w: order %s is %s, cancellation requires PENDING",
				shared.ErrInvalidState, order.OrderNumber, order.Status)
		}
		if err := tx.SetStatus(ctx, order.ID, StatusCancelled, now); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := tx.ReleaseStock(ctx, item.ProductID, item.Quantity, actorID); err != nil {
				return fmt.Errorf("orders: release reservation for product %d: %w", item.ProductID, err)
			}
			inventoryID, err := tx.ResolveInventoryID(ctx, item.ProductID)
			if err != nil {
				return fmt.Errorf("orders: resolve inventory id: %w", err)
			}
			err = tx.InsertMovement(ctx, inventory.Movement{
				InventoryID: inventoryID,
				Kind:        inventory.MovementKindReserved,
				Delta:       -item.Quantity,
				Reason:      fmt.Sprintf("Order %s cancelled", order.OrderNumber),
				ByUser:      actorID,
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
			err = tx.InsertMovement(ctx, inventory.Movement{
				InventoryID: inventoryID,
				Kind:        inventory.MovementKindAvailable,
				Delta:       item.Quantity,
				Reason:      fmt.Sprintf("Order %s cancelled", order.OrderNumber),
				ByUser:      actorID,
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
		}
		cancelled = order
		cancelled.Status = StatusCancelled
		cancelled.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actorID, "orders:cancel", cancelled.ID, map[string]any{"order_number": cancelled.OrderNumber})
	return cancelled, nil
}

// Get fetches one order with its items.
func (s *Service) Get(ctx context.Context, orderID int64) (Order, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, status *OrderStatus, clientID *int64, limit, offset int) ([]Order, error) {
	out, err := s.repo.ListOrders(ctx, status, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Order{}
	}
	return out, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "order",
		EntityID: fmt.Sprintf("%d", orderID),
		Meta:     meta,
	})
}
