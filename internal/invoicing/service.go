package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lenana-drops/lenana/internal/orders"
	"github.com/lenana-drops/lenana/internal/shared"
)

const maxNumberAttempts = 5

// InvoiceNumber formats a per-month sequential invoice number, e.g.
// INV-202608-0042.
func InvoiceNumber(at time.Time, seq int) string {
	return fmt.Sprintf("INV-%s-%04d", at.Format("200601"), seq)
}

// MonthPrefix returns the number prefix for the given month, used when
// querying the next sequence.
func MonthPrefix(at time.Time) string {
	return fmt.Sprintf("INV-%s-", at.Format("200601"))
}

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, inv Invoice) (int64, error)
	NextSequence(ctx context.Context, prefix string) (int, error)
	Get(ctx context.Context, id int64) (Invoice, error)
	GetByOrder(ctx context.Context, orderID int64) (Invoice, error)
	SetStatus(ctx context.Context, id int64, status InvoiceStatus, paidAt *time.Time) (bool, error)
	List(ctx context.Context, status *InvoiceStatus, clientID *int64, limit, offset int) ([]Invoice, error)
}

// OrderLookup resolves the order an invoice bills.
type OrderLookup interface {
	Get(ctx context.Context, orderID int64) (orders.Order, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service issues invoices for fulfilled orders. Numbering is sequential per
// month; the unique constraint on invoice_number settles races between
// concurrent issuers and the loser retries with a fresh sequence.
type Service struct {
	repo   RepositoryPort
	orders OrderLookup
	audit  AuditPort
}

// NewService constructs the invoicing service.
func NewService(repo RepositoryPort, orderLookup OrderLookup, audit AuditPort) *Service {
	return &Service{repo: repo, orders: orderLookup, audit: audit}
}

// Issue creates an invoice for a fulfilled order. One invoice per order; a
// second attempt fails with ErrDuplicate from the order_id constraint.
func (s *Service) Issue(ctx context.Context, orderID, actorID int64) (Invoice, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return Invoice{}, err
	}
	if order.Status != orders.StatusFulfilled {
		return Invoice{}, fmt.Errorf("%w: order %s is %s, invoicing requires FULFILLED",
			shared.ErrInvalidState, order.OrderNumber, order.Status)
	}

	now := time.Now().UTC()
	prefix := MonthPrefix(now)

	var id int64
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		seq, serr := s.repo.NextSequence(ctx, prefix)
		if serr != nil {
			return Invoice{}, serr
		}
		id, err = s.repo.Create(ctx, Invoice{
			InvoiceNumber: InvoiceNumber(now, seq),
			OrderID:       order.ID,
			ClientID:      order.ClientID,
			Amount:        order.TotalAmount,
			Status:        StatusIssued,
			IssuedBy:      actorID,
			IssuedAt:      now,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrDuplicate) {
			return Invoice{}, err
		}
		// A duplicate on order_id means the order is already invoiced, not a
		// sequence race. Report it instead of retrying forever.
		if _, gerr := s.repo.GetByOrder(ctx, order.ID); gerr == nil {
			return Invoice{}, fmt.Errorf("%w: order %s already invoiced", shared.ErrDuplicate, order.OrderNumber)
		}
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("invoicing: number generation exhausted: %w", err)
	}

	created, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, actorID, "invoicing:issue", created.ID, map[string]any{
		"invoice_number": created.InvoiceNumber,
		"order_id":       created.OrderID,
		"amount":         created.Amount,
	})
	return created, nil
}

// MarkPaid transitions ISSUED -> PAID.
func (s *Service) MarkPaid(ctx context.Context, invoiceID, actorID int64) (Invoice, error) {
	now := time.Now().UTC()
	ok, err := s.repo.SetStatus(ctx, invoiceID, StatusPaid, &now)
	if err != nil {
		return Invoice{}, err
	}
	if !ok {
		return Invoice{}, s.transitionConflict(ctx, invoiceID)
	}
	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, actorID, "invoicing:paid", inv.ID, map[string]any{"invoice_number": inv.InvoiceNumber})
	return inv, nil
}

// Void transitions ISSUED -> VOID.
func (s *Service) Void(ctx context.Context, invoiceID, actorID int64) (Invoice, error) {
	ok, err := s.repo.SetStatus(ctx, invoiceID, StatusVoid, nil)
	if err != nil {
		return Invoice{}, err
	}
	if !ok {
		return Invoice{}, s.transitionConflict(ctx, invoiceID)
	}
	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, actorID, "invoicing:void", inv.ID, map[string]any{"invoice_number": inv.InvoiceNumber})
	return inv, nil
}

// Get fetches one invoice.
func (s *Service) Get(ctx context.Context, invoiceID int64) (Invoice, error) {
	return s.repo.Get(ctx, invoiceID)
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, status *InvoiceStatus, clientID *int64, limit, offset int) ([]Invoice, error) {
	out, err := s.repo.List(ctx, status, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Invoice{}
	}
	return out, nil
}

func (s *Service) transitionConflict(ctx context.Context, invoiceID int64) error {
	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: invoice %s is %s, expected ISSUED", shared.ErrInvalidState, inv.InvoiceNumber, inv.Status)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, invoiceID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "invoice",
		EntityID: fmt.Sprintf("%d", invoiceID),
		Meta:     meta,
	})
}
