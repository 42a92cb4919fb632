package stockin

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/lenana-drops/lenana/internal/inventory"
	"github.com/lenana-drops/lenana/internal/shared"
)

const maxNumberAttempts = 5

// NewIntakeNumber generates a random intake number. Uniqueness is enforced
// by the database; callers retry on a duplicate.
func NewIntakeNumber() string {
	return fmt.Sprintf("INTAKE-%05d", rand.IntN(100000))
}

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreateIntake(ctx context.Context, in Intake) (int64, error)
	GetIntake(ctx context.Context, id int64) (Intake, error)
	RejectIntake(ctx context.Context, id, reviewedBy int64, at time.Time) (bool, error)
	ListIntakes(ctx context.Context, status *IntakeStatus, limit, offset int) ([]Intake, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages stock intakes. Approval mirrors the QC settlement: the
// intake row is locked, inventory is credited additively and the ledger
// entry references the canonical inventory id read back after the upsert.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the stock-in service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateInput describes a new intake request.
type CreateInput struct {
	ProductID int64
	Quantity  int64
	Source    string
	Note      string
	ActorID   int64
}

// Create registers a PENDING intake.
func (s *Service) Create(ctx context.Context, input CreateInput) (Intake, error) {
	if input.ProductID <= 0 {
		return Intake{}, fmt.Errorf("%w: product id required", shared.ErrValidation)
	}
	if input.Quantity <= 0 {
		return Intake{}, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	}

	intake := Intake{
		ProductID: input.ProductID,
		Quantity:  input.Quantity,
		Source:    strings.TrimSpace(input.Source),
		Note:      strings.TrimSpace(input.Note),
		Status:    StatusPending,
		CreatedBy: input.ActorID,
	}

	var id int64
	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		intake.IntakeNumber = NewIntakeNumber()
		id, err = s.repo.CreateIntake(ctx, intake)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrDuplicate) {
			return Intake{}, err
		}
	}
	if err != nil {
		return Intake{}, fmt.Errorf("stockin: intake number generation exhausted: %w", err)
	}

	created, err := s.repo.GetIntake(ctx, id)
	if err != nil {
		return Intake{}, err
	}
	s.recordAudit(ctx, input.ActorID, "stockin:create", created.ID, map[string]any{
		"intake_number": created.IntakeNumber,
		"product_id":    created.ProductID,
		"quantity":      created.Quantity,
	})
	return created, nil
}

// Approve settles a PENDING intake in one atomic transaction: the intake
// becomes APPROVED, the product's available stock is credited and the ledger
// gains one entry. Approving twice fails on the state check against the
// locked row.
func (s *Service) Approve(ctx context.Context, intakeID, actorID int64) (Intake, error) {
	now := time.Now().UTC()
	var approved Intake
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		intake, err := tx.GetIntakeForUpdate(ctx, intakeID)
		if err != nil {
			return err
		}
		if intake.Status != StatusPending {
			return fmt.Errorf("%w: intake %s is %s, approval requires PENDING",
				shared.ErrInvalidState, intake.IntakeNumber, intake.Status)
		}

		if err := tx.MarkReviewed(ctx, intake.ID, StatusApproved, actorID, now); err != nil {
			return fmt.Errorf("stockin: mark approved: %w", err)
		}
		if err := tx.CreditInventory(ctx, intake.ProductID, intake.Quantity, now, actorID); err != nil {
			return fmt.Errorf("stockin: credit inventory: %w", err)
		}

		inventoryID, err := tx.ResolveInventoryID(ctx, intake.ProductID)
		if err != nil {
			return fmt.Errorf("stockin: resolve inventory id after upsert: %w", err)
		}

		err = tx.InsertMovement(ctx, inventory.Movement{
			InventoryID: inventoryID,
			Kind:        inventory.MovementKindAvailable,
			Delta:       intake.Quantity,
			Reason:      fmt.Sprintf("Stock intake %s approved - added to available stock", intake.IntakeNumber),
			ByUser:      actorID,
			CreatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("stockin: ledger entry: %w", err)
		}

		approved = intake
		approved.Status = StatusApproved
		approved.ReviewedBy = &actorID
		approved.ReviewedAt = &now
		return nil
	})
	if err != nil {
		return Intake{}, err
	}

	s.recordAudit(ctx, actorID, "stockin:approve", approved.ID, map[string]any{
		"intake_number": approved.IntakeNumber,
		"quantity":      approved.Quantity,
	})
	return approved, nil
}

// Reject moves a PENDING intake to REJECTED without touching stock.
func (s *Service) Reject(ctx context.Context, intakeID, actorID int64) (Intake, error) {
	ok, err := s.repo.RejectIntake(ctx, intakeID, actorID, time.Now().UTC())
	if err != nil {
		return Intake{}, err
	}
	if !ok {
		intake, ferr := s.repo.GetIntake(ctx, intakeID)
		if ferr != nil {
			return Intake{}, ferr
		}
		return Intake{}, fmt.Errorf("%w: intake %s is %s, rejection requires PENDING",
			shared.ErrInvalidState, intake.IntakeNumber, intake.Status)
	}
	intake, err := s.repo.GetIntake(ctx, intakeID)
	if err != nil {
		return Intake{}, err
	}
	s.recordAudit(ctx, actorID, "stockin:reject", intake.ID, map[string]any{"intake_number": intake.IntakeNumber})
	return intake, nil
}

// Get fetches one intake.
func (s *Service) Get(ctx context.Context, intakeID int64) (Intake, error) {
	return s.repo.GetIntake(ctx, intakeID)
}

// List returns intakes, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *IntakeStatus, limit, offset int) ([]Intake, error) {
	intakes, err := s.repo.ListIntakes(ctx, status, limit, offset)
	if err != nil {
		return nil, err
	}
	if intakes == nil {
		intakes = []Intake{}
	}
	return intakes, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, intakeID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock_intake",
		EntityID: fmt.Sprintf("%d", intakeID),
		Meta:     meta,
	})
}
