package stockin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lenana-drops/lenana/internal/inventory"
	"github.com/lenana-drops/lenana/internal/platform/db"
	"github.com/lenana-drops/lenana/internal/shared"
)

const intakeColumns = `id, intake_number, product_id, quantity, COALESCE(source, ''), COALESCE(note, ''), status, created_by, reviewed_by, reviewed_at, created_at`

// TxRepository exposes the operations available inside the approval
// transaction.
type TxRepository interface {
	GetIntakeForUpdate(ctx context.Context, id int64) (Intake, error)
	MarkReviewed(ctx context.Context, id int64, status IntakeStatus, reviewedBy int64, reviewedAt time.Time) error
	CreditInventory(ctx context.Context, productID, availableDelta int64, countDate time.Time, updatedBy int64) error
	ResolveInventoryID(ctx context.Context, productID int64) (int64, error)
	InsertMovement(ctx context.Context, m inventory.Movement) error
}

// Repository persists stock intakes in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx    pgx.Tx
	stock *inventory.TxStore
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, stock: inventory.NewTxStore(tx)})
	})
}

// CreateIntake inserts a new PENDING intake.
func (r *Repository) CreateIntake(ctx context.Context, in Intake) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO stock_intakes (intake_number, product_id, quantity, source, note, status, created_by)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		RETURNING id`,
		in.IntakeNumber, in.ProductID, in.Quantity, in.Source, in.Note, in.Status, in.CreatedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: intake number %s", shared.ErrDuplicate, in.IntakeNumber)
		}
		return 0, err
	}
	return id, nil
}

// GetIntake fetches one intake.
func (r *Repository) GetIntake(ctx context.Context, id int64) (Intake, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+intakeColumns+` FROM stock_intakes WHERE id = $1`, id)
	return scanIntake(row)
}

// RejectIntake performs a guarded PENDING -> REJECTED update.
func (r *Repository) RejectIntake(ctx context.Context, id, reviewedBy int64, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE stock_intakes SET status = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $1 AND status = $5`,
		id, StatusRejected, reviewedBy, at, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListIntakes returns intakes, optionally filtered by status.
func (r *Repository) ListIntakes(ctx context.Context, status *IntakeStatus, limit, offset int) ([]Intake, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+intakeColumns+` FROM stock_intakes
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Intake
	for rows.Next() {
		in, err := scanIntake(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *txRepo) GetIntakeForUpdate(ctx context.Context, id int64) (Intake, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+intakeColumns+` FROM stock_intakes WHERE id = $1 FOR UPDATE`, id)
	return scanIntake(row)
}

func (r *txRepo) MarkReviewed(ctx context.Context, id int64, status IntakeStatus, reviewedBy int64, reviewedAt time.Time) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE stock_intakes SET status = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $1`,
		id, status, reviewedBy, reviewedAt)
	return err
}

func (r *txRepo) CreditInventory(ctx context.Context, productID, availableDelta int64, countDate time.Time, updatedBy int64) error {
	return r.stock.Credit(ctx, productID, availableDelta, 0, countDate, updatedBy)
}

func (r *txRepo) ResolveInventoryID(ctx context.Context, productID int64) (int64, error) {
	return r.stock.ResolveID(ctx, productID)
}

func (r *txRepo) InsertMovement(ctx context.Context, m inventory.Movement) error {
	return r.stock.InsertMovement(ctx, m)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntake(row rowScanner) (Intake, error) {
	var in Intake
	err := row.Scan(&in.ID, &in.IntakeNumber, &in.ProductID, &in.Quantity, &in.Source, &in.Note, &in.Status, &in.CreatedBy, &in.ReviewedBy, &in.ReviewedAt, &in.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Intake{}, fmt.Errorf("%w: intake", shared.ErrNotFound)
		}
		return Intake{}, err
	}
	return in, nil
}
