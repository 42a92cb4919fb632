package production

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lenana-drops/lenana/internal/inventory"
	"github.com/lenana-drops/lenana/internal/platform/db"
	"github.com/lenana-drops/lenana/internal/shared"
)

const batchColumns = `id, batch_number, product_id, product_name, quantity_planned, quantity_completed,
	defective_qty, passed_qty, status, quality_check_passed, rejection_reason, qc_notes, qc_by, qc_at,
	production_date, production_start_time, production_end_time, created_by, created_at, updated_at`

// TxRepository exposes the operations available inside the QC transaction.
// Inventory writes are bound to the same pgx.Tx as the batch update so the
// whole approval commits or rolls back as one unit.
type TxRepository interface {
	GetBatchForUpdate(ctx context.Context, id int64) (Batch, error)
	ApproveBatch(ctx context.Context, id, defectiveQty, passedQty int64, notes string, qcBy int64, qcAt time.Time) error
	CreditInventory(ctx context.Context, productID, availableDelta, damagedDelta int64, countDate time.Time, updatedBy int64) error
	ResolveInventoryID(ctx context.Context, productID int64) (int64, error)
	InsertMovement(ctx context.Context, m inventory.Movement) error
}

// Repository persists production batches in PostgreSQL.
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

// CreateBatch inserts a new batch row. A batch number collision surfaces as
// shared.ErrDuplicate so the caller can regenerate and retry.
func (r *Repository) CreateBatch(ctx context.Context, b Batch) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO production_batches (batch_number, product_id, product_name, quantity_planned, status, production_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		b.BatchNumber, b.ProductID, b.ProductName, b.QuantityPlanned, b.Status, b.ProductionDate, b.CreatedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: batch number %s", shared.ErrDuplicate, b.BatchNumber)
		}
		return 0, err
	}
	return id, nil
}

// GetBatch fetches one batch by internal id.
func (r *Repository) GetBatch(ctx context.Context, id int64) (Batch, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM production_batches WHERE id = $1`, id)
	return scanBatch(row)
}

// GetBatchByNumber fetches one batch by its human-facing number.
func (r *Repository) GetBatchByNumber(ctx context.Context, number string) (Batch, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM production_batches WHERE batch_number = $1`, number)
	return scanBatch(row)
}

// StartBatch performs the guarded PENDING -> IN_PROGRESS update. False with
// a nil error means zero rows matched; the caller disambiguates not-found
// from wrong-state by re-fetching.
func (r *Repository) StartBatch(ctx context.Context, id int64, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE production_batches SET status = $2, production_start_time = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, StatusInProgress, at, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteBatch performs the guarded IN_PROGRESS -> COMPLETED update.
func (r *Repository) CompleteBatch(ctx context.Context, id, quantityCompleted int64, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE production_batches SET status = $2, quantity_completed = $3, production_end_time = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5`,
		id, StatusCompleted, quantityCompleted, at, StatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RejectBatch performs the guarded update to REJECTED, allowed from PENDING
// or COMPLETED only.
func (r *Repository) RejectBatch(ctx context.Context, id int64, reason string, qcBy int64, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE production_batches SET status = $2, rejection_reason = $3, quality_check_passed = FALSE, qc_by = $4, qc_at = $5, updated_at = NOW()
		WHERE id = $1 AND status IN ($6, $7)`,
		id, StatusRejected, reason, qcBy, at, StatusPending, StatusCompleted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListBatches returns batches matching the filter.
func (r *Repository) ListBatches(ctx context.Context, filter ListFilter) ([]Batch, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filter.Status)
		argPos++
	}
	if filter.ProductID != nil {
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", argPos))
		args = append(args, *filter.ProductID)
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(batch_number ILIKE $%d OR product_name ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("production_date >= $%d", argPos))
		args = append(args, *filter.DateFrom)
		argPos++
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("production_date <= $%d", argPos))
		args = append(args, *filter.DateTo)
		argPos++
	}

	query := `SELECT ` + batchColumns + ` FROM production_batches`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	switch filter.Sort {
	case "oldest":
		query += " ORDER BY created_at ASC, id ASC"
	case "product":
		query += " ORDER BY product_name ASC, created_at DESC"
	default:
		query += " ORDER BY created_at DESC, id DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// GetBatchForUpdate locks the batch row for the rest of the transaction,
// serialising concurrent QC submissions for the same batch.
func (r *txRepo) GetBatchForUpdate(ctx context.Context, id int64) (Batch, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+batchColumns+` FROM production_batches WHERE id = $1 FOR UPDATE`, id)
	return scanBatch(row)
}

func (r *txRepo) ApproveBatch(ctx context.Context, id, defectiveQty, passedQty int64, notes string, qcBy int64, qcAt time.Time) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE production_batches SET
			status = $2, quality_check_passed = TRUE,
			defective_qty = $3, passed_qty = $4,
			qc_notes = NULLIF($5, ''), qc_by = $6, qc_at = $7,
			updated_at = NOW()
		WHERE id = $1`,
		id, StatusApproved, defectiveQty, passedQty, notes, qcBy, qcAt)
	return err
}

func (r *txRepo) CreditInventory(ctx context.Context, productID, availableDelta, damagedDelta int64, countDate time.Time, updatedBy int64) error {
	return r.stock.Credit(ctx, productID, availableDelta, damagedDelta, countDate, updatedBy)
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

func scanBatch(row rowScanner) (Batch, error) {
	var b Batch
	err := row.Scan(
		&b.ID, &b.BatchNumber, &b.ProductID, &b.ProductName, &b.QuantityPlanned, &b.QuantityCompleted,
		&b.DefectiveQty, &b.PassedQty, &b.Status, &b.QualityCheckPassed, &b.RejectionReason, &b.QCNotes, &b.QCBy, &b.QCAt,
		&b.ProductionDate, &b.StartedAt, &b.EndedAt, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Batch{}, fmt.Errorf("%w: batch", shared.ErrNotFound)
		}
		return Batch{}, err
	}
	return b, nil
}
