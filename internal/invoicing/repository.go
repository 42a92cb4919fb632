package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lenana-drops/lenana/internal/shared"
)

const invoiceColumns = `id, invoice_number, order_id, client_id, amount, status, issued_by, issued_at, paid_at`

// Repository persists invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an invoice. Unique constraints exist on invoice_number and
// order_id; both surface as ErrDuplicate.
func (r *Repository) Create(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO invoices (invoice_number, order_id, client_id, amount, status, issued_by, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		inv.InvoiceNumber, inv.OrderID, inv.ClientID, inv.Amount, inv.Status, inv.IssuedBy, inv.IssuedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: %s", shared.ErrDuplicate, pgErr.ConstraintName)
		}
		return 0, err
	}
	return id, nil
}

// NextSequence returns the next per-month sequence number for the given
// prefix, e.g. "INV-202608-".
func (r *Repository) NextSequence(ctx context.Context, prefix string) (int, error) {
	var max int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(invoice_number FROM LENGTH($1::text) + 1) AS integer)), 0)
		FROM invoices WHERE invoice_number LIKE $1 || '%'`, prefix).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// Get fetches one invoice.
func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

// GetByOrder fetches the invoice issued for an order.
func (r *Repository) GetByOrder(ctx context.Context, orderID int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1`, orderID)
	return scanInvoice(row)
}

// SetStatus performs a guarded status transition from ISSUED.
func (r *Repository) SetStatus(ctx context.Context, id int64, status InvoiceStatus, paidAt *time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices SET status = $2, paid_at = $3
		WHERE id = $1 AND status = $4`,
		id, status, paidAt, StatusIssued)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// List returns invoices, optionally filtered by status or client.
func (r *Repository) List(ctx context.Context, status *InvoiceStatus, clientID *int64, limit, offset int) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::bigint IS NULL OR client_id = $2)
		ORDER BY issued_at DESC, id DESC LIMIT $3 OFFSET $4`,
		status, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.OrderID, &inv.ClientID, &inv.Amount, &inv.Status, &inv.IssuedBy, &inv.IssuedAt, &inv.PaidAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, fmt.Errorf("%w: invoice", shared.ErrNotFound)
		}
		return Invoice{}, err
	}
	return inv, nil
}
