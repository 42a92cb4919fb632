package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lenana-drops/lenana/internal/platform/db"
)

// TxRepository exposes the transactional operations used by Service.
// *TxStore is the PostgreSQL implementation.
type TxRepository interface {
	GetForUpdate(ctx context.Context, productID int64) (Record, error)
	Credit(ctx context.Context, productID, availableDelta, damagedDelta int64, countDate time.Time, updatedBy int64) error
	ResolveID(ctx context.Context, productID int64) (int64, error)
	SetAvailable(ctx context.Context, productID, quantity, updatedBy int64, countDate time.Time) error
	InsertMovement(ctx context.Context, m Movement) error
}

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn against a TxStore inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxStore(tx))
	})
}

// Get returns the record for a product.
func (r *Repository) Get(ctx context.Context, productID int64) (Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, `
		SELECT id, product_id, quantity_available, quantity_reserved, quantity_damaged, last_stock_count_date, COALESCE(updated_by, 0), updated_at
		FROM inventory_records WHERE product_id = $1`, productID).
		Scan(&rec.ID, &rec.ProductID, &rec.QuantityAvailable, &rec.QuantityReserved, &rec.QuantityDamaged, &rec.LastStockCountDate, &rec.UpdatedBy, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// List returns records ordered by product id.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, quantity_available, quantity_reserved, quantity_damaged, last_stock_count_date, COALESCE(updated_by, 0), updated_at
		FROM inventory_records ORDER BY product_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.QuantityAvailable, &rec.QuantityReserved, &rec.QuantityDamaged, &rec.LastStockCountDate, &rec.UpdatedBy, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ListMovements returns the ledger for a product, newest first.
func (r *Repository) ListMovements(ctx context.Context, productID int64, limit, offset int) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.inventory_id, m.kind, m.delta, m.reason, COALESCE(m.by_user, 0), m.created_at
		FROM stock_movements m
		JOIN inventory_records ir ON ir.id = m.inventory_id
		WHERE ir.product_id = $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2 OFFSET $3`, productID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.InventoryID, &m.Kind, &m.Delta, &m.Reason, &m.ByUser, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

// SumAvailableDeltas totals AVAILABLE ledger deltas for a product. Used by
// the reconciliation job to compare the ledger against quantity_available.
func (r *Repository) SumAvailableDeltas(ctx context.Context, productID int64) (int64, error) {
	var sum int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(m.delta), 0)
		FROM stock_movements m
		JOIN inventory_records ir ON ir.id = m.inventory_id
		WHERE ir.product_id = $1 AND m.kind = $2`, productID, MovementKindAvailable).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("inventory: sum available deltas: %w", err)
	}
	return sum, nil
}

// ListProductIDs returns every product id that has an inventory record.
func (r *Repository) ListProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id FROM inventory_records ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
