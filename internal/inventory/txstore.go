package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// TxStore exposes inventory writes bound to a caller-owned transaction.
// Modules that must mutate stock atomically with their own rows (production
// QC approval, stock-in approval, order reservation) compose a TxStore over
// the same pgx.Tx instead of issuing separate fire-and-forget calls.
type TxStore struct {
	tx pgx.Tx
}

// NewTxStore binds a store to an open transaction.
func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{tx: tx}
}

// Credit applies an additive upsert: the record is created when missing,
// otherwise the deltas are merged into the existing row. The merge happens
// in SQL so concurrent writers cannot lose updates.
func (s *TxStore) Credit(ctx context.Context, productID, availableDelta, damagedDelta int64, countDate time.Time, updatedBy int64) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO inventory_records (product_id, quantity_available, quantity_damaged, last_stock_count_date, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (product_id) DO UPDATE SET
			quantity_available = inventory_records.quantity_available + EXCLUDED.quantity_available,
			quantity_damaged = inventory_records.quantity_damaged + EXCLUDED.quantity_damaged,
			last_stock_count_date = EXCLUDED.last_stock_count_date,
			updated_by = EXCLUDED.updated_by,
			updated_at = NOW()`,
		productID, availableDelta, damagedDelta, countDate, updatedBy)
	return err
}

// ResolveID returns the canonical persisted id for the product's record.
// Callers that just upserted must use this id for ledger rows rather than
// any id speculated before the upsert.
func (s *TxStore) ResolveID(ctx context.Context, productID int64) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `SELECT id FROM inventory_records WHERE product_id = $1`, productID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrRecordNotFound
		}
		return 0, err
	}
	return id, nil
}

// GetForUpdate locks the product's record for the rest of the transaction.
func (s *TxStore) GetForUpdate(ctx context.Context, productID int64) (Record, error) {
	var rec Record
	err := s.tx.QueryRow(ctx, `
		SELECT id, product_id, quantity_available, quantity_reserved, quantity_damaged, last_stock_count_date, COALESCE(updated_by, 0), updated_at
		FROM inventory_records WHERE product_id = $1 FOR UPDATE`, productID).
		Scan(&rec.ID, &rec.ProductID, &rec.QuantityAvailable, &rec.QuantityReserved, &rec.QuantityDamaged, &rec.LastStockCountDate, &rec.UpdatedBy, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// Reserve moves quantity from available to reserved. The guard in the WHERE
// clause keeps available non-negative; zero rows affected means insufficient
// stock (or no record at all).
func (s *TxStore) Reserve(ctx context.Context, productID, qty, updatedBy int64) error {
	tag, err := s.tx.Exec(ctx, `
		UPDATE inventory_records SET
			quantity_available = quantity_available - $2,
			quantity_reserved = quantity_reserved + $2,
			updated_by = $3,
			updated_at = NOW()
		WHERE product_id = $1 AND quantity_available >= $2`,
		productID, qty, updatedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// Release moves quantity back from reserved to available, capped at the
// currently reserved amount.
func (s *TxStore) Release(ctx context.Context, productID, qty, updatedBy int64) error {
	tag, err := s.tx.Exec(ctx, `
		UPDATE inventory_records SET
			quantity_available = quantity_available + $2,
			quantity_reserved = quantity_reserved - $2,
			updated_by = $3,
			updated_at = NOW()
		WHERE product_id = $1 AND quantity_reserved >= $2`,
		productID, qty, updatedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// ConsumeReserved removes quantity from reserved when an order ships.
func (s *TxStore) ConsumeReserved(ctx context.Context, productID, qty, updatedBy int64) error {
	tag, err := s.tx.Exec(ctx, `
		UPDATE inventory_records SET
			quantity_reserved = quantity_reserved - $2,
			updated_by = $3,
			updated_at = NOW()
		WHERE product_id = $1 AND quantity_reserved >= $2`,
		productID, qty, updatedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// SetAvailable overwrites the available quantity for a locked record.
// Used by manual adjustments after computing the floored target value.
func (s *TxStore) SetAvailable(ctx context.Context, productID, quantity, updatedBy int64, countDate time.Time) error {
	_, err := s.tx.Exec(ctx, `
		UPDATE inventory_records SET
			quantity_available = $2,
			last_stock_count_date = $3,
			updated_by = $4,
			updated_at = NOW()
		WHERE product_id = $1`,
		productID, quantity, countDate, updatedBy)
	return err
}

// InsertMovement appends a ledger entry. The inventory id must reference a
// persisted record; entries are never updated or deleted.
func (s *TxStore) InsertMovement(ctx context.Context, m Movement) error {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.tx.Exec(ctx, `
		INSERT INTO stock_movements (inventory_id, kind, delta, reason, by_user, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.InventoryID, m.Kind, m.Delta, m.Reason, m.ByUser, createdAt)
	return err
}
