package orders

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

// TxRepository exposes the operations available inside order transactions.
// Stock operations run against the same transaction as the order rows.
type TxRepository interface {
	InsertOrder(ctx context.Context, o Order) (int64, error)
	InsertItem(ctx context.Context, item Item) error
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	SetStatus(ctx context.Context, id int64, status OrderStatus, at time.Time) error
	ReserveStock(ctx context.Context, productID, qty, updatedBy int64) error
	ReleaseStock(ctx context.Context, productID, qty, updatedBy int64) error
	ConsumeReserved(ctx context.Context, productID, qty, updatedBy int64) error
	ResolveInventoryID(ctx context.Context, productID int64) (int64, error)
	InsertMovement(ctx context.Context, m inventory.Movement) error
}

// Repository persists orders in PostgreSQL.
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

// GetOrder fetches one order with its items.
func (r *Repository) GetOrder(ctx context.Context, id int64) (Order, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, order_number, client_id, status, total_amount, COALESCE(note, ''), created_by, created_at, updated_at
		FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}
	items, err := r.listItems(ctx, r.pool, id)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

// ListOrders returns orders without item details.
func (r *Repository) ListOrders(ctx context.Context, status *OrderStatus, clientID *int64, limit, offset int) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_number, client_id, status, total_amount, COALESCE(note, ''), created_by, created_at, updated_at
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::bigint IS NULL OR client_id = $2)
		ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`,
		status, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) listItems(ctx context.Context, q querier, orderID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *txRepo) InsertOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, client_id, status, total_amount, note, created_by)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id`,
		o.OrderNumber, o.ClientID, o.Status, o.TotalAmount, o.Note, o.CreatedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: order number %s", shared.ErrDuplicate, o.OrderNumber)
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepo) InsertItem(ctx context.Context, item Item) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)`,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPrice)
	return err
}

func (r *txRepo) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	row := r.tx.QueryRow(ctx, `
		SELECT id, order_number, client_id, status, total_amount, COALESCE(note, ''), created_by, created_at, updated_at
		FROM orders WHERE id = $1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}
	items, err := listItemsTx(ctx, r.tx, id)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

func listItemsTx(ctx context.Context, tx pgx.Tx, orderID int64) ([]Item, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *txRepo) SetStatus(ctx context.Context, id int64, status OrderStatus, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
	return err
}

func (r *txRepo) ReserveStock(ctx context.Context, productID, qty, updatedBy int64) error {
	return r.stock.Reserve(ctx, productID, qty, updatedBy)
}

func (r *txRepo) ReleaseStock(ctx context.Context, productID, qty, updatedBy int64) error {
	return r.stock.Release(ctx, productID, qty, updatedBy)
}

func (r *txRepo) ConsumeReserved(ctx context.Context, productID, qty, updatedBy int64) error {
	return r.stock.ConsumeReserved(ctx, productID, qty, updatedBy)
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

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.ClientID, &o.Status, &o.TotalAmount, &o.Note, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, fmt.Errorf("%w: order", shared.ErrNotFound)
		}
		return Order{}, err
	}
	return o, nil
}
