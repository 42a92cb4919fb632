package inventory

import (
	"errors"
	"time"
)

// MovementKind classifies which bucket of a record a movement touches.
// Deltas are signed: credits are positive, outbound movements negative.
// The kind is authoritative; reason text is informational only.
type MovementKind string

const (
	// MovementKindAvailable affects quantity_available.
	MovementKindAvailable MovementKind = "AVAILABLE"
	// MovementKindDamaged affects quantity_damaged.
	MovementKindDamaged MovementKind = "DAMAGED"
	// MovementKindReserved affects quantity_reserved.
	MovementKindReserved MovementKind = "RESERVED"
)

// Record summarises stock on hand per product.
type Record struct {
	ID                 int64     `json:"id"`
	ProductID          int64     `json:"product_id"`
	QuantityAvailable  int64     `json:"quantity_available"`
	QuantityReserved   int64     `json:"quantity_reserved"`
	QuantityDamaged    int64     `json:"quantity_damaged"`
	LastStockCountDate time.Time `json:"last_stock_count_date"`
	UpdatedBy          int64     `json:"updated_by"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TotalOnHand is the sum of all buckets.
func (r Record) TotalOnHand() int64 {
	return r.QuantityAvailable + r.QuantityReserved + r.QuantityDamaged
}

// Movement is one append-only ledger entry referencing a persisted record.
type Movement struct {
	ID          int64        `json:"id"`
	InventoryID int64        `json:"inventory_id"`
	Kind        MovementKind `json:"kind"`
	Delta       int64        `json:"delta"`
	Reason      string       `json:"reason"`
	ByUser      int64        `json:"by_user"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ErrRecordNotFound indicates no inventory record exists for the product.
var ErrRecordNotFound = errors.New("inventory: record not found")

// ErrInsufficientStock triggered when a reservation exceeds available stock.
var ErrInsufficientStock = errors.New("inventory: insufficient available stock")
