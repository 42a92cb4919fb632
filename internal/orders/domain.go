package orders

import "time"

// OrderStatus enumerates the order lifecycle.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusFulfilled OrderStatus = "FULFILLED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// Item is one product line on an order.
type Item struct {
	ID        int64   `json:"id"`
	OrderID   int64   `json:"order_id"`
	ProductID int64   `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Order reserves stock at creation and consumes the reservation when
// fulfilled. Cancellation returns the reservation to available stock.
type Order struct {
	ID          int64       `json:"id"`
	OrderNumber string      `json:"order_number"`
	ClientID    int64       `json:"client_id"`
	Status      OrderStatus `json:"status"`
	Items       []Item      `json:"items,omitempty"`
	TotalAmount float64     `json:"total_amount"`
	Note        string      `json:"note,omitempty"`
	CreatedBy   int64       `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
