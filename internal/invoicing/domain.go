package invoicing

import "time"

// InvoiceStatus enumerates the invoice lifecycle.
type InvoiceStatus string

const (
	StatusIssued InvoiceStatus = "ISSUED"
	StatusPaid   InvoiceStatus = "PAID"
	StatusVoid   InvoiceStatus = "VOID"
)

// Invoice is a billing record generated from a fulfilled order. Numbers are
// sequential per calendar month, format INV-YYYYMM-NNNN.
type Invoice struct {
	ID            int64         `json:"id"`
	InvoiceNumber string        `json:"invoice_number"`
	OrderID       int64         `json:"order_id"`
	ClientID      int64         `json:"client_id"`
	Amount        float64       `json:"amount"`
	Status        InvoiceStatus `json:"status"`
	IssuedBy      int64         `json:"issued_by"`
	IssuedAt      time.Time     `json:"issued_at"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}
