package stockin

import "time"

// IntakeStatus enumerates the intake lifecycle. PENDING intakes await a
// checker's verdict; APPROVED and REJECTED are terminal.
type IntakeStatus string

const (
	StatusPending  IntakeStatus = "PENDING"
	StatusApproved IntakeStatus = "APPROVED"
	StatusRejected IntakeStatus = "REJECTED"
)

// Intake records stock arriving from outside production, e.g. returned
// goods or purchased stock. Approval credits inventory and appends to the
// stock movement ledger in the same transaction.
type Intake struct {
	ID           int64        `json:"id"`
	IntakeNumber string       `json:"intake_number"`
	ProductID    int64        `json:"product_id"`
	Quantity     int64        `json:"quantity"`
	Source       string       `json:"source,omitempty"`
	Note         string       `json:"note,omitempty"`
	Status       IntakeStatus `json:"status"`
	CreatedBy    int64        `json:"created_by"`
	ReviewedBy   *int64       `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time   `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
