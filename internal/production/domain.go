package production

import "time"

// BatchStatus enumerates the batch lifecycle.
// PENDING -> IN_PROGRESS -> COMPLETED -> APPROVED, with REJECTED reachable
// from PENDING or COMPLETED. APPROVED and REJECTED are terminal.
type BatchStatus string

const (
	StatusPending    BatchStatus = "PENDING"
	StatusInProgress BatchStatus = "IN_PROGRESS"
	StatusCompleted  BatchStatus = "COMPLETED"
	StatusApproved   BatchStatus = "APPROVED"
	StatusRejected   BatchStatus = "REJECTED"
)

// Batch models one production run of a product.
// ProductName is a snapshot taken at creation; later product renames do not
// touch it, so historical batches keep their audit trail stable.
type Batch struct {
	ID                 int64       `json:"id"`
	BatchNumber        string      `json:"batch_number"`
	ProductID          int64       `json:"product_id"`
	ProductName        string      `json:"product_name"`
	QuantityPlanned    int64       `json:"quantity_planned"`
	QuantityCompleted  *int64      `json:"quantity_completed,omitempty"`
	DefectiveQty       *int64      `json:"defective_qty,omitempty"`
	PassedQty          *int64      `json:"passed_qty,omitempty"`
	Status             BatchStatus `json:"status"`
	QualityCheckPassed bool        `json:"quality_check_passed"`
	RejectionReason    *string     `json:"rejection_reason,omitempty"`
	QCNotes            *string     `json:"qc_notes,omitempty"`
	QCBy               *int64      `json:"qc_by,omitempty"`
	QCAt               *time.Time  `json:"qc_at,omitempty"`
	ProductionDate     time.Time   `json:"production_date"`
	StartedAt          *time.Time  `json:"production_start_time,omitempty"`
	EndedAt            *time.Time  `json:"production_end_time,omitempty"`
	CreatedBy          int64       `json:"created_by"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// ListFilter narrows and orders batch listings.
type ListFilter struct {
	Status    *BatchStatus
	ProductID *int64
	Search    string
	DateFrom  *time.Time
	DateTo    *time.Time
	Sort      string // newest | oldest | product
	Limit     int
	Offset    int
}
