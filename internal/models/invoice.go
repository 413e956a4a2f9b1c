package models

import (
	"time"

	"github.com/google/uuid"
)

// ObligationStatus is shared by invoices and expenses. Only pending and
// overdue records are eligible match targets; paid is set by the
// reconciliation workflow.
type ObligationStatus string

const (
	StatusPending  ObligationStatus = "pending"
	StatusOverdue  ObligationStatus = "overdue"
	StatusPaid     ObligationStatus = "paid"
	StatusCanceled ObligationStatus = "canceled"
)

type Invoice struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNumber   string           `gorm:"uniqueIndex" json:"invoice_number"`
	StudentName     string           `gorm:"index" json:"student_name"`
	StudentDocument string           `json:"student_document"`
	AmountCents     int64            `gorm:"index" json:"amount_cents"`
	Status          ObligationStatus `gorm:"index" json:"status"`
	DueDate         time.Time        `json:"due_date"`
	PaymentDate     *time.Time       `json:"payment_date"`
	CreatedAt       time.Time        `json:"created_at"`
}
