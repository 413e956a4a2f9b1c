package models

import (
	"time"

	"github.com/google/uuid"
)

type Expense struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	PayeeName     string           `gorm:"index" json:"payee_name"`
	PayeeDocument string           `json:"payee_document"`
	Description   string           `json:"description"`
	AmountCents   int64            `gorm:"index" json:"amount_cents"`
	Status        ObligationStatus `gorm:"index" json:"status"`
	DueDate       time.Time        `json:"due_date"`
	PaymentDate   *time.Time       `json:"payment_date"`
	CreatedAt     time.Time        `json:"created_at"`
}
