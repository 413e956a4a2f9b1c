package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchAuditLog is appended in the same storage transaction as the
// reconciliation mutation it records.
type MatchAuditLog struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID  uuid.UUID   `gorm:"index" json:"transaction_id"`
	Action         string      `json:"action"`
	MatchedType    MatchedType `json:"matched_type"`
	PreviousTarget *uuid.UUID  `json:"previous_target"`
	NewTarget      *uuid.UUID  `json:"new_target"`
	PerformedBy    string      `json:"performed_by"`
	Reason         string      `json:"reason"`
	CreatedAt      time.Time   `json:"created_at"`
}
