package models

import (
	"time"

	"github.com/google/uuid"
)

// StatementImport records one delivery from the import pipeline, for
// provenance and for scoping a matching run to a single statement.
type StatementImport struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID         string     `gorm:"index" json:"account_id"`
	Filename          string     `json:"filename"`
	TotalTransactions int        `json:"total_transactions"`
	DuplicateCount    int        `json:"duplicate_count"`
	Status            string     `json:"status"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at"`
	CreatedAt         time.Time  `json:"created_at"`
}
