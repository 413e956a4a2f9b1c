package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TransactionType is the polarity of a bank transaction. Credits settle
// invoices (receivables), debits settle expenses (payables).
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

func (t TransactionType) IsValid() bool {
	return t == TransactionCredit || t == TransactionDebit
}

// ParsedType is the transaction subtype extracted upstream from the bank
// memo. Display labels live in the handler layer, not here.
type ParsedType string

const (
	ParsedPix    ParsedType = "pix"
	ParsedTed    ParsedType = "ted"
	ParsedDoc    ParsedType = "doc"
	ParsedBoleto ParsedType = "boleto"
	ParsedCard   ParsedType = "card"
	ParsedFee    ParsedType = "fee"
	ParsedOther  ParsedType = "other"
)

// MatchStatus is the persisted lifecycle of a transaction. Suggestions are
// transient engine output and never stored as a status.
type MatchStatus string

const (
	MatchUnmatched MatchStatus = "unmatched"
	MatchAuto      MatchStatus = "auto_matched"
	MatchManual    MatchStatus = "manual_matched"
	MatchIgnored   MatchStatus = "ignored"
)

func (s MatchStatus) IsMatched() bool {
	return s == MatchAuto || s == MatchManual
}

// Confidence is the match confidence tier, ordered High > Medium > Low >
// Manual via Rank.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceManual Confidence = "manual"
)

func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	case ConfidenceManual:
		return 0
	}
	return -1
}

// MatchedType identifies which kind of obligation a transaction settles.
type MatchedType string

const (
	MatchedInvoice MatchedType = "invoice"
	MatchedExpense MatchedType = "expense"
)

func (m MatchedType) IsValid() bool {
	return m == MatchedInvoice || m == MatchedExpense
}

type BankTransaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ImportID        uuid.UUID       `gorm:"index" json:"import_id"`
	AccountID       string          `gorm:"index:idx_account_fit,unique" json:"account_id"`
	FitID           string          `gorm:"index:idx_account_fit,unique" json:"fit_id"`
	TransactionType TransactionType `gorm:"index" json:"transaction_type"`
	PostedDate      time.Time       `json:"posted_date"`
	// AmountCents is always positive; the sign is implied by TransactionType.
	AmountCents    int64      `gorm:"index" json:"amount_cents"`
	Memo           string     `json:"memo"`
	ParsedType     ParsedType `json:"parsed_type"`
	ParsedName     string     `json:"parsed_name"`
	ParsedDocument string     `json:"parsed_document"`

	MatchStatus      MatchStatus    `gorm:"index" json:"match_status"`
	MatchConfidence  *Confidence    `json:"match_confidence"`
	MatchedInvoiceID *uuid.UUID     `json:"matched_invoice_id"`
	MatchedExpenseID *uuid.UUID     `json:"matched_expense_id"`
	MatchedAt        *time.Time     `json:"matched_at"`
	MatchedBy        string         `json:"matched_by"`
	MatchDetails     datatypes.JSON `json:"match_details"`

	CreatedAt time.Time `json:"created_at"`
}
