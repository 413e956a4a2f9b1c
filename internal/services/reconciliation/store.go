package reconciliation

import (
	"errors"
	"fmt"
	"time"

	"studio-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var openInvoiceStatuses = []models.ObligationStatus{models.StatusPending, models.StatusOverdue}

// GormStore implements Store on postgres. Every mutation runs inside a
// single database transaction with conditional UPDATEs as the
// check-and-set: RowsAffected == 0 on a status-gated update means another
// writer got there first.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ApplyMatch(p ApplyMatchParams) error {
	return s.db.Transaction(func(dbtx *gorm.DB) error {
		var txn models.BankTransaction
		if err := dbtx.First(&txn, "id = ?", p.TransactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("transaction %s: %w", p.TransactionID, ErrNotFound)
			}
			return err
		}
		if txn.MatchStatus != models.MatchUnmatched {
			return fmt.Errorf("transaction %s is %s: %w", p.TransactionID, txn.MatchStatus, ErrConflict)
		}

		if err := markObligationPaid(dbtx, p.MatchedType, p.MatchedID, txn.PostedDate); err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]interface{}{
			"match_status":     p.Status,
			"match_confidence": p.Confidence,
			"matched_at":       now,
			"matched_by":       p.Actor,
		}
		if p.MatchedType == models.MatchedInvoice {
			updates["matched_invoice_id"] = p.MatchedID
		} else {
			updates["matched_expense_id"] = p.MatchedID
		}
		if len(p.Details) > 0 {
			updates["match_details"] = datatypes.JSON(p.Details)
		}
		res := dbtx.Model(&models.BankTransaction{}).
			Where("id = ? AND match_status = ?", p.TransactionID, models.MatchUnmatched).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("transaction %s changed concurrently: %w", p.TransactionID, ErrConflict)
		}

		action := "manual_match"
		if p.Status == models.MatchAuto {
			action = "auto_match"
		}
		matchedID := p.MatchedID
		return dbtx.Create(&models.MatchAuditLog{
			ID:            uuid.New(),
			TransactionID: p.TransactionID,
			Action:        action,
			MatchedType:   p.MatchedType,
			NewTarget:     &matchedID,
			PerformedBy:   p.Actor,
			Reason:        p.Reason,
			CreatedAt:     now,
		}).Error
	})
}

func markObligationPaid(dbtx *gorm.DB, kind models.MatchedType, id uuid.UUID, paymentDate time.Time) error {
	updates := map[string]interface{}{
		"status":       models.StatusPaid,
		"payment_date": paymentDate,
	}

	var res *gorm.DB
	switch kind {
	case models.MatchedInvoice:
		res = dbtx.Model(&models.Invoice{}).
			Where("id = ? AND status IN ?", id, openInvoiceStatuses).
			Updates(updates)
	case models.MatchedExpense:
		res = dbtx.Model(&models.Expense{}).
			Where("id = ? AND status = ?", id, models.StatusPending).
			Updates(updates)
	default:
		return fmt.Errorf("matched type %q: %w", kind, ErrValidation)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	model := any(&models.Invoice{})
	if kind == models.MatchedExpense {
		model = &models.Expense{}
	}
	if err := dbtx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("%s %s is no longer open: %w", kind, id, ErrConflict)
}

// ClearMatch rejects a match. The obligation side is reverted only when it
// is still paid with a payment_date equal to this transaction's posted
// date; if a later change already touched it, it is left alone.
func (s *GormStore) ClearMatch(txID uuid.UUID) (*models.BankTransaction, error) {
	var txn models.BankTransaction
	err := s.db.Transaction(func(dbtx *gorm.DB) error {
		if err := dbtx.First(&txn, "id = ?", txID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("transaction %s: %w", txID, ErrNotFound)
			}
			return err
		}
		if !txn.MatchStatus.IsMatched() {
			return fmt.Errorf("transaction %s is %s, not matched: %w", txID, txn.MatchStatus, ErrConflict)
		}

		var matchedType models.MatchedType
		var prevTarget *uuid.UUID
		if txn.MatchedInvoiceID != nil {
			matchedType = models.MatchedInvoice
			prevTarget = txn.MatchedInvoiceID
			if err := revertInvoice(dbtx, *txn.MatchedInvoiceID, txn.PostedDate); err != nil {
				return err
			}
		} else if txn.MatchedExpenseID != nil {
			matchedType = models.MatchedExpense
			prevTarget = txn.MatchedExpenseID
			if err := revertExpense(dbtx, *txn.MatchedExpenseID, txn.PostedDate); err != nil {
				return err
			}
		}

		res := dbtx.Model(&models.BankTransaction{}).
			Where("id = ?", txID).
			Updates(map[string]interface{}{
				"match_status":       models.MatchUnmatched,
				"match_confidence":   nil,
				"matched_invoice_id": nil,
				"matched_expense_id": nil,
				"matched_at":         nil,
				"matched_by":         "",
				"match_details":      nil,
			})
		if res.Error != nil {
			return res.Error
		}

		return dbtx.Create(&models.MatchAuditLog{
			ID:             uuid.New(),
			TransactionID:  txID,
			Action:         "reject",
			MatchedType:    matchedType,
			PreviousTarget: prevTarget,
			PerformedBy:    txn.MatchedBy,
			Reason:         "match rejected",
			CreatedAt:      time.Now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	txn.MatchStatus = models.MatchUnmatched
	txn.MatchConfidence = nil
	txn.MatchedInvoiceID = nil
	txn.MatchedExpenseID = nil
	txn.MatchedAt = nil
	txn.MatchedBy = ""
	txn.MatchDetails = nil
	return &txn, nil
}

func revertInvoice(dbtx *gorm.DB, id uuid.UUID, paymentDate time.Time) error {
	var inv models.Invoice
	if err := dbtx.First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	status := models.StatusPending
	if inv.DueDate.Before(time.Now()) {
		status = models.StatusOverdue
	}
	return dbtx.Model(&models.Invoice{}).
		Where("id = ? AND status = ? AND payment_date = ?", id, models.StatusPaid, paymentDate).
		Updates(map[string]interface{}{"status": status, "payment_date": nil}).
		Error
}

func revertExpense(dbtx *gorm.DB, id uuid.UUID, paymentDate time.Time) error {
	return dbtx.Model(&models.Expense{}).
		Where("id = ? AND status = ? AND payment_date = ?", id, models.StatusPaid, paymentDate).
		Updates(map[string]interface{}{"status": models.StatusPending, "payment_date": nil}).
		Error
}

func (s *GormStore) MarkIgnored(txID uuid.UUID) error {
	return s.db.Transaction(func(dbtx *gorm.DB) error {
		res := dbtx.Model(&models.BankTransaction{}).
			Where("id = ? AND match_status = ?", txID, models.MatchUnmatched).
			Update("match_status", models.MatchIgnored)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := dbtx.Model(&models.BankTransaction{}).Where("id = ?", txID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("transaction %s: %w", txID, ErrNotFound)
			}
			return fmt.Errorf("transaction %s is not unmatched: %w", txID, ErrConflict)
		}

		return dbtx.Create(&models.MatchAuditLog{
			ID:            uuid.New(),
			TransactionID: txID,
			Action:        "ignore",
			Reason:        "excluded from matching",
			CreatedAt:     time.Now(),
		}).Error
	})
}
