package repository

import (
	"errors"
	"fmt"
	"strings"

	"studio-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

func (r *BankTransactionRepository) GetTransaction(id uuid.UUID) (*models.BankTransaction, error) {
	var txn models.BankTransaction
	if err := r.db.First(&txn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListUnmatched returns the matching run's snapshot, ordered by posted date
// then id so the engine sees a stable input.
func (r *BankTransactionRepository) ListUnmatched(importID *uuid.UUID, limit int) ([]models.BankTransaction, error) {
	var txns []models.BankTransaction
	query := r.db.
		Where("match_status = ?", models.MatchUnmatched).
		Order("posted_date ASC, id ASC")
	if importID != nil {
		query = query.Where("import_id = ?", *importID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&txns).Error
	return txns, err
}

// Insert stores one normalized transaction from the import pipeline. A
// (account_id, fit_id) collision means the statement row was already
// imported; the insert is a no-op and inserted is false.
func (r *BankTransactionRepository) Insert(txn *models.BankTransaction) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "fit_id"}},
		DoNothing: true,
	}).Create(txn)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListFilter narrows the review listing. Cursor is the last seen id.
type ListFilter struct {
	ImportID *uuid.UUID
	Status   string
	Search   string
	Cursor   string
	Limit    int
}

func (r *BankTransactionRepository) List(filter ListFilter) ([]models.BankTransaction, string, bool, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var txns []models.BankTransaction
	query := r.db.
		Order("id ASC").
		Limit(limit + 1)

	if filter.ImportID != nil {
		query = query.Where("import_id = ?", *filter.ImportID)
	}
	if filter.Status != "" && filter.Status != "all" {
		query = query.Where("match_status = ?", filter.Status)
	}
	if filter.Cursor != "" {
		cursorID, err := uuid.Parse(filter.Cursor)
		if err != nil {
			return nil, "", false, fmt.Errorf("invalid cursor: %w", err)
		}
		query = query.Where("id > ?", cursorID)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(memo) LIKE ? OR LOWER(parsed_name) LIKE ? OR CAST(amount_cents AS TEXT) LIKE ?",
			like, like, like,
		)
	}

	if err := query.Find(&txns).Error; err != nil {
		return nil, "", false, err
	}

	hasMore := false
	var nextCursor string
	if len(txns) > limit {
		hasMore = true
		txns = txns[:limit]
		nextCursor = txns[limit-1].ID.String()
	}
	return txns, nextCursor, hasMore, nil
}

// StatusStats summarizes the listing by match status, amounts included so
// the review screen can show totals per bucket.
type StatusStats struct {
	Total       int64 `json:"total"`
	TotalCents  int64 `json:"total_cents"`
	Unmatched   int64 `json:"unmatched"`
	AutoMatched int64 `json:"auto_matched"`
	Manual      int64 `json:"manual_matched"`
	Ignored     int64 `json:"ignored"`
}

type statRow struct {
	MatchStatus models.MatchStatus
	Count       int64
	Sum         int64
}

func (r *BankTransactionRepository) Stats(importID *uuid.UUID) (StatusStats, error) {
	var stats StatusStats
	var rows []statRow

	query := r.db.Model(&models.BankTransaction{}).
		Select("match_status, COUNT(*) as count, COALESCE(SUM(amount_cents),0) as sum").
		Group("match_status")
	if importID != nil {
		query = query.Where("import_id = ?", *importID)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return stats, err
	}

	for _, row := range rows {
		stats.Total += row.Count
		stats.TotalCents += row.Sum
		switch row.MatchStatus {
		case models.MatchUnmatched:
			stats.Unmatched = row.Count
		case models.MatchAuto:
			stats.AutoMatched = row.Count
		case models.MatchManual:
			stats.Manual = row.Count
		case models.MatchIgnored:
			stats.Ignored = row.Count
		}
	}
	return stats, nil
}

// IsNotFound reports whether err is gorm's missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
