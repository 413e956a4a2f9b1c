package repository

import (
	"time"

	"studio-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatementImportRepository struct {
	db *gorm.DB
}

func NewStatementImportRepository(db *gorm.DB) *StatementImportRepository {
	return &StatementImportRepository{db: db}
}

func (r *StatementImportRepository) Create(accountID, filename string) (*models.StatementImport, error) {
	imp := &models.StatementImport{
		ID:        uuid.New(),
		AccountID: accountID,
		Filename:  filename,
		Status:    "processing",
		StartedAt: time.Now(),
		CreatedAt: time.Now(),
	}
	if err := r.db.Create(imp).Error; err != nil {
		return nil, err
	}
	return imp, nil
}

func (r *StatementImportRepository) GetByID(id uuid.UUID) (*models.StatementImport, error) {
	var imp models.StatementImport
	if err := r.db.First(&imp, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &imp, nil
}

func (r *StatementImportRepository) Complete(id uuid.UUID, total, duplicates int) error {
	now := time.Now()
	return r.db.Model(&models.StatementImport{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_transactions": total,
			"duplicate_count":    duplicates,
			"status":             "completed",
			"completed_at":       now,
		}).Error
}
