package repository

import (
	"strings"

	"studio-reconciliation-backend/internal/models"

	"gorm.io/gorm"
)

// ObligationRepository is the read-only open-obligations projection:
// invoices still collectible and expenses still payable, the only valid
// match targets.
type ObligationRepository struct {
	db *gorm.DB
}

func NewObligationRepository(db *gorm.DB) *ObligationRepository {
	return &ObligationRepository{db: db}
}

func (r *ObligationRepository) OpenInvoices() ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.
		Where("status IN ?", []models.ObligationStatus{models.StatusPending, models.StatusOverdue}).
		Order("due_date ASC, id ASC").
		Find(&invoices).Error
	return invoices, err
}

func (r *ObligationRepository) OpenExpenses() ([]models.Expense, error) {
	var expenses []models.Expense
	err := r.db.
		Where("status = ?", models.StatusPending).
		Order("due_date ASC, id ASC").
		Find(&expenses).Error
	return expenses, err
}

// SearchOpenInvoices backs the manual-match picker.
func (r *ObligationRepository) SearchOpenInvoices(query string, amountCents int64) ([]models.Invoice, error) {
	var invoices []models.Invoice

	dbQuery := r.db.Model(&models.Invoice{}).
		Where("status IN ?", []models.ObligationStatus{models.StatusPending, models.StatusOverdue})
	if query != "" {
		dbQuery = dbQuery.Where("LOWER(student_name) LIKE ?", "%"+strings.ToLower(query)+"%")
	}
	if amountCents > 0 {
		dbQuery = dbQuery.Where("amount_cents = ?", amountCents)
	}

	err := dbQuery.Order("due_date ASC, id ASC").Find(&invoices).Error
	return invoices, err
}
