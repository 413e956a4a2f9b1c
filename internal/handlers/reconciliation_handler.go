package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"studio-reconciliation-backend/internal/models"
	"studio-reconciliation-backend/internal/repository"
	"studio-reconciliation-backend/internal/services/matching"
	"studio-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ObligationSource is the slice of the open-obligations projection the
// review endpoints need.
type ObligationSource interface {
	OpenInvoices() ([]models.Invoice, error)
	OpenExpenses() ([]models.Expense, error)
	SearchOpenInvoices(query string, amountCents int64) ([]models.Invoice, error)
}

type ReconciliationHandler struct {
	service      *reconciliation.Service
	transactions *repository.BankTransactionRepository
	obligations  ObligationSource
	imports      *repository.StatementImportRepository
	log          *zap.Logger
}

func NewReconciliationHandler(
	service *reconciliation.Service,
	transactions *repository.BankTransactionRepository,
	obligations ObligationSource,
	imports *repository.StatementImportRepository,
	log *zap.Logger,
) *ReconciliationHandler {
	return &ReconciliationHandler{
		service:      service,
		transactions: transactions,
		obligations:  obligations,
		imports:      imports,
		log:          log,
	}
}

// RunMatching triggers one engine run over the unmatched backlog, optionally
// scoped to a single import and optionally auto-applying high-confidence
// suggestions.
func (h *ReconciliationHandler) RunMatching(c *gin.Context) {
	var payload struct {
		ImportID  string `json:"import_id"`
		AutoApply bool   `json:"auto_apply"`
	}
	// Both fields are optional; an empty body means a full run with
	// review-only suggestions.
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	var importID *uuid.UUID
	if payload.ImportID != "" {
		id, err := uuid.Parse(payload.ImportID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid import ID"})
			return
		}
		importID = &id
	}

	result, err := h.service.RunMatching(importID, payload.AutoApply)
	if err != nil {
		h.log.Error("matching run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"matches": result.Suggestions,
		"stats":   result.Stats,
	})
}

// ApproveMatch records a reviewer's match decision for one transaction.
func (h *ReconciliationHandler) ApproveMatch(c *gin.Context) {
	txID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var payload struct {
		MatchedType string `json:"matched_type"`
		MatchedID   string `json:"matched_id"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	matchedID, err := uuid.Parse(payload.MatchedID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid matched ID"})
		return
	}

	actor := reviewerFrom(c)
	if err := h.service.Approve(txID, models.MatchedType(payload.MatchedType), matchedID, actor); err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "match approved"})
}

func (h *ReconciliationHandler) RejectMatch(c *gin.Context) {
	txID, ok := parseIDParam(c)
	if !ok {
		return
	}

	txn, err := h.service.Reject(txID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "match rejected", "transaction": txn})
}

func (h *ReconciliationHandler) IgnoreTransaction(c *gin.Context) {
	txID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.service.Ignore(txID); err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "transaction ignored"})
}

// BatchApproveMatches applies suggestions per-item best-effort and reports
// every failure explicitly.
func (h *ReconciliationHandler) BatchApproveMatches(c *gin.Context) {
	var payload struct {
		Suggestions []matching.Suggestion `json:"suggestions"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(payload.Suggestions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no suggestions provided"})
		return
	}

	result := h.service.BatchApprove(payload.Suggestions, reviewerFrom(c))
	c.JSON(http.StatusOK, gin.H{
		"applied_count": result.AppliedCount,
		"failures":      result.Failures,
	})
}

// ingestTransaction is one normalized statement row from the import
// pipeline. Parsing raw OFX/CSV happens upstream.
type ingestTransaction struct {
	FitID           string `json:"fit_id"`
	TransactionType string `json:"transaction_type"`
	PostedDate      string `json:"posted_date"`
	AmountCents     int64  `json:"amount_cents"`
	Memo            string `json:"memo"`
	ParsedType      string `json:"parsed_type"`
	ParsedName      string `json:"parsed_name"`
	ParsedDocument  string `json:"parsed_document"`
}

// IngestTransactions stores a batch of normalized transactions, deduplicated
// on (account_id, fit_id) so re-importing a statement is harmless.
func (h *ReconciliationHandler) IngestTransactions(c *gin.Context) {
	var payload struct {
		AccountID    string              `json:"account_id"`
		Filename     string              `json:"filename"`
		Transactions []ingestTransaction `json:"transactions"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.AccountID == "" || len(payload.Transactions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id and transactions are required"})
		return
	}

	imp, err := h.imports.Create(payload.AccountID, payload.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	inserted := 0
	duplicates := 0
	skipped := 0
	for _, row := range payload.Transactions {
		txnType := models.TransactionType(row.TransactionType)
		if row.FitID == "" || !txnType.IsValid() || row.AmountCents <= 0 {
			skipped++
			continue
		}
		postedDate, err := time.Parse("2006-01-02", row.PostedDate)
		if err != nil {
			skipped++
			continue
		}
		parsedType := models.ParsedType(row.ParsedType)
		if parsedType == "" {
			parsedType = models.ParsedOther
		}

		ok, err := h.transactions.Insert(&models.BankTransaction{
			ID:              uuid.New(),
			ImportID:        imp.ID,
			AccountID:       payload.AccountID,
			FitID:           row.FitID,
			TransactionType: txnType,
			PostedDate:      postedDate,
			AmountCents:     row.AmountCents,
			Memo:            row.Memo,
			ParsedType:      parsedType,
			ParsedName:      row.ParsedName,
			ParsedDocument:  row.ParsedDocument,
			MatchStatus:     models.MatchUnmatched,
			CreatedAt:       time.Now(),
		})
		if err != nil {
			h.log.Error("ingest insert failed", zap.String("fit_id", row.FitID), zap.Error(err))
			skipped++
			continue
		}
		if ok {
			inserted++
		} else {
			duplicates++
		}
	}

	if err := h.imports.Complete(imp.ID, inserted, duplicates); err != nil {
		h.log.Error("import completion failed", zap.String("import_id", imp.ID.String()), zap.Error(err))
	}

	c.JSON(http.StatusCreated, gin.H{
		"import_id":  imp.ID.String(),
		"inserted":   inserted,
		"duplicates": duplicates,
		"skipped":    skipped,
	})
}

func (h *ReconciliationHandler) GetImport(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	imp, err := h.imports.GetByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "import not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, imp)
}

func (h *ReconciliationHandler) ListTransactions(c *gin.Context) {
	filter := repository.ListFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Cursor: c.Query("cursor"),
		Limit:  50,
	}
	if raw := c.Query("import_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid import ID"})
			return
		}
		filter.ImportID = &id
	}

	items, nextCursor, hasMore, err := h.transactions.List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	stats, err := h.transactions.Stats(filter.ImportID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       decorate(items),
		"next_cursor": nextCursor,
		"has_more":    hasMore,
		"stats":       stats,
	})
}

// GetTransaction returns one transaction with its display labels, for the
// review detail view.
func (h *ReconciliationHandler) GetTransaction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	txn, err := h.transactions.GetTransaction(id)
	if err != nil {
		if repository.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	views := decorate([]models.BankTransaction{*txn})
	c.JSON(http.StatusOK, views[0])
}

// ListOpenObligations serves the open-obligations projection for the manual
// match picker.
func (h *ReconciliationHandler) ListOpenObligations(c *gin.Context) {
	invoices, err := h.obligations.OpenInvoices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	expenses, err := h.obligations.OpenExpenses()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices, "expenses": expenses})
}

// SearchOpenInvoices narrows the picker to invoices matching a name fragment
// and/or an exact amount.
func (h *ReconciliationHandler) SearchOpenInvoices(c *gin.Context) {
	var amountCents int64
	if raw := c.Query("amount_cents"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount_cents"})
			return
		}
		amountCents = parsed
	}

	invoices, err := h.obligations.SearchOpenInvoices(c.Query("query"), amountCents)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (h *ReconciliationHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reconciliation.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, reconciliation.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, reconciliation.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error("reconciliation request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return uuid.Nil, false
	}
	return id, true
}

func reviewerFrom(c *gin.Context) string {
	if reviewer := c.GetHeader("X-Reviewer"); reviewer != "" {
		return reviewer
	}
	return "reviewer"
}
