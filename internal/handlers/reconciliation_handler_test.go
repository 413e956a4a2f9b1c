package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"studio-reconciliation-backend/internal/config"
	"studio-reconciliation-backend/internal/models"
	"studio-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// stubStore returns a canned error from every mutation, enough to exercise
// the handler's error mapping.
type stubStore struct {
	err error
}

func (s *stubStore) ApplyMatch(reconciliation.ApplyMatchParams) error { return s.err }
func (s *stubStore) ClearMatch(uuid.UUID) (*models.BankTransaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.BankTransaction{MatchStatus: models.MatchUnmatched}, nil
}
func (s *stubStore) MarkIgnored(uuid.UUID) error { return s.err }

type stubReaders struct {
	invoices []models.Invoice
}

func (stubReaders) ListUnmatched(*uuid.UUID, int) ([]models.BankTransaction, error) {
	return nil, nil
}
func (stubReaders) OpenInvoices() ([]models.Invoice, error) { return nil, nil }
func (stubReaders) OpenExpenses() ([]models.Expense, error) { return nil, nil }
func (s stubReaders) SearchOpenInvoices(query string, amountCents int64) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, inv := range s.invoices {
		if amountCents > 0 && inv.AmountCents != amountCents {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func newTestRouter(storeErr error) *gin.Engine {
	return newTestRouterWithInvoices(storeErr, nil)
}

func newTestRouterWithInvoices(storeErr error, invoices []models.Invoice) *gin.Engine {
	gin.SetMode(gin.TestMode)
	readers := stubReaders{invoices: invoices}
	svc := reconciliation.NewService(
		readers, readers, &stubStore{err: storeErr},
		config.MatchingConfig{}, zap.NewNop(),
	)
	h := NewReconciliationHandler(svc, nil, readers, nil, zap.NewNop())

	r := gin.New()
	r.POST("/api/transactions/:id/approve", h.ApproveMatch)
	r.POST("/api/transactions/:id/ignore", h.IgnoreTransaction)
	r.POST("/api/reconciliation/run", h.RunMatching)
	r.GET("/api/obligations/invoices", h.SearchOpenInvoices)
	return r
}

func postApprove(t *testing.T, r *gin.Engine, txID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/transactions/%s/approve", txID), bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestApproveMatchStatusMapping(t *testing.T) {
	validBody := map[string]string{
		"matched_type": "invoice",
		"matched_id":   uuid.New().String(),
	}

	tests := []struct {
		name       string
		storeErr   error
		wantStatus int
	}{
		{"applied", nil, http.StatusOK},
		{"conflict", fmt.Errorf("invoice taken: %w", reconciliation.ErrConflict), http.StatusConflict},
		{"not found", fmt.Errorf("no invoice: %w", reconciliation.ErrNotFound), http.StatusNotFound},
		{"infra failure", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(tt.storeErr)
			w := postApprove(t, r, uuid.New().String(), validBody)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestApproveMatchRejectsBadInput(t *testing.T) {
	r := newTestRouter(nil)

	w := postApprove(t, r, "not-a-uuid", map[string]string{
		"matched_type": "invoice",
		"matched_id":   uuid.New().String(),
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad transaction id: status = %d, want 400", w.Code)
	}

	w = postApprove(t, r, uuid.New().String(), map[string]string{
		"matched_type": "contract",
		"matched_id":   uuid.New().String(),
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad matched type: status = %d, want 400", w.Code)
	}
}

func TestIgnoreTransactionConflictMapping(t *testing.T) {
	r := newTestRouter(fmt.Errorf("already matched: %w", reconciliation.ErrConflict))

	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/transactions/%s/ignore", uuid.New()), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestRunMatchingEmptyBacklog(t *testing.T) {
	r := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/reconciliation/run",
		bytes.NewReader([]byte(`{"auto_apply":false}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
		Stats   struct {
			TotalTransactions int `json:"total_transactions"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Success || resp.Stats.TotalTransactions != 0 {
		t.Errorf("response = %+v", resp)
	}
}

func TestRunMatchingAcceptsEmptyBody(t *testing.T) {
	r := newTestRouter(nil)

	// Both payload fields are optional, so a bodiless POST is a full run.
	req := httptest.NewRequest(http.MethodPost, "/api/reconciliation/run", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no body: status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/reconciliation/run",
		bytes.NewReader([]byte(`{"import_id": [1]}`)))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", w.Code)
	}
}

func TestSearchOpenInvoices(t *testing.T) {
	invoices := []models.Invoice{
		{ID: uuid.New(), StudentName: "Maria Silva", AmountCents: 15000, Status: models.StatusPending},
		{ID: uuid.New(), StudentName: "Jose Santos", AmountCents: 20000, Status: models.StatusOverdue},
	}
	r := newTestRouterWithInvoices(nil, invoices)

	req := httptest.NewRequest(http.MethodGet, "/api/obligations/invoices?amount_cents=15000", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Invoices []models.Invoice `json:"invoices"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Invoices) != 1 || resp.Invoices[0].StudentName != "Maria Silva" {
		t.Errorf("invoices = %+v, want only Maria Silva", resp.Invoices)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/obligations/invoices?amount_cents=-5", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative amount: status = %d, want 400", w.Code)
	}
}
