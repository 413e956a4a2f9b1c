package reconciliation

import (
	"encoding/json"
	"errors"
	"fmt"

	"studio-reconciliation-backend/internal/config"
	"studio-reconciliation-backend/internal/models"
	"studio-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EngineActor is recorded as matched_by on auto-applied matches.
const EngineActor = "matching-engine"

// TransactionReader is the snapshot read side of the transaction store.
type TransactionReader interface {
	ListUnmatched(importID *uuid.UUID, limit int) ([]models.BankTransaction, error)
}

// ObligationReader is the open-obligations projection: the only valid match
// targets.
type ObligationReader interface {
	OpenInvoices() ([]models.Invoice, error)
	OpenExpenses() ([]models.Expense, error)
}

// ApplyMatchParams carries one approval into the store's atomic write.
type ApplyMatchParams struct {
	TransactionID uuid.UUID
	MatchedType   models.MatchedType
	MatchedID     uuid.UUID
	Status        models.MatchStatus
	Confidence    models.Confidence
	Actor         string
	Reason        string
	Details       []byte
}

// Store is the atomic write surface. Every method either fully applies or
// leaves all records unchanged; state preconditions that fail at apply time
// surface as ErrConflict, missing records as ErrNotFound.
type Store interface {
	ApplyMatch(p ApplyMatchParams) error
	ClearMatch(txID uuid.UUID) (*models.BankTransaction, error)
	MarkIgnored(txID uuid.UUID) error
}

type Service struct {
	transactions TransactionReader
	obligations  ObligationReader
	store        Store
	cfg          config.MatchingConfig
	log          *zap.Logger
}

func NewService(
	transactions TransactionReader,
	obligations ObligationReader,
	store Store,
	cfg config.MatchingConfig,
	log *zap.Logger,
) *Service {
	return &Service{
		transactions: transactions,
		obligations:  obligations,
		store:        store,
		cfg:          cfg,
		log:          log,
	}
}

// RunResult is the outcome of one matching run.
type RunResult struct {
	Suggestions []matching.Suggestion `json:"matches"`
	Stats       matching.Stats        `json:"stats"`
}

// RunMatching snapshots unmatched transactions (optionally one import batch)
// and open obligations, runs the engine, and when autoApply is set approves
// high-confidence suggestions through the same path a reviewer would use.
// A suggestion that fails to apply is skipped and counted, never fatal.
func (s *Service) RunMatching(importID *uuid.UUID, autoApply bool) (*RunResult, error) {
	txns, err := s.transactions.ListUnmatched(importID, s.cfg.MaxTransactionsPerRun)
	if err != nil {
		return nil, fmt.Errorf("list unmatched transactions: %w", err)
	}
	invoices, err := s.obligations.OpenInvoices()
	if err != nil {
		return nil, fmt.Errorf("list open invoices: %w", err)
	}
	expenses, err := s.obligations.OpenExpenses()
	if err != nil {
		return nil, fmt.Errorf("list open expenses: %w", err)
	}

	result := matching.Match(txns, invoices, expenses, matching.Options{
		NearToleranceCents: s.cfg.NearToleranceCents,
		DateWindowDays:     s.cfg.DateWindowDays,
		MaxCandidates:      s.cfg.MaxCandidatesPerTransaction,
	})

	if autoApply {
		for i := range result.Suggestions {
			sug := &result.Suggestions[i]
			if sug.Confidence != models.ConfidenceHigh {
				continue
			}
			if err := s.apply(*sug, models.MatchAuto, EngineActor); err != nil {
				result.Stats.Skipped++
				s.log.Warn("auto-apply skipped",
					zap.String("transaction_id", sug.TransactionID.String()),
					zap.Error(err),
				)
				continue
			}
			sug.AutoApplied = true
			result.Stats.AutoApplied++
		}
	}

	s.log.Info("matching run completed",
		zap.Int("total_transactions", result.Stats.TotalTransactions),
		zap.Int("total_matches", result.Stats.TotalMatches),
		zap.Int("auto_applied", result.Stats.AutoApplied),
	)

	return &RunResult{Suggestions: result.Suggestions, Stats: result.Stats}, nil
}

// Approve records a reviewer's match decision. The target's open status and
// the transaction's unmatched status are re-checked inside the store's
// atomic write, not assumed from a stale suggestion.
func (s *Service) Approve(txID uuid.UUID, matchedType models.MatchedType, matchedID uuid.UUID, actor string) error {
	if txID == uuid.Nil {
		return fmt.Errorf("transaction id is required: %w", ErrValidation)
	}
	if matchedID == uuid.Nil {
		return fmt.Errorf("matched id is required: %w", ErrValidation)
	}
	if !matchedType.IsValid() {
		return fmt.Errorf("matched type %q: %w", matchedType, ErrValidation)
	}
	return s.store.ApplyMatch(ApplyMatchParams{
		TransactionID: txID,
		MatchedType:   matchedType,
		MatchedID:     matchedID,
		Status:        models.MatchManual,
		Confidence:    models.ConfidenceManual,
		Actor:         actor,
		Reason:        "manual approval",
	})
}

func (s *Service) apply(sug matching.Suggestion, status models.MatchStatus, actor string) error {
	if sug.TransactionID == uuid.Nil {
		return fmt.Errorf("transaction id is required: %w", ErrValidation)
	}
	if sug.MatchedID == uuid.Nil {
		return fmt.Errorf("matched id is required: %w", ErrValidation)
	}
	if !sug.MatchedType.IsValid() {
		return fmt.Errorf("matched type %q: %w", sug.MatchedType, ErrValidation)
	}
	var details []byte
	if sug.Details != nil {
		details, _ = json.Marshal(sug.Details)
	}
	return s.store.ApplyMatch(ApplyMatchParams{
		TransactionID: sug.TransactionID,
		MatchedType:   sug.MatchedType,
		MatchedID:     sug.MatchedID,
		Status:        status,
		Confidence:    sug.Confidence,
		Actor:         actor,
		Reason:        sug.Reason,
		Details:       details,
	})
}

// Reject returns a matched transaction to unmatched with all match fields
// cleared. The obligation is reverted only when this transaction's approval
// is still its latest status change; see the store implementation.
func (s *Service) Reject(txID uuid.UUID) (*models.BankTransaction, error) {
	if txID == uuid.Nil {
		return nil, fmt.Errorf("transaction id is required: %w", ErrValidation)
	}
	return s.store.ClearMatch(txID)
}

// Ignore is terminal: the engine excludes ignored transactions from every
// future candidate pool.
func (s *Service) Ignore(txID uuid.UUID) error {
	if txID == uuid.Nil {
		return fmt.Errorf("transaction id is required: %w", ErrValidation)
	}
	return s.store.MarkIgnored(txID)
}

// BatchFailure reports one suggestion that could not be applied.
type BatchFailure struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Reason        string    `json:"reason"`
}

// BatchResult reports per-item outcomes of a batch approval.
type BatchResult struct {
	AppliedCount int            `json:"applied_count"`
	Failures     []BatchFailure `json:"failures"`
}

// BatchApprove applies each suggestion independently, best-effort. Earlier
// successes are never rolled back when a later item fails.
func (s *Service) BatchApprove(suggestions []matching.Suggestion, actor string) BatchResult {
	result := BatchResult{Failures: []BatchFailure{}}
	for _, sug := range suggestions {
		if err := s.apply(sug, models.MatchManual, actor); err != nil {
			result.Failures = append(result.Failures, BatchFailure{
				TransactionID: sug.TransactionID,
				Reason:        failureReason(err),
			})
			continue
		}
		result.AppliedCount++
	}
	return result
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return err.Error()
	}
}
