package matching

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"studio-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Suggestion is the engine's verdict for one transaction: its single best
// candidate obligation plus the confidence tier and a reviewer-readable
// explanation.
type Suggestion struct {
	TransactionID uuid.UUID          `json:"transaction_id"`
	MatchedType   models.MatchedType `json:"matched_type"`
	MatchedID     uuid.UUID          `json:"matched_id"`
	Confidence    models.Confidence  `json:"confidence"`
	Reason        string             `json:"reason"`
	AutoApplied   bool               `json:"auto_applied"`
	Details       map[string]any     `json:"details,omitempty"`
}

type Stats struct {
	TotalTransactions int `json:"total_transactions"`
	TotalMatches      int `json:"total_matches"`
	HighCount         int `json:"high_count"`
	MediumCount       int `json:"medium_count"`
	LowCount          int `json:"low_count"`
	AutoApplied       int `json:"auto_applied"`
	Skipped           int `json:"skipped"`
}

type Result struct {
	Suggestions []Suggestion `json:"suggestions"`
	Stats       Stats        `json:"stats"`
}

type Options struct {
	NearToleranceCents int64
	DateWindowDays     int
	MaxCandidates      int
}

func (o Options) withDefaults() Options {
	if o.NearToleranceCents <= 0 {
		o.NearToleranceCents = 100
	}
	if o.DateWindowDays <= 0 {
		o.DateWindowDays = 7
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = 20
	}
	return o
}

// nameDriftPercent is the allowed levenshtein distance as a percentage of
// the longer string when fuzzy-matching counterparty names.
const nameDriftPercent = 25

// target is the polarity-neutral view of an obligation the engine scores
// against.
type target struct {
	id       uuid.UUID
	kind     models.MatchedType
	amount   int64
	dueDate  time.Time
	name     string
	document string
}

type candidate struct {
	txIdx        int
	target       target
	amountDelta  int64
	dateDiffDays int
	exact        bool
	withinWindow bool
	sameDay      bool
	identity     bool
	contested    bool
	tier         models.Confidence
}

// Match ranks candidate obligations for each unmatched transaction and
// returns at most one suggestion per transaction, with no obligation
// suggested to more than one transaction. Credits are scored against
// invoices, debits against expenses. The output is deterministic: equal
// inputs produce the same suggestions in the same order.
func Match(txns []models.BankTransaction, invoices []models.Invoice, expenses []models.Expense, opts Options) Result {
	opts = opts.withDefaults()

	invoiceTargets := make([]target, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Status != models.StatusPending && inv.Status != models.StatusOverdue {
			continue
		}
		invoiceTargets = append(invoiceTargets, target{
			id:       inv.ID,
			kind:     models.MatchedInvoice,
			amount:   inv.AmountCents,
			dueDate:  inv.DueDate,
			name:     inv.StudentName,
			document: inv.StudentDocument,
		})
	}
	expenseTargets := make([]target, 0, len(expenses))
	for _, exp := range expenses {
		if exp.Status != models.StatusPending {
			continue
		}
		expenseTargets = append(expenseTargets, target{
			id:       exp.ID,
			kind:     models.MatchedExpense,
			amount:   exp.AmountCents,
			dueDate:  exp.DueDate,
			name:     exp.PayeeName,
			document: exp.PayeeDocument,
		})
	}
	sortTargets(invoiceTargets)
	sortTargets(expenseTargets)

	var candidates []candidate
	stats := Stats{}
	for i := range txns {
		txn := &txns[i]
		if txn.MatchStatus != models.MatchUnmatched {
			continue
		}
		stats.TotalTransactions++

		pool := invoiceTargets
		if txn.TransactionType == models.TransactionDebit {
			pool = expenseTargets
		}

		found := 0
		for _, tgt := range pool {
			delta := txn.AmountCents - tgt.amount
			if delta < 0 {
				delta = -delta
			}
			if delta > opts.NearToleranceCents {
				continue
			}
			if found >= opts.MaxCandidates {
				break
			}
			found++

			days := dateDiffDays(txn.PostedDate, tgt.dueDate)
			candidates = append(candidates, candidate{
				txIdx:        i,
				target:       tgt,
				amountDelta:  delta,
				dateDiffDays: days,
				exact:        delta == 0,
				sameDay:      days == 0,
				withinWindow: days <= opts.DateWindowDays,
				identity:     identityMatches(txn, tgt),
			})
		}
	}

	// Contention: how many transactions hold an exact-amount claim on each
	// obligation. A contested claim without an identity signal is demoted
	// one tier so auto-apply stays away from ambiguous pairs.
	exactClaims := make(map[uuid.UUID]int)
	for _, c := range candidates {
		if c.exact {
			exactClaims[c.target.id]++
		}
	}
	for i := range candidates {
		candidates[i].contested = exactClaims[candidates[i].target.id] >= 2
		candidates[i].tier = tierFor(candidates[i])
	}

	// Global greedy assignment. The sort key encodes both each
	// transaction's own preference order and the cross-transaction winner
	// when two transactions compete for one obligation.
	sort.Slice(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.tier.Rank() != cb.tier.Rank() {
			return ca.tier.Rank() > cb.tier.Rank()
		}
		if !ca.target.dueDate.Equal(cb.target.dueDate) {
			return ca.target.dueDate.Before(cb.target.dueDate)
		}
		if ca.amountDelta != cb.amountDelta {
			return ca.amountDelta < cb.amountDelta
		}
		if ca.dateDiffDays != cb.dateDiffDays {
			return ca.dateDiffDays < cb.dateDiffDays
		}
		if ca.txIdx != cb.txIdx {
			return txns[ca.txIdx].ID.String() < txns[cb.txIdx].ID.String()
		}
		return ca.target.id.String() < cb.target.id.String()
	})

	assignedTxn := make(map[int]bool)
	assignedTarget := make(map[uuid.UUID]bool)
	suggestionByTxn := make(map[int]Suggestion)
	for _, c := range candidates {
		if assignedTxn[c.txIdx] || assignedTarget[c.target.id] {
			continue
		}
		assignedTxn[c.txIdx] = true
		assignedTarget[c.target.id] = true
		suggestionByTxn[c.txIdx] = Suggestion{
			TransactionID: txns[c.txIdx].ID,
			MatchedType:   c.target.kind,
			MatchedID:     c.target.id,
			Confidence:    c.tier,
			Reason:        reasonFor(c),
			Details:       detailsFor(c),
		}
	}

	// Emit in input order so the result is stable across runs.
	suggestions := make([]Suggestion, 0, len(suggestionByTxn))
	for i := range txns {
		sug, ok := suggestionByTxn[i]
		if !ok {
			continue
		}
		suggestions = append(suggestions, sug)
		stats.TotalMatches++
		switch sug.Confidence {
		case models.ConfidenceHigh:
			stats.HighCount++
		case models.ConfidenceMedium:
			stats.MediumCount++
		case models.ConfidenceLow:
			stats.LowCount++
		}
	}

	return Result{Suggestions: suggestions, Stats: stats}
}

func sortTargets(targets []target) {
	sort.Slice(targets, func(a, b int) bool {
		if !targets[a].dueDate.Equal(targets[b].dueDate) {
			return targets[a].dueDate.Before(targets[b].dueDate)
		}
		return targets[a].id.String() < targets[b].id.String()
	})
}

func tierFor(c candidate) models.Confidence {
	var tier models.Confidence
	switch {
	case c.exact && c.identity && c.withinWindow:
		tier = models.ConfidenceHigh
	case c.exact && c.withinWindow,
		!c.exact && c.identity,
		!c.exact && c.withinWindow:
		tier = models.ConfidenceMedium
	default:
		tier = models.ConfidenceLow
	}
	if c.contested && !c.identity && tier != models.ConfidenceLow {
		tier = demote(tier)
	}
	return tier
}

func demote(tier models.Confidence) models.Confidence {
	switch tier {
	case models.ConfidenceHigh:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func dateDiffDays(posted, due time.Time) int {
	diff := posted.Sub(due)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}

func identityMatches(txn *models.BankTransaction, tgt target) bool {
	// Documents only count when both sides still have digits after
	// normalization; placeholder values like "N/A" must not compare equal.
	txnDoc := normalizeDocument(txn.ParsedDocument)
	tgtDoc := normalizeDocument(tgt.document)
	if txnDoc != "" && tgtDoc != "" && txnDoc == tgtDoc {
		return true
	}
	if txn.ParsedName != "" && tgt.name != "" && namesSimilar(txn.ParsedName, tgt.name) {
		return true
	}
	return false
}

func namesSimilar(a, b string) bool {
	a = normalizeName(a)
	b = normalizeName(b)
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	distance := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	return distance <= maxLen*nameDriftPercent/100
}

func normalizeName(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

func normalizeDocument(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func reasonFor(c candidate) string {
	parts := make([]string, 0, 4)
	if c.exact {
		parts = append(parts, "exact amount")
	} else {
		parts = append(parts, fmt.Sprintf("amount within %dc", c.amountDelta))
	}
	switch {
	case c.sameDay:
		parts = append(parts, "same day as due date")
	case c.withinWindow:
		parts = append(parts, fmt.Sprintf("posted %dd from due date", c.dateDiffDays))
	default:
		parts = append(parts, fmt.Sprintf("posted %dd from due date, outside window", c.dateDiffDays))
	}
	if c.identity {
		parts = append(parts, "counterparty identity match")
	}
	if c.contested {
		parts = append(parts, "obligation contested by other transactions")
	}
	return strings.Join(parts, ", ")
}

func detailsFor(c candidate) map[string]any {
	return map[string]any{
		"amount_delta_cents": c.amountDelta,
		"date_diff_days":     c.dateDiffDays,
		"exact_amount":       c.exact,
		"within_window":      c.withinWindow,
		"identity_match":     c.identity,
		"contested":          c.contested,
	}
}
