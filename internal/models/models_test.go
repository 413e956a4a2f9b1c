package models

import "testing"

func TestConfidenceRankOrdering(t *testing.T) {
	ordered := []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceManual}
	for i := 0; i < len(ordered)-1; i++ {
		if ordered[i].Rank() <= ordered[i+1].Rank() {
			t.Errorf("%s (rank %d) should outrank %s (rank %d)",
				ordered[i], ordered[i].Rank(), ordered[i+1], ordered[i+1].Rank())
		}
	}
	if Confidence("bogus").Rank() != -1 {
		t.Errorf("unknown confidence should rank below every tier")
	}
}

func TestEnumValidity(t *testing.T) {
	if !TransactionCredit.IsValid() || !TransactionDebit.IsValid() {
		t.Error("known transaction types reported invalid")
	}
	if TransactionType("transfer").IsValid() {
		t.Error("unknown transaction type reported valid")
	}
	if !MatchedInvoice.IsValid() || !MatchedExpense.IsValid() {
		t.Error("known matched types reported invalid")
	}
	if MatchedType("contract").IsValid() {
		t.Error("unknown matched type reported valid")
	}
}

func TestMatchStatusIsMatched(t *testing.T) {
	tests := []struct {
		status MatchStatus
		want   bool
	}{
		{MatchUnmatched, false},
		{MatchAuto, true},
		{MatchManual, true},
		{MatchIgnored, false},
	}
	for _, tt := range tests {
		if got := tt.status.IsMatched(); got != tt.want {
			t.Errorf("%s.IsMatched() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
