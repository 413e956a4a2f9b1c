package handler

import "studio-reconciliation-backend/internal/models"

// parsedTypeLabels maps the transaction subtype enum to display text. The
// engine never sees these; they exist only for API responses.
var parsedTypeLabels = map[models.ParsedType]string{
	models.ParsedPix:    "Pix",
	models.ParsedTed:    "TED transfer",
	models.ParsedDoc:    "DOC transfer",
	models.ParsedBoleto: "Boleto",
	models.ParsedCard:   "Card settlement",
	models.ParsedFee:    "Bank fee",
	models.ParsedOther:  "Other",
}

type transactionView struct {
	models.BankTransaction
	ParsedTypeLabel string `json:"parsed_type_label"`
}

func decorate(txns []models.BankTransaction) []transactionView {
	views := make([]transactionView, len(txns))
	for i, txn := range txns {
		label, ok := parsedTypeLabels[txn.ParsedType]
		if !ok {
			label = parsedTypeLabels[models.ParsedOther]
		}
		views[i] = transactionView{BankTransaction: txn, ParsedTypeLabel: label}
	}
	return views
}
