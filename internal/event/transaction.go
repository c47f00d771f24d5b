package event

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/transitcore/transit-gateway/internal/model"
)

// TransactionApplied is published to the event stream after a balance
// mutation commits. Consumers (the auditor) must treat it as informational;
// the ledger row in the database is the source of truth.
type TransactionApplied struct {
	TransactionID int64                      `json:"transaction_id"`
	AliasNo       int64                      `json:"alias_no"`
	Amount        decimal.Decimal            `json:"amount"`
	Operation     model.TransactionOperation `json:"operation"`
	OldBalance    decimal.Decimal            `json:"old_balance"`
	NewBalance    decimal.Decimal            `json:"new_balance"`
	AppliedAt     time.Time                  `json:"applied_at"`
}

func NewTransactionApplied(res *model.ApplyResult) *TransactionApplied {
	return &TransactionApplied{
		TransactionID: res.Transaction.ID,
		AliasNo:       res.Transaction.AliasNo,
		Amount:        res.Transaction.Amount,
		Operation:     res.Transaction.Operation,
		OldBalance:    res.OldBalance,
		NewBalance:    res.NewBalance,
		AppliedAt:     res.Transaction.Date,
	}
}
