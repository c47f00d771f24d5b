package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionOperation is the kind of a ledger entry.
type TransactionOperation string

const (
	OperationRecharge TransactionOperation = "recharge"
	OperationUsage    TransactionOperation = "usage"
)

func (op TransactionOperation) Valid() bool {
	return op == OperationRecharge || op == OperationUsage
}

// Transaction is one immutable ledger entry. There is no update or delete;
// corrections happen by appending a compensating entry.
type Transaction struct {
	ID        int64                `json:"id"`
	AliasNo   int64                `json:"alias_no"`
	Amount    decimal.Decimal      `json:"amount"`
	Date      time.Time            `json:"date"`
	Operation TransactionOperation `json:"operation"`
}

func (Transaction) TableName() string { return "transaction" }

// TransactionWithOwner joins a ledger entry with the owning account of its
// media, when one exists.
type TransactionWithOwner struct {
	ID          int64                `json:"id"`
	AliasNo     int64                `json:"alias_no"`
	Amount      decimal.Decimal      `json:"amount"`
	Date        time.Time            `json:"date"`
	Operation   TransactionOperation `json:"operation"`
	AccountID   *int64               `json:"account_id"`
	PhoneNumber *string              `json:"phone_number"`
}

// ApplyRequest is the input for the balance-mutation protocol.
type ApplyRequest struct {
	AliasNo   int64
	Amount    decimal.Decimal
	Operation TransactionOperation
}

func (p ApplyRequest) Validate() error {
	if p.AliasNo == 0 {
		return errors.New("alias_no is required")
	}
	if !p.Amount.IsPositive() {
		return errors.New("amount must be greater than 0")
	}
	if !p.Operation.Valid() {
		return errors.New(`operation must be either "recharge" or "usage"`)
	}
	return nil
}

// ApplyResult is the outcome of one applied transaction.
type ApplyResult struct {
	Transaction *Transaction    `json:"transaction"`
	OldBalance  decimal.Decimal `json:"oldBalance"`
	NewBalance  decimal.Decimal `json:"newBalance"`
}

// TransactionFilter controls ledger queries.
type TransactionFilter struct {
	AliasNo   *int64
	Operation *TransactionOperation
	From      *time.Time
	To        *time.Time
}
