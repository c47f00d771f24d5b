package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/transitcore/transit-gateway/internal/model"
)

type TransactionEntity struct {
	ID        int64           `db:"id"        gorm:"primaryKey;autoIncrement;column:id"`
	AliasNo   int64           `db:"alias_no"  gorm:"column:alias_no;not null;index"` // soft reference to media
	Amount    decimal.Decimal `db:"amount"    gorm:"column:amount;not null;type:decimal(12,2)"`
	Date      time.Time       `db:"date"      gorm:"column:date;not null;index"`
	Operation string          `db:"operation" gorm:"column:operation;not null;index"`
}

func (TransactionEntity) TableName() string {
	return "transaction"
}

// TransactionWithOwnerEntity carries the LEFT JOIN of a ledger row with its
// media's account.
type TransactionWithOwnerEntity struct {
	ID          int64           `gorm:"column:id"`
	AliasNo     int64           `gorm:"column:alias_no"`
	Amount      decimal.Decimal `gorm:"column:amount"`
	Date        time.Time       `gorm:"column:date"`
	Operation   string          `gorm:"column:operation"`
	AccountID   *int64          `gorm:"column:account_id"`
	PhoneNumber *string         `gorm:"column:phone_number"`
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:        m.ID,
		AliasNo:   m.AliasNo,
		Amount:    m.Amount,
		Date:      m.Date,
		Operation: string(m.Operation),
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:        e.ID,
		AliasNo:   e.AliasNo,
		Amount:    e.Amount,
		Date:      e.Date,
		Operation: model.TransactionOperation(e.Operation),
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}

func toTransactionWithOwnerModels(entities []*TransactionWithOwnerEntity) []*model.TransactionWithOwner {
	if entities == nil {
		return nil
	}
	models := make([]*model.TransactionWithOwner, len(entities))
	for i, e := range entities {
		models[i] = &model.TransactionWithOwner{
			ID:          e.ID,
			AliasNo:     e.AliasNo,
			Amount:      e.Amount,
			Date:        e.Date,
			Operation:   model.TransactionOperation(e.Operation),
			AccountID:   e.AccountID,
			PhoneNumber: e.PhoneNumber,
		}
	}
	return models
}
