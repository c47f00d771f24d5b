package repository

import (
	"github.com/transitcore/transit-gateway/internal/model"
)

type AccountEntity struct {
	ID          int64  `db:"account_id"   gorm:"primaryKey;autoIncrement;column:account_id"`
	PhoneNumber string `db:"phone_number" gorm:"column:phone_number;not null;unique"`
}

func (AccountEntity) TableName() string {
	return "account"
}

func toAccountEntity(m *model.Account) *AccountEntity {
	if m == nil {
		return nil
	}
	return &AccountEntity{
		ID:          m.ID,
		PhoneNumber: m.PhoneNumber,
	}
}

func toAccountModel(e *AccountEntity) *model.Account {
	if e == nil {
		return nil
	}
	return &model.Account{
		ID:          e.ID,
		PhoneNumber: e.PhoneNumber,
	}
}

func toAccountModels(entities []*AccountEntity) []*model.Account {
	if entities == nil {
		return nil
	}
	models := make([]*model.Account, len(entities))
	for i, e := range entities {
		models[i] = toAccountModel(e)
	}
	return models
}
