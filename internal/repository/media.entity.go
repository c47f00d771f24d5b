package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/transitcore/transit-gateway/internal/model"
)

type MediaEntity struct {
	AliasNo    int64           `db:"alias_no"    gorm:"primaryKey;autoIncrement;column:alias_no"`
	AccountID  *int64          `db:"account_id"  gorm:"column:account_id;index"` // nullable, ON DELETE SET NULL
	CreateDate time.Time       `db:"create_date" gorm:"column:create_date;autoCreateTime"`
	ExpiryDate time.Time       `db:"expiry_date" gorm:"column:expiry_date;not null"`
	Balance    decimal.Decimal `db:"balance"     gorm:"column:balance;not null;type:decimal(12,2)"`
	Status     string          `db:"status"      gorm:"column:status;not null;default:active;index"`
}

func (MediaEntity) TableName() string {
	return "media"
}

func toMediaEntity(m *model.Media) *MediaEntity {
	if m == nil {
		return nil
	}
	return &MediaEntity{
		AliasNo:    m.AliasNo,
		AccountID:  m.AccountID,
		CreateDate: m.CreateDate,
		ExpiryDate: m.ExpiryDate,
		Balance:    m.Balance,
		Status:     string(m.Status),
	}
}

func toMediaModel(e *MediaEntity) *model.Media {
	if e == nil {
		return nil
	}
	return &model.Media{
		AliasNo:    e.AliasNo,
		AccountID:  e.AccountID,
		CreateDate: e.CreateDate,
		ExpiryDate: e.ExpiryDate,
		Balance:    e.Balance,
		Status:     model.MediaStatus(e.Status),
	}
}

func toMediaModels(entities []*MediaEntity) []*model.Media {
	if entities == nil {
		return nil
	}
	models := make([]*model.Media, len(entities))
	for i, e := range entities {
		models[i] = toMediaModel(e)
	}
	return models
}
