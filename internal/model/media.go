package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MediaStatus is the lifecycle state of a card.
type MediaStatus string

const (
	MediaStatusActive    MediaStatus = "active"
	MediaStatusBlacklist MediaStatus = "blacklist"
)

func (s MediaStatus) Valid() bool {
	return s == MediaStatusActive || s == MediaStatusBlacklist
}

type Media struct {
	AliasNo    int64           `json:"alias_no"`
	AccountID  *int64          `json:"account_id"` // nil means orphaned
	CreateDate time.Time       `json:"create_date"`
	ExpiryDate time.Time       `json:"expiry_date"`
	Balance    decimal.Decimal `json:"balance"`
	Status     MediaStatus     `json:"status"`
}

func (Media) TableName() string { return "media" }

// MediaCreateRequest is the input for creating a media record.
type MediaCreateRequest struct {
	AccountID  *int64
	ExpiryDate time.Time
	Balance    decimal.Decimal
	Status     MediaStatus
}

func (p MediaCreateRequest) Validate() error {
	if p.ExpiryDate.IsZero() {
		return errors.New("expiry_date is required")
	}
	if p.Balance.IsNegative() {
		return errors.New("balance cannot be negative")
	}
	if p.Balance.IsZero() {
		return errors.New("balance must be greater than 0")
	}
	if p.Status != "" && !p.Status.Valid() {
		return errors.New("invalid status, must be one of: active, blacklist")
	}
	return nil
}
