package model

type Account struct {
	ID          int64  `json:"account_id"`
	PhoneNumber string `json:"phone_number"`
}

func (Account) TableName() string { return "account" }
