package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/transitcore/transit-gateway/internal/model"
	"github.com/transitcore/transit-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicatePhone  = errors.New("account with this phone number already exists")
)

type AccountRepository struct {
	*pg.DB
}

func NewAccountRepository(db *pg.DB) *AccountRepository {
	return &AccountRepository{
		db,
	}
}

func (r *AccountRepository) Create(ctx context.Context, a *model.Account) (*model.Account, error) {
	entity := toAccountEntity(a)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicatePhone
		}
		return nil, err
	}

	return toAccountModel(entity), nil
}

func (r *AccountRepository) GetByID(ctx context.Context, accountID int64) (*model.Account, error) {
	var entity AccountEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return toAccountModel(&entity), nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*model.Account, error) {
	var entities []*AccountEntity
	if err := r.Read(ctx).WithContext(ctx).Order("account_id").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toAccountModels(entities), nil
}

func (r *AccountRepository) UpdatePhone(ctx context.Context, accountID int64, phoneNumber string) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&AccountEntity{}).
		Where("account_id = ?", accountID).
		Update("phone_number", phoneNumber)

	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrDuplicatePhone
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, accountID int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&AccountEntity{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// isUniqueViolation matches both the postgres and the sqlite wording, so the
// same check works in production and in the in-memory test store.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
