package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/transitcore/transit-gateway/internal/model"
	"github.com/transitcore/transit-gateway/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrMediaNotFound    = errors.New("media not found")
	ErrConcurrentUpdate = errors.New("concurrent update detected")
)

type MediaRepository struct {
	*pg.DB
}

func NewMediaRepository(db *pg.DB) *MediaRepository {
	return &MediaRepository{
		db,
	}
}

func (r *MediaRepository) Create(ctx context.Context, m *model.Media) (*model.Media, error) {
	entity := toMediaEntity(m)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toMediaModel(entity), nil
}

func (r *MediaRepository) GetByAliasNo(ctx context.Context, aliasNo int64) (*model.Media, error) {
	var entity MediaEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("alias_no = ?", aliasNo).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}

	return toMediaModel(&entity), nil
}

// GetForUpdate reads a media row through the write connection while holding a
// row lock. It must run inside WithinTransaction, so the lock lives until the
// surrounding transaction commits or rolls back. Two concurrent balance
// mutations on the same alias serialize here instead of silently losing one
// update.
func (r *MediaRepository) GetForUpdate(ctx context.Context, aliasNo int64) (*model.Media, error) {
	var entity MediaEntity
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("alias_no = ?", aliasNo).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}

	return toMediaModel(&entity), nil
}

func (r *MediaRepository) List(ctx context.Context) ([]*model.Media, error) {
	var entities []*MediaEntity
	if err := r.Read(ctx).WithContext(ctx).Order("alias_no").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toMediaModels(entities), nil
}

func (r *MediaRepository) ListByAccount(ctx context.Context, accountID int64) ([]*model.Media, error) {
	var entities []*MediaEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("alias_no").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toMediaModels(entities), nil
}

func (r *MediaRepository) ListByStatus(ctx context.Context, status model.MediaStatus) ([]*model.Media, error) {
	var entities []*MediaEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("status = ?", string(status)).
		Order("alias_no").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toMediaModels(entities), nil
}

// ListOrphans returns media rows no account owns.
func (r *MediaRepository) ListOrphans(ctx context.Context) ([]*model.Media, error) {
	var entities []*MediaEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("account_id IS NULL").
		Order("alias_no").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toMediaModels(entities), nil
}

// SetBalance overwrites the balance unconditionally. This is the admin path,
// not the transaction protocol; range validation happens in the service.
func (r *MediaRepository) SetBalance(ctx context.Context, aliasNo int64, balance decimal.Decimal) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&MediaEntity{}).
		Where("alias_no = ?", aliasNo).
		Update("balance", balance)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMediaNotFound
	}
	return nil
}

// CompareAndSetBalance writes the new balance only if the row still carries
// the balance observed at read time. A zero row count means another writer
// got there first; the caller's transaction rolls back and the client
// resubmits.
func (r *MediaRepository) CompareAndSetBalance(ctx context.Context, aliasNo int64, oldBalance, newBalance decimal.Decimal) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&MediaEntity{}).
		Where("alias_no = ? AND balance = ?", aliasNo, oldBalance).
		Update("balance", newBalance)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func (r *MediaRepository) SetStatus(ctx context.Context, aliasNo int64, status model.MediaStatus) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&MediaEntity{}).
		Where("alias_no = ?", aliasNo).
		Update("status", string(status))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMediaNotFound
	}
	return nil
}

func (r *MediaRepository) Delete(ctx context.Context, aliasNo int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Where("alias_no = ?", aliasNo).
		Delete(&MediaEntity{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMediaNotFound
	}
	return nil
}

// OrphanByAccount detaches every media row owned by the account. Ledger rows
// stay untouched; the ledger is append-only.
func (r *MediaRepository) OrphanByAccount(ctx context.Context, accountID int64) (int64, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&MediaEntity{}).
		Where("account_id = ?", accountID).
		Update("account_id", nil)

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
