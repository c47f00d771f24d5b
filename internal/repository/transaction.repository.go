package repository

import (
	"context"

	"github.com/pkg/errors"
	"github.com/transitcore/transit-gateway/internal/model"
	"github.com/transitcore/transit-gateway/pkg/pg"
	"gorm.io/gorm"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

// ListByAliasNo returns the ledger of one card, newest first.
func (r *TransactionRepository) ListByAliasNo(ctx context.Context, aliasNo int64) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("alias_no = ?", aliasNo).
		Order("date DESC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

func (r *TransactionRepository) ListByOperation(ctx context.Context, op model.TransactionOperation) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("operation = ?", string(op)).
		Order("date DESC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

// ListWithOwner lists ledger entries joined with the owning account of each
// entry's media, applying the optional filter.
func (r *TransactionRepository) ListWithOwner(ctx context.Context, f model.TransactionFilter) ([]*model.TransactionWithOwner, error) {
	query := r.buildOwnerQuery(ctx)

	if f.AliasNo != nil {
		query = query.Where("t.alias_no = ?", *f.AliasNo)
	}
	if f.Operation != nil {
		query = query.Where("t.operation = ?", string(*f.Operation))
	}
	if f.From != nil && f.To != nil {
		query = query.Where("t.date BETWEEN ? AND ?", *f.From, *f.To)
	}

	var entities []*TransactionWithOwnerEntity
	if err := query.Order("t.date DESC").Find(&entities).Error; err != nil {
		return nil, err
	}

	return toTransactionWithOwnerModels(entities), nil
}

func (r *TransactionRepository) buildOwnerQuery(ctx context.Context) *gorm.DB {
	return r.Read(ctx).WithContext(ctx).
		Table(`"transaction" AS t`).
		Select(`
            t.id        AS id,
            t.alias_no  AS alias_no,
            t.amount    AS amount,
            t.date      AS date,
            t.operation AS operation,
            m.account_id    AS account_id,
            a.phone_number  AS phone_number
        `).
		Joins("LEFT JOIN media AS m ON m.alias_no = t.alias_no").
		Joins("LEFT JOIN account AS a ON a.account_id = m.account_id")
}
