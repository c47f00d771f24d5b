package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transitcore/transit-gateway/internal/event"
	"github.com/transitcore/transit-gateway/internal/model"
	"github.com/transitcore/transit-gateway/internal/repository"
	"github.com/transitcore/transit-gateway/pkg/prom"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrMediaNotFound       = errors.New("media not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrMediaBlacklisted    = errors.New("transaction not allowed - media is blacklisted")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

type MediaRepository interface {
	GetByAliasNo(ctx context.Context, aliasNo int64) (*model.Media, error)
	GetForUpdate(ctx context.Context, aliasNo int64) (*model.Media, error)
	CompareAndSetBalance(ctx context.Context, aliasNo int64, oldBalance, newBalance decimal.Decimal) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	ListByAliasNo(ctx context.Context, aliasNo int64) ([]*model.Transaction, error)
	ListByOperation(ctx context.Context, op model.TransactionOperation) ([]*model.Transaction, error)
	ListWithOwner(ctx context.Context, f model.TransactionFilter) ([]*model.TransactionWithOwner, error)
}

// EventPublisher pushes applied-transaction events onto the stream the
// auditor consumes.
type EventPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

type TransactionService struct {
	mediaRepo       MediaRepository
	transactionRepo TransactionRepository
	events          EventPublisher
}

func NewTransactionService(mediaRepo MediaRepository, transactionRepo TransactionRepository, events EventPublisher) *TransactionService {
	return &TransactionService{
		mediaRepo:       mediaRepo,
		transactionRepo: transactionRepo,
		events:          events,
	}
}

// Apply runs the balance-mutation protocol: lock the media row, validate,
// compute the new balance, persist ledger entry plus balance update as one
// unit. The ledger insert and the balance write either both commit or both
// roll back; the row lock plus the compare-and-set write keeps two
// concurrent mutations on the same alias from losing an update.
func (s *TransactionService) Apply(ctx context.Context, p model.ApplyRequest) (*model.ApplyResult, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	start := time.Now()

	var result *model.ApplyResult
	err := s.mediaRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		media, err := s.mediaRepo.GetForUpdate(ctx, p.AliasNo)
		if err != nil {
			if errors.Is(err, repository.ErrMediaNotFound) {
				return ErrMediaNotFound
			}
			return fmt.Errorf("lookup media: %w", err)
		}

		if media.Status == model.MediaStatusBlacklist {
			return ErrMediaBlacklisted
		}

		oldBalance := media.Balance
		var newBalance decimal.Decimal
		switch p.Operation {
		case model.OperationRecharge:
			newBalance = oldBalance.Add(p.Amount)
		case model.OperationUsage:
			if oldBalance.LessThan(p.Amount) {
				return ErrInsufficientBalance
			}
			newBalance = oldBalance.Sub(p.Amount)
		}

		txn := &model.Transaction{
			AliasNo:   p.AliasNo,
			Amount:    p.Amount,
			Date:      time.Now().UTC(),
			Operation: p.Operation,
		}
		created, err := s.transactionRepo.Create(ctx, txn)
		if err != nil {
			return fmt.Errorf("create ledger entry: %w", err)
		}

		if err := s.mediaRepo.CompareAndSetBalance(ctx, p.AliasNo, oldBalance, newBalance); err != nil {
			// rolls back the ledger insert too
			return err
		}

		result = &model.ApplyResult{
			Transaction: created,
			OldBalance:  oldBalance,
			NewBalance:  newBalance,
		}

		if s.events != nil {
			evt := event.NewTransactionApplied(result)
			meta := map[string]string{"event_id": uuid.NewString()}
			if _, err := s.events.PublishJSON(ctx, evt, meta); err != nil {
				return fmt.Errorf("publish transaction event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		prom.IncCounterVec(prom.SystemTransactions, prom.MetricTransactionRejected, rejectReason(err))
		return nil, err
	}

	prom.IncCounterVec(prom.SystemTransactions, prom.MetricTransactionApplied, string(p.Operation))
	prom.AddTransactionApplyDuration(time.Since(start).Seconds(), string(p.Operation))

	return result, nil
}

// Recharge applies a balance top-up.
func (s *TransactionService) Recharge(ctx context.Context, aliasNo int64, amount decimal.Decimal) (*model.ApplyResult, error) {
	return s.Apply(ctx, model.ApplyRequest{AliasNo: aliasNo, Amount: amount, Operation: model.OperationRecharge})
}

// Usage applies a balance deduction.
func (s *TransactionService) Usage(ctx context.Context, aliasNo int64, amount decimal.Decimal) (*model.ApplyResult, error) {
	return s.Apply(ctx, model.ApplyRequest{AliasNo: aliasNo, Amount: amount, Operation: model.OperationUsage})
}

func (s *TransactionService) List(ctx context.Context, f model.TransactionFilter) ([]*model.TransactionWithOwner, error) {
	return s.transactionRepo.ListWithOwner(ctx, f)
}

// ListByMedia returns one card's ledger, newest first. The media must exist.
func (s *TransactionService) ListByMedia(ctx context.Context, aliasNo int64) ([]*model.Transaction, error) {
	if _, err := s.mediaRepo.GetByAliasNo(ctx, aliasNo); err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return s.transactionRepo.ListByAliasNo(ctx, aliasNo)
}

func (s *TransactionService) ListByOperation(ctx context.Context, op model.TransactionOperation) ([]*model.Transaction, error) {
	if !op.Valid() {
		return nil, fmt.Errorf(`%w: invalid transaction type, must be either "recharge" or "usage"`, ErrValidation)
	}
	return s.transactionRepo.ListByOperation(ctx, op)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrMediaNotFound):
		return "not_found"
	case errors.Is(err, ErrMediaBlacklisted):
		return "blacklisted"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, repository.ErrConcurrentUpdate):
		return "conflict"
	default:
		return "internal"
	}
}
