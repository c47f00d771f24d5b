package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/transitcore/transit-gateway/internal/model"
	"github.com/transitcore/transit-gateway/internal/repository"
)

type MockMediaRepository struct {
	mock.Mock
}

func (m *MockMediaRepository) GetByAliasNo(ctx context.Context, aliasNo int64) (*model.Media, error) {
	args := m.Called(ctx, aliasNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

func (m *MockMediaRepository) GetForUpdate(ctx context.Context, aliasNo int64) (*model.Media, error) {
	args := m.Called(ctx, aliasNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

func (m *MockMediaRepository) CompareAndSetBalance(ctx context.Context, aliasNo int64, oldBalance, newBalance decimal.Decimal) error {
	args := m.Called(ctx, aliasNo, oldBalance, newBalance)
	return args.Error(0)
}

func (m *MockMediaRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByAliasNo(ctx context.Context, aliasNo int64) ([]*model.Transaction, error) {
	args := m.Called(ctx, aliasNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByOperation(ctx context.Context, op model.TransactionOperation) ([]*model.Transaction, error) {
	args := m.Called(ctx, op)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListWithOwner(ctx context.Context, f model.TransactionFilter) ([]*model.TransactionWithOwner, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TransactionWithOwner), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error) {
	args := m.Called(ctx, data, metadata)
	return args.String(0), args.Error(1)
}

func activeMedia(aliasNo int64, balance string) *model.Media {
	return &model.Media{
		AliasNo:    aliasNo,
		Balance:    decimal.RequireFromString(balance),
		Status:     model.MediaStatusActive,
		ExpiryDate: time.Now().AddDate(1, 0, 0),
	}
}

func TestTransactionService_Apply_Recharge(t *testing.T) {
	mediaRepo := new(MockMediaRepository)
	txnRepo := new(MockTransactionRepository)
	events := new(MockEventPublisher)
	ctx := context.Background()

	service := NewTransactionService(mediaRepo, txnRepo, events)

	mediaRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mediaRepo.On("GetForUpdate", mock.Anything, int64(1)).Return(activeMedia(1, "10.00"), nil)
	txnRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Transaction")).
		Return(&model.Transaction{
			ID:        77,
			AliasNo:   1,
			Amount:    decimal.RequireFromString("25.00"),
			Date:      time.Now().UTC(),
			Operation: model.OperationRecharge,
		}, nil)
	mediaRepo.On("CompareAndSetBalance", mock.Anything, int64(1),
		decimal.RequireFromString("10.00"), decimal.RequireFromString("35.00")).Return(nil)
	events.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).Return("1-0", nil)

	res, err := service.Recharge(ctx, 1, decimal.RequireFromString("25.00"))
	require.NoError(t, err)
	assert.Equal(t, int64(77), res.Transaction.ID)
	assert.True(t, res.OldBalance.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, res.NewBalance.Equal(decimal.RequireFromString("35.00")))
	assert.Equal(t, model.OperationRecharge, res.Transaction.Operation)

	mediaRepo.AssertExpectations(t)
	txnRepo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestTransactionService_Apply_Usage(t *testing.T) {
	mediaRepo := new(MockMediaRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	service := NewTransactionService(mediaRepo, txnRepo, nil)

	mediaRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mediaRepo.On("GetForUpdate", mock.Anything, int64(2)).Return(activeMedia(2, "5.00"), nil)
	txnRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Transaction")).
		Return(&model.Transaction{ID: 1, AliasNo: 2, Operation: model.OperationUsage}, nil)
	mediaRepo.On("CompareAndSetBalance", mock.Anything, int64(2),
		decimal.RequireFromString("5.00"), decimal.RequireFromString("2.50")).Return(nil)

	res, err := service.Usage(ctx, 2, decimal.RequireFromString("2.50"))
	require.NoError(t, err)
	assert.True(t, res.NewBalance.Equal(decimal.RequireFromString("2.50")))

	mediaRepo.AssertExpectations(t)
}

func TestTransactionService_Apply_UsageExactBalance(t *testing.T) {
	mediaRepo := new(MockMediaRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	service := NewTransactionService(mediaRepo, txnRepo, nil)

	mediaRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mediaRepo.On("GetForUpdate", mock.Anything, int64(2)).Return(activeMedia(2, "5.00"), nil)
	txnRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Transaction")).
		Return(&model.Transaction{ID: 2, AliasNo: 2, Operation: model.OperationUsage}, nil)
	mediaRepo.On("CompareAndSetBalance", mock.Anything, int64(2),
		decimal.RequireFromString("5.00"),
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.IsZero() })).Return(nil)

	// consuming exactly the remaining balance is allowed, the card ends at zero
	res, err := service.Usage(ctx, 2, decimal.RequireFromString("5.00"))
	require.NoError(t, err)
	assert.True(t, res.NewBalance.IsZero())
}

func TestTransactionService_Apply_InsufficientBalance(t *testing.T) {
	mediaRepo := new(MockMediaRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	service := NewTransactionService(mediaRepo, txnRepo, nil)

	mediaRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mediaRepo.On("GetForUpdate", mock.Anything, int64(3)).Return(activeMedia(3, "1.00"), nil)

	res, err := service.Usage(ctx, 3, decimal.RequireFromString("2.00"))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Nil(t, res)

	// no ledger write may happen on a rejected usage
	txnRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTransactionService_Apply_Blacklisted(t *testing.T) {
	mediaRepo := new(MockMediaRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	service := NewTransactionService(mediaRepo, txnRepo, nil)

	card := activeMedia(4, "50.00")
	card.Status = model.MediaStatusBlacklist

	mediaRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mediaRepo.On("GetForUpdate", mock.Anything, int64(4)).Return(card, nil)

	// blacklist blocks recharges too, not just usages
	res, err := service.Recharge(ctx, 4, decimal.RequireFromString("10.00"))
	assert.ErrorIs(t, err, ErrMediaBlacklisted)
	assert.Nil(t, res)

	txnRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTransactionService_Apply_MediaNotFound(t *testing.T) {
	mediaRepo := new(MockMediaRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	service := NewTransactionService(mediaRepo, txnRepo, nil)

	mediaRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mediaRepo.On("GetForUpdate", mock.Anything, int64(9)).Return(nil, repository.ErrMediaNotFound)

	res, err := service.Recharge(ctx, 9, decimal.RequireFromString("10.00"))
	assert.ErrorIs(t, err, ErrMediaNotFound)
	assert.Nil(t, res)
}

func TestTransactionService_Apply_ConcurrentConflict(t *testing.T) {
	mediaRepo := new(MockMediaRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	service := NewTransactionService(mediaRepo, txnRepo, nil)

	mediaRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mediaRepo.On("GetForUpdate", mock.Anything, int64(5)).Return(activeMedia(5, "20.00"), nil)
	txnRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Transaction")).
		Return(&model.Transaction{ID: 3, AliasNo: 5, Operation: model.OperationUsage}, nil)
	mediaRepo.On("CompareAndSetBalance", mock.Anything, int64(5),
		mock.Anything, mock.Anything).Return(repository.ErrConcurrentUpdate)

	res, err := service.Usage(ctx, 5, decimal.RequireFromString("1.00"))
	assert.ErrorIs(t, err, repository.ErrConcurrentUpdate)
	assert.Nil(t, res)
}

func TestTransactionService_Apply_Validation(t *testing.T) {
	service := NewTransactionService(new(MockMediaRepository), new(MockTransactionRepository), nil)
	ctx := context.Background()

	t.Run("zero amount", func(t *testing.T) {
		_, err := service.Recharge(ctx, 1, decimal.Zero)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("negative amount", func(t *testing.T) {
		_, err := service.Usage(ctx, 1, decimal.RequireFromString("-4.00"))
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, err := service.Apply(ctx, model.ApplyRequest{
			AliasNo:   1,
			Amount:    decimal.RequireFromString("1.00"),
			Operation: "transfer",
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("missing alias", func(t *testing.T) {
		_, err := service.Apply(ctx, model.ApplyRequest{
			Amount:    decimal.RequireFromString("1.00"),
			Operation: model.OperationUsage,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestTransactionService_Apply_PublishFailureRollsBack(t *testing.T) {
	mediaRepo := new(MockMediaRepository)
	txnRepo := new(MockTransactionRepository)
	events := new(MockEventPublisher)
	ctx := context.Background()

	service := NewTransactionService(mediaRepo, txnRepo, events)

	mediaRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mediaRepo.On("GetForUpdate", mock.Anything, int64(6)).Return(activeMedia(6, "30.00"), nil)
	txnRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Transaction")).
		Return(&model.Transaction{ID: 4, AliasNo: 6, Operation: model.OperationRecharge}, nil)
	mediaRepo.On("CompareAndSetBalance", mock.Anything, int64(6),
		mock.Anything, mock.Anything).Return(nil)
	events.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).
		Return("", assert.AnError)

	res, err := service.Recharge(ctx, 6, decimal.RequireFromString("5.00"))
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestTransactionService_ListByMedia(t *testing.T) {
	mediaRepo := new(MockMediaRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	service := NewTransactionService(mediaRepo, txnRepo, nil)

	t.Run("media exists", func(t *testing.T) {
		mediaRepo.On("GetByAliasNo", ctx, int64(1)).Return(activeMedia(1, "10.00"), nil).Once()
		txnRepo.On("ListByAliasNo", ctx, int64(1)).
			Return([]*model.Transaction{{ID: 1, AliasNo: 1}}, nil).Once()

		items, err := service.ListByMedia(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("media missing", func(t *testing.T) {
		mediaRepo.On("GetByAliasNo", ctx, int64(2)).Return(nil, repository.ErrMediaNotFound).Once()

		_, err := service.ListByMedia(ctx, 2)
		assert.ErrorIs(t, err, ErrMediaNotFound)
	})
}

func TestTransactionService_ListByOperation(t *testing.T) {
	txnRepo := new(MockTransactionRepository)
	service := NewTransactionService(new(MockMediaRepository), txnRepo, nil)
	ctx := context.Background()

	t.Run("valid type", func(t *testing.T) {
		txnRepo.On("ListByOperation", ctx, model.OperationRecharge).
			Return([]*model.Transaction{}, nil).Once()

		_, err := service.ListByOperation(ctx, model.OperationRecharge)
		require.NoError(t, err)
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := service.ListByOperation(ctx, "refund")
		assert.ErrorIs(t, err, ErrValidation)
	})
}
