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

type MockMediaStore struct {
	mock.Mock
}

func (m *MockMediaStore) Create(ctx context.Context, media *model.Media) (*model.Media, error) {
	args := m.Called(ctx, media)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

func (m *MockMediaStore) GetByAliasNo(ctx context.Context, aliasNo int64) (*model.Media, error) {
	args := m.Called(ctx, aliasNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Media), args.Error(1)
}

func (m *MockMediaStore) List(ctx context.Context) ([]*model.Media, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Media), args.Error(1)
}

func (m *MockMediaStore) ListByAccount(ctx context.Context, accountID int64) ([]*model.Media, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Media), args.Error(1)
}

func (m *MockMediaStore) ListByStatus(ctx context.Context, status model.MediaStatus) ([]*model.Media, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Media), args.Error(1)
}

func (m *MockMediaStore) ListOrphans(ctx context.Context) ([]*model.Media, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Media), args.Error(1)
}

func (m *MockMediaStore) SetBalance(ctx context.Context, aliasNo int64, balance decimal.Decimal) error {
	args := m.Called(ctx, aliasNo, balance)
	return args.Error(0)
}

func (m *MockMediaStore) SetStatus(ctx context.Context, aliasNo int64, status model.MediaStatus) error {
	args := m.Called(ctx, aliasNo, status)
	return args.Error(0)
}

func (m *MockMediaStore) Delete(ctx context.Context, aliasNo int64) error {
	args := m.Called(ctx, aliasNo)
	return args.Error(0)
}

type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) GetByID(ctx context.Context, accountID int64) (*model.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func validCreateRequest() model.MediaCreateRequest {
	return model.MediaCreateRequest{
		ExpiryDate: time.Now().AddDate(1, 0, 0),
		Balance:    decimal.RequireFromString("50.00"),
	}
}

func TestMediaService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("orphan card defaults to active", func(t *testing.T) {
		mediaStore := new(MockMediaStore)
		accountStore := new(MockAccountStore)
		service := NewMediaService(mediaStore, accountStore)

		mediaStore.On("Create", ctx, mock.MatchedBy(func(m *model.Media) bool {
			return m.Status == model.MediaStatusActive && m.AccountID == nil
		})).Return(&model.Media{AliasNo: 1, Status: model.MediaStatusActive}, nil)

		m, err := service.Create(ctx, validCreateRequest())
		require.NoError(t, err)
		assert.Equal(t, int64(1), m.AliasNo)
		mediaStore.AssertExpectations(t)
	})

	t.Run("owner must exist", func(t *testing.T) {
		mediaStore := new(MockMediaStore)
		accountStore := new(MockAccountStore)
		service := NewMediaService(mediaStore, accountStore)

		accountStore.On("GetByID", ctx, int64(9)).Return(nil, repository.ErrAccountNotFound)

		req := validCreateRequest()
		id := int64(9)
		req.AccountID = &id

		_, err := service.Create(ctx, req)
		assert.ErrorIs(t, err, ErrAccountNotFound)
		mediaStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("zero balance rejected", func(t *testing.T) {
		service := NewMediaService(new(MockMediaStore), new(MockAccountStore))

		req := validCreateRequest()
		req.Balance = decimal.Zero

		_, err := service.Create(ctx, req)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("negative balance rejected", func(t *testing.T) {
		service := NewMediaService(new(MockMediaStore), new(MockAccountStore))

		req := validCreateRequest()
		req.Balance = decimal.RequireFromString("-1.00")

		_, err := service.Create(ctx, req)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("missing expiry rejected", func(t *testing.T) {
		service := NewMediaService(new(MockMediaStore), new(MockAccountStore))

		req := validCreateRequest()
		req.ExpiryDate = time.Time{}

		_, err := service.Create(ctx, req)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		service := NewMediaService(new(MockMediaStore), new(MockAccountStore))

		req := validCreateRequest()
		req.Status = "frozen"

		_, err := service.Create(ctx, req)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestMediaService_SetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("zero allowed on overwrite", func(t *testing.T) {
		mediaStore := new(MockMediaStore)
		service := NewMediaService(mediaStore, new(MockAccountStore))

		mediaStore.On("SetBalance", ctx, int64(1), decimal.Zero).Return(nil)
		mediaStore.On("GetByAliasNo", ctx, int64(1)).
			Return(&model.Media{AliasNo: 1, Balance: decimal.Zero}, nil)

		m, err := service.SetBalance(ctx, 1, decimal.Zero)
		require.NoError(t, err)
		assert.True(t, m.Balance.IsZero())
	})

	t.Run("negative rejected", func(t *testing.T) {
		mediaStore := new(MockMediaStore)
		service := NewMediaService(mediaStore, new(MockAccountStore))

		_, err := service.SetBalance(ctx, 1, decimal.RequireFromString("-5.00"))
		assert.ErrorIs(t, err, ErrValidation)
		mediaStore.AssertNotCalled(t, "SetBalance", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing media", func(t *testing.T) {
		mediaStore := new(MockMediaStore)
		service := NewMediaService(mediaStore, new(MockAccountStore))

		mediaStore.On("SetBalance", ctx, int64(9), mock.Anything).Return(repository.ErrMediaNotFound)

		_, err := service.SetBalance(ctx, 9, decimal.RequireFromString("5.00"))
		assert.ErrorIs(t, err, ErrMediaNotFound)
	})
}

func TestMediaService_SetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("blacklist card", func(t *testing.T) {
		mediaStore := new(MockMediaStore)
		service := NewMediaService(mediaStore, new(MockAccountStore))

		mediaStore.On("SetStatus", ctx, int64(1), model.MediaStatusBlacklist).Return(nil)
		mediaStore.On("GetByAliasNo", ctx, int64(1)).
			Return(&model.Media{AliasNo: 1, Status: model.MediaStatusBlacklist}, nil)

		m, err := service.SetStatus(ctx, 1, model.MediaStatusBlacklist)
		require.NoError(t, err)
		assert.Equal(t, model.MediaStatusBlacklist, m.Status)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		mediaStore := new(MockMediaStore)
		service := NewMediaService(mediaStore, new(MockAccountStore))

		_, err := service.SetStatus(ctx, 1, "frozen")
		assert.ErrorIs(t, err, ErrValidation)
		mediaStore.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestMediaService_ListByAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("account exists", func(t *testing.T) {
		mediaStore := new(MockMediaStore)
		accountStore := new(MockAccountStore)
		service := NewMediaService(mediaStore, accountStore)

		accountStore.On("GetByID", ctx, int64(1)).Return(&model.Account{ID: 1}, nil)
		mediaStore.On("ListByAccount", ctx, int64(1)).Return([]*model.Media{{AliasNo: 5}}, nil)

		items, err := service.ListByAccount(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("account missing", func(t *testing.T) {
		mediaStore := new(MockMediaStore)
		accountStore := new(MockAccountStore)
		service := NewMediaService(mediaStore, accountStore)

		accountStore.On("GetByID", ctx, int64(9)).Return(nil, repository.ErrAccountNotFound)

		_, err := service.ListByAccount(ctx, 9)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestMediaService_ListByStatus(t *testing.T) {
	ctx := context.Background()
	mediaStore := new(MockMediaStore)
	service := NewMediaService(mediaStore, new(MockAccountStore))

	t.Run("invalid status", func(t *testing.T) {
		_, err := service.ListByStatus(ctx, "frozen")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("valid status", func(t *testing.T) {
		mediaStore.On("ListByStatus", ctx, model.MediaStatusActive).Return([]*model.Media{}, nil)

		_, err := service.ListByStatus(ctx, model.MediaStatusActive)
		require.NoError(t, err)
	})
}

func TestMediaService_Delete(t *testing.T) {
	ctx := context.Background()
	mediaStore := new(MockMediaStore)
	service := NewMediaService(mediaStore, new(MockAccountStore))

	mediaStore.On("Delete", ctx, int64(1)).Return(nil).Once()
	require.NoError(t, service.Delete(ctx, 1))

	mediaStore.On("Delete", ctx, int64(1)).Return(repository.ErrMediaNotFound).Once()
	assert.ErrorIs(t, service.Delete(ctx, 1), ErrMediaNotFound)
}
