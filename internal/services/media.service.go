package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/transitcore/transit-gateway/internal/model"
	"github.com/transitcore/transit-gateway/internal/repository"
)

type MediaStore interface {
	Create(ctx context.Context, m *model.Media) (*model.Media, error)
	GetByAliasNo(ctx context.Context, aliasNo int64) (*model.Media, error)
	List(ctx context.Context) ([]*model.Media, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*model.Media, error)
	ListByStatus(ctx context.Context, status model.MediaStatus) ([]*model.Media, error)
	ListOrphans(ctx context.Context) ([]*model.Media, error)
	SetBalance(ctx context.Context, aliasNo int64, balance decimal.Decimal) error
	SetStatus(ctx context.Context, aliasNo int64, status model.MediaStatus) error
	Delete(ctx context.Context, aliasNo int64) error
}

type AccountStore interface {
	GetByID(ctx context.Context, accountID int64) (*model.Account, error)
}

type MediaService struct {
	mediaRepo   MediaStore
	accountRepo AccountStore
}

func NewMediaService(mediaRepo MediaStore, accountRepo AccountStore) *MediaService {
	return &MediaService{
		mediaRepo:   mediaRepo,
		accountRepo: accountRepo,
	}
}

// Create registers a new card. A zero or negative opening balance is
// rejected before anything touches the store; a referenced account must
// exist, while a nil account produces an orphan card.
func (s *MediaService) Create(ctx context.Context, p model.MediaCreateRequest) (*model.Media, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	status := p.Status
	if status == "" {
		status = model.MediaStatusActive
	}

	if p.AccountID != nil {
		if _, err := s.accountRepo.GetByID(ctx, *p.AccountID); err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return nil, ErrAccountNotFound
			}
			return nil, fmt.Errorf("lookup account: %w", err)
		}
	}

	m := &model.Media{
		AccountID:  p.AccountID,
		ExpiryDate: p.ExpiryDate,
		Balance:    p.Balance,
		Status:     status,
	}
	return s.mediaRepo.Create(ctx, m)
}

func (s *MediaService) Get(ctx context.Context, aliasNo int64) (*model.Media, error) {
	m, err := s.mediaRepo.GetByAliasNo(ctx, aliasNo)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *MediaService) List(ctx context.Context) ([]*model.Media, error) {
	return s.mediaRepo.List(ctx)
}

func (s *MediaService) ListByStatus(ctx context.Context, status model.MediaStatus) ([]*model.Media, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status, must be one of: active, blacklist", ErrValidation)
	}
	return s.mediaRepo.ListByStatus(ctx, status)
}

func (s *MediaService) ListOrphans(ctx context.Context) ([]*model.Media, error) {
	return s.mediaRepo.ListOrphans(ctx)
}

// ListByAccount requires the account to exist so a missing account reads as
// 404 rather than an empty list.
func (s *MediaService) ListByAccount(ctx context.Context, accountID int64) ([]*model.Media, error) {
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return s.mediaRepo.ListByAccount(ctx, accountID)
}

// SetBalance is the admin overwrite. Unlike creation it permits zero, but a
// negative balance never reaches the store.
func (s *MediaService) SetBalance(ctx context.Context, aliasNo int64, balance decimal.Decimal) (*model.Media, error) {
	if balance.IsNegative() {
		return nil, fmt.Errorf("%w: balance cannot be negative", ErrValidation)
	}

	if err := s.mediaRepo.SetBalance(ctx, aliasNo, balance); err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return s.Get(ctx, aliasNo)
}

// SetStatus toggles a card between active and blacklist. There are no
// transition rules: blacklisting a card holding balance is allowed, and
// re-activating restores transaction eligibility.
func (s *MediaService) SetStatus(ctx context.Context, aliasNo int64, status model.MediaStatus) (*model.Media, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status, must be one of: active, blacklist", ErrValidation)
	}

	if err := s.mediaRepo.SetStatus(ctx, aliasNo, status); err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return s.Get(ctx, aliasNo)
}

func (s *MediaService) Delete(ctx context.Context, aliasNo int64) error {
	if err := s.mediaRepo.Delete(ctx, aliasNo); err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return ErrMediaNotFound
		}
		return err
	}
	return nil
}
