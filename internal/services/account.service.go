package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/transitcore/transit-gateway/internal/model"
	"github.com/transitcore/transit-gateway/internal/repository"
)

var (
	ErrInvalidPhoneNumber = errors.New("invalid phone number format, it must start with 0 and be 11 digits")
	ErrDuplicatePhone     = errors.New("account with this phone number already exists")
)

// 11 digits, leading zero
var phonePattern = regexp.MustCompile(`^0\d{10}$`)

type AccountRepo interface {
	Create(ctx context.Context, a *model.Account) (*model.Account, error)
	GetByID(ctx context.Context, accountID int64) (*model.Account, error)
	List(ctx context.Context) ([]*model.Account, error)
	UpdatePhone(ctx context.Context, accountID int64, phoneNumber string) error
	Delete(ctx context.Context, accountID int64) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type MediaOrphaner interface {
	OrphanByAccount(ctx context.Context, accountID int64) (int64, error)
}

type AccountService struct {
	accountRepo AccountRepo
	mediaRepo   MediaOrphaner
}

func NewAccountService(accountRepo AccountRepo, mediaRepo MediaOrphaner) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		mediaRepo:   mediaRepo,
	}
}

func (s *AccountService) Create(ctx context.Context, phoneNumber string) (*model.Account, error) {
	if !phonePattern.MatchString(phoneNumber) {
		return nil, ErrInvalidPhoneNumber
	}

	a, err := s.accountRepo.Create(ctx, &model.Account{PhoneNumber: phoneNumber})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return nil, ErrDuplicatePhone
		}
		return nil, err
	}
	return a, nil
}

func (s *AccountService) Get(ctx context.Context, accountID int64) (*model.Account, error) {
	a, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *AccountService) List(ctx context.Context) ([]*model.Account, error) {
	return s.accountRepo.List(ctx)
}

func (s *AccountService) UpdatePhone(ctx context.Context, accountID int64, phoneNumber string) (*model.Account, error) {
	if !phonePattern.MatchString(phoneNumber) {
		return nil, ErrInvalidPhoneNumber
	}

	if err := s.accountRepo.UpdatePhone(ctx, accountID, phoneNumber); err != nil {
		switch {
		case errors.Is(err, repository.ErrAccountNotFound):
			return nil, ErrAccountNotFound
		case errors.Is(err, repository.ErrDuplicatePhone):
			return nil, ErrDuplicatePhone
		}
		return nil, err
	}
	return s.Get(ctx, accountID)
}

// Delete removes the account and detaches its media in the same database
// transaction. Media rows survive as orphans; the ledger stays untouched.
// Returns how many media rows were orphaned.
func (s *AccountService) Delete(ctx context.Context, accountID int64) (int64, error) {
	var orphaned int64
	err := s.accountRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		n, err := s.mediaRepo.OrphanByAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("orphan media: %w", err)
		}
		orphaned = n

		if err := s.accountRepo.Delete(ctx, accountID); err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("delete account: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return orphaned, nil
}
