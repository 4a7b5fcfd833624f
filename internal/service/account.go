package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
	"banana-bot/internal/repository"
)

// Common errors for account operations.
var (
	ErrInvalidAmount = errors.New("invalid amount: must be positive")
)

// AccountService owns user wallets and implements game.Economy. Users
// are created with the starting balance the first time they are touched.
type AccountService struct {
	users    UserStore
	starting int64
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(users UserStore, startingBananas int64) *AccountService {
	return &AccountService{users: users, starting: startingBananas}
}

// EnsureUser returns the user, creating it if necessary, and keeps the
// stored username current. The bool reports whether it was created.
func (s *AccountService) EnsureUser(ctx context.Context, id int64, username string) (*model.User, bool, error) {
	user, created, err := s.users.GetOrCreate(ctx, id, username, s.starting)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}
	if created {
		log.Info().Int64("user_id", id).Int64("bananas", s.starting).Msg("User created")
	}

	if !created && username != "" && user.Username != username {
		if err := s.users.UpdateUsername(ctx, id, username); err != nil {
			log.Warn().Err(err).Int64("user_id", id).Msg("Failed to update username")
		}
		user.Username = username
	}
	return user, created, nil
}

// GetUser returns the user, creating it if necessary.
func (s *AccountService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	user, _, err := s.EnsureUser(ctx, id, "")
	return user, err
}

// Balance implements game.Economy.
func (s *AccountService) Balance(ctx context.Context, id int64) (int64, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return 0, err
	}
	return user.Bananas, nil
}

// Credit implements game.Economy.
func (s *AccountService) Credit(ctx context.Context, id, amount int64, txType string) error {
	return s.credit(ctx, id, model.CurrencyBananas, amount, txType)
}

// Debit implements game.Economy. An overdraw fails with
// game.ErrInsufficientFunds and changes nothing.
func (s *AccountService) Debit(ctx context.Context, id, amount int64, txType string) error {
	return s.debit(ctx, id, model.CurrencyBananas, amount, txType)
}

// CreditSuperNanners implements game.Economy.
func (s *AccountService) CreditSuperNanners(ctx context.Context, id, amount int64) error {
	return s.credit(ctx, id, model.CurrencySuperNanners, amount, model.TxTypeBattleReward)
}

// SpendSuperNanners takes super nanners for a purchase.
func (s *AccountService) SpendSuperNanners(ctx context.Context, id, amount int64, txType string) error {
	return s.debit(ctx, id, model.CurrencySuperNanners, amount, txType)
}

// SetBalance overrides a user's bananas. Admin only.
func (s *AccountService) SetBalance(ctx context.Context, id, bananas int64) (*model.User, error) {
	if bananas < 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.GetUser(ctx, id); err != nil {
		return nil, err
	}
	user, err := s.users.SetBalance(ctx, id, bananas)
	if err != nil {
		return nil, fmt.Errorf("failed to set balance: %w", err)
	}
	log.Info().Int64("user_id", id).Int64("bananas", bananas).Msg("Balance set by admin")
	return user, nil
}

func (s *AccountService) credit(ctx context.Context, id int64, currency string, amount int64, txType string) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	return s.apply(ctx, id, currency, amount, txType)
}

func (s *AccountService) debit(ctx context.Context, id int64, currency string, amount int64, txType string) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	return s.apply(ctx, id, currency, -amount, txType)
}

func (s *AccountService) apply(ctx context.Context, id int64, currency string, delta int64, txType string) error {
	if delta == 0 {
		return nil
	}

	_, err := s.users.Apply(ctx, id, currency, delta, txType, nil)
	if errors.Is(err, repository.ErrUserNotFound) {
		if _, err = s.GetUser(ctx, id); err != nil {
			return err
		}
		_, err = s.users.Apply(ctx, id, currency, delta, txType, nil)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrInsufficientBalance):
		return game.ErrInsufficientFunds
	default:
		return fmt.Errorf("failed to apply %s %+d for user %d: %w", currency, delta, id, err)
	}
}

var _ game.Economy = (*AccountService)(nil)
