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

// TransferService handles user-to-user payments.
type TransferService struct {
	accounts *AccountService
	users    UserStore
}

// NewTransferService creates a new TransferService instance.
func NewTransferService(accounts *AccountService, users UserStore) *TransferService {
	return &TransferService{accounts: accounts, users: users}
}

// Pay moves amount bananas from one user to another. Both balances and
// both ledger rows change together or not at all.
func (s *TransferService) Pay(ctx context.Context, fromID, toID, amount int64) (*model.User, *model.User, error) {
	if amount <= 0 {
		return nil, nil, game.Invalid("You must pay a positive number of bananas!")
	}
	if fromID == toID {
		return nil, nil, game.Violation("You can't pay yourself!")
	}

	if _, err := s.accounts.GetUser(ctx, fromID); err != nil {
		return nil, nil, err
	}
	if _, err := s.accounts.GetUser(ctx, toID); err != nil {
		return nil, nil, err
	}

	from, to, err := s.users.Transfer(ctx, fromID, toID, amount)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, nil, game.Broke("You too poor!")
		}
		return nil, nil, fmt.Errorf("failed to transfer: %w", err)
	}

	log.Info().
		Int64("from", fromID).
		Int64("to", toID).
		Int64("amount", amount).
		Msg("Transfer completed")
	return from, to, nil
}
