package handler

import (
	"context"
	"fmt"

	"banana-bot/internal/game"
	"banana-bot/internal/service"
)

// TransferHandler handles payments between users.
type TransferHandler struct {
	accounts *service.AccountService
	transfer *service.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(accounts *service.AccountService, transfer *service.TransferService) *TransferHandler {
	return &TransferHandler{accounts: accounts, transfer: transfer}
}

// Register adds the pay command to r.
func (h *TransferHandler) Register(r *Router) {
	r.Handle("pay", "@user <amount> - send bananas", h.HandlePay)
}

// HandlePay handles "pay @user <amount>". The amount accepts the same
// shorthands as bets.
func (h *TransferHandler) HandlePay(ctx context.Context, req *Request) (*Reply, error) {
	to, ok := req.Target()
	if !ok || len(req.Args) < 2 {
		return nil, game.Invalid("Usage: pay @user <amount>")
	}
	balance, err := h.accounts.Balance(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	amount, err := ParseAmount(req.Args[len(req.Args)-1], balance)
	if err != nil {
		return nil, err
	}

	from, _, err := h.transfer.Pay(ctx, req.UserID, to, amount)
	if err != nil {
		return nil, err
	}
	return text(fmt.Sprintf("💸 Paid %s %d bananas. You have %d left.", game.Mention(to), amount, from.Bananas)), nil
}
