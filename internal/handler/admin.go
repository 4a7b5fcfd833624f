package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"banana-bot/internal/game"
	"banana-bot/internal/service"
)

// AdminHandler handles admin-only commands.
type AdminHandler struct {
	accounts *service.AccountService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accounts *service.AccountService) *AdminHandler {
	return &AdminHandler{accounts: accounts}
}

// Register adds the admin commands to r.
func (h *AdminHandler) Register(r *Router) {
	r.HandleAdmin("setbalance", "@user <amount>", h.HandleSetBalance)
	r.HandleAdmin("givenanners", "@user <amount>", h.HandleGiveNanners)
}

// HandleSetBalance overwrites a user's banana balance.
func (h *AdminHandler) HandleSetBalance(ctx context.Context, req *Request) (*Reply, error) {
	target, amount, err := targetAndNumber(req)
	if err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, game.Invalid("Balance can't be negative!")
	}
	user, err := h.accounts.SetBalance(ctx, target, amount)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("admin_id", req.UserID).Int64("user_id", target).Int64("bananas", amount).Msg("Admin set balance")
	return text(fmt.Sprintf("✅ %s now has %d bananas.", game.Mention(target), user.Bananas)), nil
}

// HandleGiveNanners grants super nanners.
func (h *AdminHandler) HandleGiveNanners(ctx context.Context, req *Request) (*Reply, error) {
	target, amount, err := targetAndNumber(req)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, game.Invalid("Amount must be positive!")
	}
	if err := h.accounts.CreditSuperNanners(ctx, target, amount); err != nil {
		return nil, err
	}
	log.Info().Int64("admin_id", req.UserID).Int64("user_id", target).Int64("super_nanners", amount).Msg("Admin granted super nanners")
	return text(fmt.Sprintf("✅ Gave %s %d super nanners.", game.Mention(target), amount)), nil
}

// targetAndNumber reads "@user <n>" with the number as the last argument.
func targetAndNumber(req *Request) (int64, int64, error) {
	target, ok := req.Target()
	if !ok || len(req.Args) == 0 {
		return 0, 0, game.Invalid("Usage: @user <amount>")
	}
	n, err := strconv.ParseInt(req.Args[len(req.Args)-1], 10, 64)
	if err != nil {
		return 0, 0, game.Invalid("Usage: @user <amount>")
	}
	return target, n, nil
}
