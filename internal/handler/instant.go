package handler

import (
	"context"
	"fmt"

	"banana-bot/internal/service"
)

// InstantHandler exposes every game in the registry as a command.
type InstantHandler struct {
	accounts *service.AccountService
	games    *service.GameService
}

// NewInstantHandler creates a new InstantHandler.
func NewInstantHandler(accounts *service.AccountService, games *service.GameService) *InstantHandler {
	return &InstantHandler{accounts: accounts, games: games}
}

// Register adds one command per registered instant game.
func (h *InstantHandler) Register(r *Router) {
	for _, cmd := range h.games.Commands() {
		g, _ := h.games.Lookup(cmd)
		help := "<bet> - " + g.Description()
		if a, ok := g.(service.AllInGame); ok && a.AllIn() {
			help = "- " + g.Description()
		}
		r.Handle(cmd, help, h.play(cmd))
	}
}

func (h *InstantHandler) play(cmd string) HandlerFunc {
	return func(ctx context.Context, req *Request) (*Reply, error) {
		g, _ := h.games.Lookup(cmd)
		var bet int64
		if a, ok := g.(service.AllInGame); !ok || !a.AllIn() {
			balance, err := h.accounts.Balance(ctx, req.UserID)
			if err != nil {
				return nil, err
			}
			if bet, err = ParseAmount(req.Arg(0), balance); err != nil {
				return nil, err
			}
		}

		play, err := h.games.Play(ctx, req.UserID, cmd, bet)
		if err != nil {
			return nil, err
		}
		return text(formatInstant(play)), nil
	}
}

func formatInstant(p *service.InstantPlay) string {
	outcome := "broke even"
	switch {
	case p.Result.Payout > 0:
		outcome = fmt.Sprintf("won %d bananas", p.Result.Payout)
	case p.Result.Payout < 0:
		outcome = fmt.Sprintf("lost %d bananas", -p.Result.Payout)
	}
	return fmt.Sprintf("🎰 %s\n%s\nYou %s! Balance: %d 🍌", p.Game.Name(), p.Result.Description, outcome, p.Balance)
}
