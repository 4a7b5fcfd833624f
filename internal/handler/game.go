package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"banana-bot/internal/config"
	"banana-bot/internal/game"
	"banana-bot/internal/game/battle"
	"banana-bot/internal/game/blackjack"
	"banana-bot/internal/game/holdem"
	"banana-bot/internal/game/pvp"
	"banana-bot/internal/model"
	"banana-bot/internal/service"
)

// GameHandler starts session games and mining trips.
type GameHandler struct {
	cfg        config.GamesConfig
	dispatcher *Dispatcher
	accounts   *service.AccountService
	inventory  *service.InventoryService
	mining     *service.MiningService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(
	cfg config.GamesConfig,
	dispatcher *Dispatcher,
	accounts *service.AccountService,
	inventory *service.InventoryService,
	mining *service.MiningService,
) *GameHandler {
	return &GameHandler{
		cfg:        cfg,
		dispatcher: dispatcher,
		accounts:   accounts,
		inventory:  inventory,
		mining:     mining,
	}
}

// Register adds the session game commands to r.
func (h *GameHandler) Register(r *Router) {
	r.Handle("blackjack", "<bet> - play blackjack against George", h.HandleBlackjack)
	r.Handle("pvp", "<stake> [noitems players=N health=N maxhealth=N damage=A-B] - open an arena", h.HandlePvP)
	r.Handle("holdem", "<buy-in> - open a Texas Hold'em table", h.HandleHoldem)
	r.Handle("sludge", "- fight the sludge monster", h.HandleSludge)
	r.Handle("join", "<code> - join an open game", h.HandleJoin)
	r.Handle("game", "- show the game you are in", h.HandleGame)
	r.Handle("mine", "[tier|cancel|status] - go mining for sludge", h.HandleMine)
}

// HandleBlackjack handles "blackjack <bet>".
func (h *GameHandler) HandleBlackjack(ctx context.Context, req *Request) (*Reply, error) {
	bet, err := h.amount(ctx, req.UserID, req.Arg(0))
	if err != nil {
		return nil, err
	}
	return h.create(ctx, req.UserID, "🃏 Blackjack", func(ctx context.Context) (game.Variant, error) {
		return blackjack.New(ctx, h.accounts, req.UserID, bet, blackjack.Options{
			Decks:  h.cfg.BlackJack.Decks,
			MinBet: h.cfg.BlackJack.MinBet,
		})
	})
}

// HandlePvP handles "pvp <stake> [flags]". Flags override the configured
// arena defaults.
func (h *GameHandler) HandlePvP(ctx context.Context, req *Request) (*Reply, error) {
	if len(req.Args) == 0 {
		return nil, game.Invalid("Usage: pvp <stake> [noitems players=N health=N maxhealth=N damage=A-B]")
	}
	var stake int64
	if req.Args[0] != "0" {
		var err error
		if stake, err = h.amount(ctx, req.UserID, req.Args[0]); err != nil {
			return nil, err
		}
	}
	flags, err := pvp.ParseFlags(req.Args[1:])
	if err != nil {
		return nil, err
	}
	opts := mergeArenaOptions(h.cfg.PvP, flags)

	return h.create(ctx, req.UserID, "⚔️ PvP", func(ctx context.Context) (game.Variant, error) {
		return pvp.New(ctx, h.accounts, h.inventory, req.UserID, stake, opts)
	})
}

func mergeArenaOptions(cfg config.PvPConfig, flags pvp.Options) pvp.Options {
	opts := pvp.Options{
		NoItems:    !cfg.Items,
		MaxPlayers: cfg.MaxPlayers,
		BaseHealth: cfg.BaseHealth,
		MaxHealth:  cfg.MaxHealth,
	}
	if cfg.DamageMax > 0 {
		opts.Damage = model.R(cfg.DamageMin, cfg.DamageMax)
	}

	if flags.NoItems {
		opts.NoItems = true
	}
	if flags.MaxPlayers > 0 {
		opts.MaxPlayers = flags.MaxPlayers
	}
	if flags.BaseHealth > 0 {
		opts.BaseHealth = flags.BaseHealth
	}
	if flags.MaxHealth > 0 {
		opts.MaxHealth = flags.MaxHealth
	}
	if flags.Damage != (model.Range{}) {
		opts.Damage = flags.Damage
	}
	return opts
}

// HandleHoldem handles "holdem <buy-in>".
func (h *GameHandler) HandleHoldem(ctx context.Context, req *Request) (*Reply, error) {
	buyIn, err := h.amount(ctx, req.UserID, req.Arg(0))
	if err != nil {
		return nil, err
	}
	return h.create(ctx, req.UserID, "♠️ Hold'em", func(ctx context.Context) (game.Variant, error) {
		return holdem.New(ctx, h.accounts, req.UserID, buyIn, holdem.Options{
			MaxPlayers: h.cfg.Holdem.MaxPlayers,
			MinBuyIn:   h.cfg.Holdem.MinBuyIn,
		})
	})
}

// HandleSludge spawns a sludge monster for the sender.
func (h *GameHandler) HandleSludge(ctx context.Context, req *Request) (*Reply, error) {
	var opts battle.SludgeOptions
	if h.cfg.Sludge.BossHealthMax > 0 {
		opts.BossHealth = model.R(h.cfg.Sludge.BossHealthMin, h.cfg.Sludge.BossHealthMax)
	}
	return h.create(ctx, req.UserID, "🟢 Sludge", func(context.Context) (game.Variant, error) {
		return battle.NewSludgeBattle(h.accounts, h.inventory, req.UserID, opts), nil
	})
}

// HandleJoin handles "join <code>".
func (h *GameHandler) HandleJoin(ctx context.Context, req *Request) (*Reply, error) {
	code, err := strconv.Atoi(strings.TrimPrefix(req.Arg(0), "#"))
	if err != nil {
		return nil, game.Invalid("Usage: join <code>")
	}
	err = h.dispatcher.JoinSession(ctx, code, req.UserID)
	if errors.Is(err, game.ErrSessionNotFound) {
		return nil, game.Invalid("There is no game #%d!", code)
	}
	if err != nil {
		return nil, err
	}
	return text(fmt.Sprintf("✅ %s joined game #%d.", game.Mention(req.UserID), code)), nil
}

// HandleGame shows the sender's session.
func (h *GameHandler) HandleGame(_ context.Context, req *Request) (*Reply, error) {
	sessions := h.dispatcher.Sessions()
	code, ok := sessions.FindSessionForUser(req.UserID)
	if !ok {
		return nil, game.ErrNotInSession
	}
	info, err := sessions.Get(code)
	if err != nil {
		return nil, err
	}
	players := make([]string, len(info.Participants))
	for i, p := range info.Participants {
		players[i] = game.Mention(p)
	}
	return text(fmt.Sprintf("🎮 Game #%d (%s)\nHost: %s\nPlayers: %s\nIdle for %s",
		info.Code, info.Kind, game.Mention(info.Host), strings.Join(players, ", "),
		time.Since(info.LastActive).Round(time.Second))), nil
}

// HandleMine handles "mine [tier]", "mine cancel" and "mine status".
func (h *GameHandler) HandleMine(ctx context.Context, req *Request) (*Reply, error) {
	switch arg := strings.ToLower(req.Arg(0)); arg {
	case "cancel", "stop":
		if !h.mining.Cancel(req.UserID) {
			return nil, game.Violation("You aren't mining!")
		}
		return text("⛏️ You stopped mining. No sludge this time."), nil
	case "status":
		job, ok := h.mining.Job(req.UserID)
		if !ok {
			return text("You aren't mining. Use `mine` to start."), nil
		}
		left := time.Until(job.Finishes).Round(time.Second)
		return text(fmt.Sprintf("⛏️ Mining in tier %d, back in %s.", job.Tier, max(left, 0))), nil
	default:
		tier := -1
		if arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil {
				return nil, game.Invalid("Usage: mine [tier|cancel|status]")
			}
			tier = n
		}
		job, err := h.mining.Start(ctx, req.UserID, tier)
		if errors.Is(err, service.ErrAlreadyMining) {
			return nil, game.Violation("You are already mining! (`mine cancel` to stop)")
		}
		if err != nil {
			return nil, err
		}
		return text(fmt.Sprintf("⛏️ You went mining in tier %d. Back in %s.", job.Tier, job.Finishes.Sub(job.Started).Round(time.Second))), nil
	}
}

func (h *GameHandler) amount(ctx context.Context, userID int64, arg string) (int64, error) {
	balance, err := h.accounts.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	return ParseAmount(arg, balance)
}

func (h *GameHandler) create(ctx context.Context, host int64, title string, build func(ctx context.Context) (game.Variant, error)) (*Reply, error) {
	code, opening, err := h.dispatcher.CreateSession(ctx, host, build)
	if err != nil {
		return nil, err
	}
	header := fmt.Sprintf("%s game #%d", title, code)
	if opening == nil {
		return text(header), nil
	}
	opening.Text = header + "\n" + opening.Text
	return opening, nil
}
