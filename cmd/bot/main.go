// Package main is the entry point for the banana bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"banana-bot/internal/bot"
	"banana-bot/internal/config"
	"banana-bot/internal/game"
	"banana-bot/internal/game/allin"
	"banana-bot/internal/game/battle"
	"banana-bot/internal/game/session"
	"banana-bot/internal/game/slot"
	"banana-bot/internal/handler"
	"banana-bot/internal/metrics"
	"banana-bot/internal/pkg/db"
	"banana-bot/internal/pkg/lock"
	"banana-bot/internal/pkg/timer"
	"banana-bot/internal/repository"
	"banana-bot/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	configureLogging(cfg.Log)
	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	inventoryRepo := repository.NewInventoryRepository(dbPool.Pool)

	// Metrics
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(cfg.Metrics.Namespace, registry)
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, registry); err != nil {
				log.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	// Services
	userLock := lock.NewUserLock()
	accountService := service.NewAccountService(userRepo, cfg.Economy.StartingBananas)
	inventoryService := service.NewInventoryService(inventoryRepo, userRepo, cfg.Economy.InventoryCapacity)
	progressionService := service.NewProgressionService(accountService, userRepo)
	transferService := service.NewTransferService(accountService, userRepo)
	rankingService := service.NewRankingService(userRepo, txRepo, time.Local)
	shopService := service.NewShopService(accountService, inventoryService, userLock)

	gameRegistry := game.NewRegistry()
	for _, g := range []game.Game{
		slot.New(&slot.Config{
			MinBet:    cfg.Games.Slots.MinBet,
			WinChance: cfg.Games.Slots.WinChance,
			Cooldown:  cfg.Games.Slots.CooldownSeconds,
		}),
		allin.New(nil),
	} {
		if err := gameRegistry.Register(g); err != nil {
			log.Fatal().Err(err).Str("game", g.Command()).Msg("Failed to register game")
		}
	}
	log.Info().
		Int("game_count", gameRegistry.Count()).
		Strs("games", gameRegistry.Commands()).
		Msg("Games registered")
	gameService := service.NewGameService(gameRegistry, accountService, userLock, m)

	sessions := session.NewManager(session.Options{
		CodeSpace:   cfg.Session.CodeSpace,
		IdleTimeout: cfg.Session.IdleTimeout,
		Observer:    m,
	})

	tiers, err := battle.LoadTiers(cfg.Mining.TiersDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Mining.TiersDir).Msg("Failed to load mine tiers")
	}
	log.Info().Ints("tiers", tiers.Numbers()).Msg("Mine tiers loaded")

	// The bot is built last; notifications only fire once it is running.
	var telegramBot *bot.Bot
	scheduler := timer.NewScheduler()
	miningService := service.NewMiningService(scheduler, sessions, accountService, inventoryService, tiers, service.MiningOptions{
		Duration:        cfg.Mining.Duration,
		EncounterChance: cfg.Mining.EncounterChance,
		Recorder:        m,
		Notify: func(ctx context.Context, out service.MiningOutcome) {
			telegramBot.NotifyMining(ctx, out)
		},
	})

	// Handlers
	dispatcher := handler.NewDispatcher(sessions, handler.TextRenderer{}, m)
	router := handler.NewRouter(cfg.IsAdmin)
	shopHandler := handler.NewShopHandler(accountService, inventoryService, shopService)
	handler.NewAccountHandler(accountService, progressionService, rankingService).Register(router)
	handler.NewAdminHandler(accountService).Register(router)
	handler.NewTransferHandler(accountService, transferService).Register(router)
	handler.NewRankingHandler(rankingService).Register(router)
	handler.NewInstantHandler(accountService, gameService).Register(router)
	handler.NewGameHandler(cfg.Games, dispatcher, accountService, inventoryService, miningService).Register(router)
	shopHandler.Register(router)

	telegramBot, err = bot.New(&bot.Dependencies{
		Config:     cfg,
		Accounts:   accountService,
		Router:     router,
		Dispatcher: dispatcher,
		Shop:       shopHandler,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	go scheduler.Run(ctx)
	go sessions.RunReaper(ctx, cfg.Session.ReaperInterval, telegramBot.NotifyExpired)
	go telegramBot.Start(ctx)

	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	telegramBot.Stop()
	if n := scheduler.Pending(); n > 0 {
		log.Warn().Int("pending", n).Msg("Dropping unfinished mining trips")
	}
	log.Info().Msg("Bot stopped gracefully")
}

func configureLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		if cfg.Level != "" {
			log.Warn().Str("level", cfg.Level).Msg("Unknown log level, using info")
		}
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.Pretty {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

