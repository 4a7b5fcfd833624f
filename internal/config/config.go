// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Economy   EconomyConfig   `mapstructure:"economy"`
	Session   SessionConfig   `mapstructure:"session"`
	Games     GamesConfig     `mapstructure:"games"`
	Mining    MiningConfig    `mapstructure:"mining"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	Namespace string `mapstructure:"namespace"`
}

// EconomyConfig holds the starting balance and inventory size for new users.
type EconomyConfig struct {
	StartingBananas   int64 `mapstructure:"starting_bananas"`
	InventoryCapacity int   `mapstructure:"inventory_capacity"`
}

// SessionConfig tunes the session registry. A zero idle timeout disables
// the reaper.
type SessionConfig struct {
	CodeSpace      int           `mapstructure:"code_space"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	ReaperInterval time.Duration `mapstructure:"reaper_interval"`
}

// GamesConfig holds game-specific configuration.
type GamesConfig struct {
	BlackJack BlackJackConfig `mapstructure:"blackjack"`
	PvP       PvPConfig       `mapstructure:"pvp"`
	Sludge    SludgeConfig    `mapstructure:"sludge"`
	Holdem    HoldemConfig    `mapstructure:"holdem"`
	Slots     SlotsConfig     `mapstructure:"slots"`
}

type BlackJackConfig struct {
	MinBet int64 `mapstructure:"min_bet"`
	Decks  int   `mapstructure:"decks"`
}

// PvPConfig holds the arena defaults. Per-session flags override them.
type PvPConfig struct {
	MaxPlayers int  `mapstructure:"max_players"`
	BaseHealth int  `mapstructure:"base_health"`
	MaxHealth  int  `mapstructure:"max_health"`
	DamageMin  int  `mapstructure:"damage_min"`
	DamageMax  int  `mapstructure:"damage_max"`
	Items      bool `mapstructure:"items"`
}

// SludgeConfig holds the boss health roll, in hundreds.
type SludgeConfig struct {
	BossHealthMin int `mapstructure:"boss_health_min"`
	BossHealthMax int `mapstructure:"boss_health_max"`
}

type HoldemConfig struct {
	MaxPlayers int   `mapstructure:"max_players"`
	MinBuyIn   int64 `mapstructure:"min_buy_in"`
}

// SlotsConfig holds slot machine configuration.
type SlotsConfig struct {
	MinBet          int64   `mapstructure:"min_bet"`
	WinChance       float64 `mapstructure:"win_chance"`
	CooldownSeconds int     `mapstructure:"cooldown_seconds"`
}

// MiningConfig holds mining trip configuration. Tiers are read from
// <tiers_dir>/<n>.json when the directory exists.
type MiningConfig struct {
	Duration        time.Duration `mapstructure:"duration"`
	TiersDir        string        `mapstructure:"tiers_dir"`
	EncounterChance float64       `mapstructure:"encounter_chance"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_HOST, SESSION_IDLE_TIMEOUT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional, env vars can provide everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.poll_timeout", "10s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bananabot")
	v.SetDefault("database.name", "bananabot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("metrics.namespace", "bananabot")

	v.SetDefault("economy.starting_bananas", 100)
	v.SetDefault("economy.inventory_capacity", 10)

	v.SetDefault("session.code_space", 100000)
	v.SetDefault("session.idle_timeout", "10m")
	v.SetDefault("session.reaper_interval", "30s")

	// Game defaults
	v.SetDefault("games.blackjack.min_bet", 5)
	v.SetDefault("games.blackjack.decks", 6)
	v.SetDefault("games.pvp.max_players", 2)
	v.SetDefault("games.pvp.base_health", 100)
	v.SetDefault("games.pvp.max_health", 100)
	v.SetDefault("games.pvp.damage_min", 0)
	v.SetDefault("games.pvp.damage_max", 10)
	v.SetDefault("games.pvp.items", true)
	v.SetDefault("games.sludge.boss_health_min", 1)
	v.SetDefault("games.sludge.boss_health_max", 5)
	v.SetDefault("games.holdem.max_players", 10)
	v.SetDefault("games.holdem.min_buy_in", 100)
	v.SetDefault("games.slots.min_bet", 100)
	v.SetDefault("games.slots.win_chance", 0.2)
	v.SetDefault("games.slots.cooldown_seconds", 5)

	v.SetDefault("mining.duration", "1h")
	v.SetDefault("mining.tiers_dir", "./config/tiers")
	v.SetDefault("mining.encounter_chance", 0.25)
}

func (c *Config) validate() error {
	switch {
	case c.Session.CodeSpace <= 0:
		return fmt.Errorf("invalid config: session.code_space must be positive, got %d", c.Session.CodeSpace)
	case c.Economy.InventoryCapacity <= 0:
		return fmt.Errorf("invalid config: economy.inventory_capacity must be positive, got %d", c.Economy.InventoryCapacity)
	case c.Games.PvP.DamageMin > c.Games.PvP.DamageMax:
		return fmt.Errorf("invalid config: games.pvp damage range %d..%d", c.Games.PvP.DamageMin, c.Games.PvP.DamageMax)
	case c.Games.Slots.WinChance < 0 || c.Games.Slots.WinChance > 1:
		return fmt.Errorf("invalid config: games.slots.win_chance must be within [0, 1], got %v", c.Games.Slots.WinChance)
	case c.Mining.EncounterChance < 0 || c.Mining.EncounterChance > 1:
		return fmt.Errorf("invalid config: mining.encounter_chance must be within [0, 1], got %v", c.Mining.EncounterChance)
	}
	return nil
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Admin.IDs, userID)
}

// IsChatAllowed checks if a chat ID is in the whitelist.
// An empty whitelist allows every chat.
func (c *Config) IsChatAllowed(chatID int64) bool {
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	return slices.Contains(c.Whitelist.Chats, chatID)
}
