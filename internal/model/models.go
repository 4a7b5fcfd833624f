// Package model defines the data models for the banana bot.
package model

import "time"

// User represents a chat user's wallet and progression record.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Bananas      int64     `db:"bananas"`
	SuperNanners int64     `db:"super_nanners"`
	Level        int       `db:"level"`
	Prestige     int       `db:"prestige"`
	Ascension    int       `db:"ascension"`
	EquippedItem *int64    `db:"equipped_item_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Transaction represents a balance change record.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Amount      int64     `db:"amount"`
	Currency    string    `db:"currency"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// LeaderboardEntry is one row of the leaderboard, ranked by ascension,
// then prestige, then level.
type LeaderboardEntry struct {
	UserID    int64  `db:"id"`
	Username  string `db:"username"`
	Bananas   int64  `db:"bananas"`
	Level     int    `db:"level"`
	Prestige  int    `db:"prestige"`
	Ascension int    `db:"ascension"`
}

// DailyRank is a user's net game result for one day.
type DailyRank struct {
	UserID    int64  `db:"user_id"`
	Username  string `db:"username"`
	NetProfit int64  `db:"net_profit"`
}

// Currencies tracked in the transactions ledger.
const (
	CurrencyBananas      = "bananas"
	CurrencySuperNanners = "super_nanners"
)

// Transaction types for categorizing balance changes.
const (
	TxTypeInitial       = "initial"         // Starting balance on account creation
	TxTypeTransfer      = "transfer"        // User-to-user payment
	TxTypeBlackjackBet  = "blackjack_bet"   // Blackjack stake, split, double or insurance
	TxTypeBlackjackWin  = "blackjack_win"   // Blackjack payout or refund
	TxTypePvPStake      = "pvp_stake"       // PvP arena stake escrow
	TxTypePvPRefund     = "pvp_refund"      // PvP arena cancel/kick refund
	TxTypePvPWin        = "pvp_win"         // PvP pot or surrender share
	TxTypeHoldemBuyIn   = "holdem_buyin"    // Texas Hold'em buy-in escrow
	TxTypeHoldemCashout = "holdem_cashout"  // Texas Hold'em chips returned
	TxTypeBattleReward  = "battle_reward"   // Monster battle reward
	TxTypeBattlePenalty = "battle_penalty"  // Monster battle defeat penalty
	TxTypeMining        = "mining"          // Mining job payout
	TxTypeMinions       = "minions"         // Minion sludge collection
	TxTypeSlots         = "slots"           // Slots result
	TxTypeFiftyFifty    = "fiftyfifty"      // 50/50 result
	TxTypeLevelUp       = "levelup"         // Level purchase
	TxTypeAscension     = "ascension"       // Ascension purchase
	TxTypeShopPurchase  = "shop_purchase"   // Shop item purchase
	TxTypeAdminAdjust   = "admin_adjust"    // Admin balance change
)

// GameTransactionTypes returns the transaction types produced by games.
func GameTransactionTypes() []string {
	return []string{
		TxTypeBlackjackBet, TxTypeBlackjackWin,
		TxTypePvPStake, TxTypePvPRefund, TxTypePvPWin,
		TxTypeHoldemBuyIn, TxTypeHoldemCashout,
		TxTypeBattleReward, TxTypeBattlePenalty,
		TxTypeSlots, TxTypeFiftyFifty,
	}
}
