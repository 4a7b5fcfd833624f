// Package battle implements the single-player creature fights: the mine
// battle against a creature met while mining, and the sludge monster battle.
package battle

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
)

// PlayerHealth is the health every battle starts with.
const PlayerHealth = 100

// penalize takes up to cost bananas from the player, never more than the
// balance. It returns what was actually taken.
func penalize(ctx context.Context, econ game.Economy, player, cost int64) (int64, error) {
	for attempt := 0; attempt < 2; attempt++ {
		balance, err := econ.Balance(ctx, player)
		if err != nil {
			return 0, fmt.Errorf("failed to read balance: %w", err)
		}
		taken := min(cost, balance)
		if taken <= 0 {
			return 0, nil
		}
		err = econ.Debit(ctx, player, taken, model.TxTypeBattlePenalty)
		if err == nil {
			return taken, nil
		}
		// the balance moved between the read and the debit
		if !errors.Is(err, game.ErrInsufficientFunds) {
			return 0, fmt.Errorf("failed to apply defeat penalty: %w", err)
		}
	}
	return 0, nil
}

// hit lowers health by damage, stopping at zero.
func hit(health, damage int) int {
	return max(health-damage, 0)
}

// fled reports whether a run attempt succeeds: 1 in health chances.
func fled(rng game.RNG, health int) bool {
	return rng.IntN(max(health, 1)) == 0
}

func defeat(title, description, thumbnail string, lost int64) *game.Result {
	res := &game.Result{
		Title:       title,
		Description: description,
		Thumbnail:   thumbnail,
		Terminated:  true,
	}
	res.AddField("Lost Bananas:", strconv.FormatInt(lost, 10)+"🍌", false)
	return res
}

func logOutcome(kind game.Kind, player int64, outcome string, amount int64) {
	log.Info().
		Str("variant", string(kind)).
		Int64("user_id", player).
		Str("outcome", outcome).
		Int64("amount", amount).
		Msg("Battle finished")
}
