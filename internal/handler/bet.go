package handler

import (
	"math"
	"strconv"
	"strings"

	"banana-bot/internal/game"
)

// ParseAmount reads a banana amount: a plain number, all, half, or a
// number suffixed with k (thousands) or m (millions). Suffixed numbers may
// carry decimals; the result is truncated.
func ParseAmount(arg string, balance int64) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(arg))
	switch s {
	case "":
		return 0, game.Invalid("You need to say how many bananas!")
	case "all", "allin", "max":
		return positive(balance)
	case "half":
		return positive(balance / 2)
	}

	mult := 1.0
	switch {
	case strings.HasSuffix(s, "k"):
		mult, s = 1e3, strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		mult, s = 1e6, strings.TrimSuffix(s, "m")
	}
	s = strings.ReplaceAll(s, ",", "")

	if mult == 1 {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, game.Invalid("`%s` is not a valid amount!", arg)
		}
		return positive(n)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, game.Invalid("`%s` is not a valid amount!", arg)
	}
	f *= mult
	if f >= math.MaxInt64 {
		return 0, game.Invalid("`%s` is not a valid amount!", arg)
	}
	return positive(int64(f))
}

func positive(n int64) (int64, error) {
	if n <= 0 {
		return 0, game.Invalid("Amount must be positive!")
	}
	return n, nil
}
