package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"banana-bot/internal/game"
)

// Expired describes a session the reaper closed.
type Expired struct {
	Info
	Result *game.Result // nil when the variant has nothing to settle
}

// Reap expires every session idle for longer than the idle timeout as of
// now. Variants implementing game.Expirer settle their stakes first.
func (m *Manager) Reap(ctx context.Context, now time.Time) []Expired {
	if m.idle <= 0 {
		return nil
	}

	m.mu.Lock()
	var stale []int
	for code, rec := range m.sessions {
		if rec.variant != nil && now.Sub(rec.lastActive) > m.idle {
			stale = append(stale, code)
		}
	}
	m.mu.Unlock()

	var out []Expired
	for _, code := range stale {
		rec, err := m.acquire(code)
		if err != nil {
			continue
		}
		m.mu.Lock()
		idle := now.Sub(rec.lastActive) > m.idle
		info := rec.info()
		m.mu.Unlock()
		if !idle {
			rec.mu.Unlock()
			continue
		}

		exp := Expired{Info: info}
		if e, ok := rec.variant.(game.Expirer); ok {
			res, err := e.Expire(ctx)
			if err != nil {
				// Keep the session so the stakes can still be settled by a
				// later pass or by the players.
				log.Error().Err(err).Int("code", code).Str("variant", string(info.Kind)).Msg("Failed to expire session")
				rec.mu.Unlock()
				continue
			}
			exp.Result = res
		}
		m.terminate(rec, ReasonExpired)
		rec.mu.Unlock()
		out = append(out, exp)
	}
	return out
}

// RunReaper calls Reap every interval until ctx is done, handing each
// expired session to notify.
func (m *Manager) RunReaper(ctx context.Context, interval time.Duration, notify func(Expired)) {
	if m.idle <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, exp := range m.Reap(ctx, m.now()) {
				if notify != nil {
					notify(exp)
				}
			}
		}
	}
}
