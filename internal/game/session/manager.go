// Package session owns the live game sessions: which code runs which
// variant, and which user sits in which session.
//
// Two locks guard the registry. The manager's mutex protects the code and
// membership maps; each record's mutex gives one goroutine exclusive use of
// the variant for a whole HandleInput, Join or End. A goroutine that needs
// both takes the record's lock first, so a slow variant never blocks
// lookups on other sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"banana-bot/internal/game"
	"banana-bot/internal/game/holdem"
	"banana-bot/internal/game/pvp"
)

// DefaultCodeSpace bounds session codes to [0, DefaultCodeSpace).
const DefaultCodeSpace = 100000

var (
	// ErrCodeSpaceExhausted is returned when every code is taken.
	ErrCodeSpaceExhausted = errors.New("no free session code")
)

// Observer receives lifecycle events, typically for metrics.
type Observer interface {
	SessionStarted(kind game.Kind)
	SessionEnded(kind game.Kind, reason string)
	ActiveSessions(n int)
}

// End reasons passed to Observer.SessionEnded.
const (
	ReasonFinished = "finished"
	ReasonEnded    = "ended"
	ReasonExpired  = "expired"
)

type nopObserver struct{}

func (nopObserver) SessionStarted(game.Kind)       {}
func (nopObserver) SessionEnded(game.Kind, string) {}
func (nopObserver) ActiveSessions(int)             {}

// Options configures a Manager.
type Options struct {
	CodeSpace   int
	IdleTimeout time.Duration // 0 disables reaping
	RNG         game.RNG
	Now         func() time.Time
	Observer    Observer
}

// Info is a snapshot of a session.
type Info struct {
	Code         int
	Host         int64
	Participants []int64
	Kind         game.Kind
	CreatedAt    time.Time
	LastActive   time.Time
}

// Record is one live session.
type Record struct {
	mu sync.Mutex // held while the variant is in use

	// Guarded by the manager's mutex; written with mu held too.
	code         int
	host         int64
	participants []int64
	variant      game.Variant
	createdAt    time.Time
	lastActive   time.Time
	ended        bool
}

func (r *Record) info() Info {
	info := Info{
		Code:         r.code,
		Host:         r.host,
		Participants: slices.Clone(r.participants),
		CreatedAt:    r.createdAt,
		LastActive:   r.lastActive,
	}
	if r.variant != nil {
		info.Kind = r.variant.Kind()
	}
	return info
}

func (r *Record) kind() game.Kind {
	if r.variant == nil {
		return ""
	}
	return r.variant.Kind()
}

// Manager is the session registry.
type Manager struct {
	mu       sync.Mutex
	sessions map[int]*Record
	users    map[int64]int

	codeSpace int
	idle      time.Duration
	rng       game.RNG // guarded by mu
	now       func() time.Time
	obs       Observer
}

// NewManager creates an empty registry.
func NewManager(opts Options) *Manager {
	if opts.CodeSpace <= 0 {
		opts.CodeSpace = DefaultCodeSpace
	}
	if opts.RNG == nil {
		opts.RNG = game.NewRand()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &Manager{
		sessions:  make(map[int]*Record),
		users:     make(map[int64]int),
		codeSpace: opts.CodeSpace,
		idle:      opts.IdleTimeout,
		rng:       opts.RNG,
		now:       opts.Now,
		obs:       opts.Observer,
	}
}

// newCode draws a free code, re-rolling on collision. Must hold m.mu.
func (m *Manager) newCode() (int, error) {
	if len(m.sessions) >= m.codeSpace {
		return 0, ErrCodeSpaceExhausted
	}
	for range m.codeSpace {
		code := m.rng.IntN(m.codeSpace)
		if _, taken := m.sessions[code]; !taken {
			return code, nil
		}
	}
	// A crowded space can keep colliding; walk from a random start instead.
	start := m.rng.IntN(m.codeSpace)
	for i := range m.codeSpace {
		code := (start + i) % m.codeSpace
		if _, taken := m.sessions[code]; !taken {
			return code, nil
		}
	}
	return 0, ErrCodeSpaceExhausted
}

// publish stores a record for host and members. Must hold m.mu.
func (m *Manager) publish(host int64, members []int64, v game.Variant) (*Record, error) {
	for _, u := range append([]int64{host}, members...) {
		if _, busy := m.users[u]; busy {
			return nil, game.ErrAlreadyInSession
		}
	}
	code, err := m.newCode()
	if err != nil {
		return nil, err
	}
	now := m.now()
	rec := &Record{
		code:         code,
		host:         host,
		participants: members,
		variant:      v,
		createdAt:    now,
		lastActive:   now,
	}
	m.sessions[code] = rec
	m.users[host] = code
	for _, u := range members {
		m.users[u] = code
	}
	return rec, nil
}

// Insert stores a ready variant hosted by host. The participants default
// to the host alone.
func (m *Manager) Insert(host int64, v game.Variant, participants ...int64) (int, error) {
	if len(participants) == 0 {
		participants = []int64{host}
	}
	m.mu.Lock()
	rec, err := m.publish(host, slices.Clone(participants), v)
	n := len(m.sessions)
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	m.started(rec.code, host, v.Kind(), n)
	return rec.code, nil
}

// Create reserves a code and the host's membership, then builds the
// variant. Building usually escrows the host's stake, so it runs only once
// the host is known to be free; a failed build releases the reservation.
func (m *Manager) Create(ctx context.Context, host int64, build func(ctx context.Context) (game.Variant, error)) (int, error) {
	m.mu.Lock()
	rec, err := m.publish(host, []int64{host}, nil)
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	// Nobody can have seen the record yet, so this never blocks.
	rec.mu.Lock()
	m.mu.Unlock()
	defer rec.mu.Unlock()

	v, err := build(ctx)
	if err == nil && v == nil {
		err = fmt.Errorf("session builder returned no variant")
	}
	if err != nil {
		m.mu.Lock()
		m.drop(rec)
		m.mu.Unlock()
		return 0, err
	}

	m.mu.Lock()
	rec.variant = v
	n := len(m.sessions)
	m.mu.Unlock()
	m.started(rec.code, host, v.Kind(), n)
	return rec.code, nil
}

func (m *Manager) started(code int, host int64, kind game.Kind, n int) {
	m.obs.SessionStarted(kind)
	m.obs.ActiveSessions(n)
	log.Info().Int("code", code).Int64("host", host).Str("variant", string(kind)).Msg("Session created")
}

// drop removes a record and frees its members. Must hold m.mu and rec.mu.
func (m *Manager) drop(rec *Record) {
	rec.ended = true
	delete(m.sessions, rec.code)
	for u, c := range m.users {
		if c == rec.code {
			delete(m.users, u)
		}
	}
}

// terminate drops a record and reports it. Must hold rec.mu, not m.mu.
func (m *Manager) terminate(rec *Record, reason string) {
	m.mu.Lock()
	kind := rec.kind()
	m.drop(rec)
	n := len(m.sessions)
	m.mu.Unlock()

	m.obs.SessionEnded(kind, reason)
	m.obs.ActiveSessions(n)
	log.Info().Int("code", rec.code).Str("variant", string(kind)).Str("reason", reason).Msg("Session terminated")
}

// acquire returns the record for code with its lock held.
func (m *Manager) acquire(code int) (*Record, error) {
	m.mu.Lock()
	rec, ok := m.sessions[code]
	m.mu.Unlock()
	if !ok {
		return nil, game.ErrSessionNotFound
	}
	rec.mu.Lock()
	if rec.ended {
		rec.mu.Unlock()
		return nil, game.ErrSessionNotFound
	}
	return rec, nil
}

// Get returns a snapshot of the session.
func (m *Manager) Get(code int) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[code]
	if !ok {
		return Info{}, game.ErrSessionNotFound
	}
	return rec.info(), nil
}

// End removes the session without settling anything. Variants that hold
// stakes settle them through their own commands or Expire.
func (m *Manager) End(code int) error {
	rec, err := m.acquire(code)
	if err != nil {
		return err
	}
	defer rec.mu.Unlock()
	m.terminate(rec, ReasonEnded)
	return nil
}

// CodeExists reports whether a live session uses code.
func (m *Manager) CodeExists(code int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[code]
	return ok
}

// FindSessionForUser returns the session the user plays in or hosts.
func (m *Manager) FindSessionForUser(user int64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.users[user]
	if ok {
		return code, true
	}
	// The index covers hosts too; this only matters for records whose
	// host was never listed as a participant.
	for code, rec := range m.sessions {
		if rec.host == user && !rec.ended {
			return code, true
		}
	}
	return 0, false
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// joinable reports whether the variant accepts new members right now.
// Only Hold'em tables and PvP lobbies do.
func joinable(v game.Variant) bool {
	switch v := v.(type) {
	case *holdem.Table:
		return v.CanJoin()
	case *pvp.Arena:
		return v.CanJoin()
	default:
		return false
	}
}

// CanJoin reports whether the session accepts new members.
func (m *Manager) CanJoin(code int) (bool, error) {
	rec, err := m.acquire(code)
	if err != nil {
		return false, err
	}
	defer rec.mu.Unlock()
	return joinable(rec.variant), nil
}

// AddParticipant makes user a member of a joinable session. Members are
// always seated through the variant's own join, which escrows their stake,
// so this is Join under the registry's name for it.
func (m *Manager) AddParticipant(ctx context.Context, code int, user int64) error {
	return m.Join(ctx, code, user)
}

type joiner interface {
	Join(ctx context.Context, user int64) error
}

// Join seats user in the session's variant, which escrows their stake.
// The membership check, the capacity check and the seating happen as one
// step: the user is reserved before the variant is asked, so no concurrent
// Join or Create can place them elsewhere.
func (m *Manager) Join(ctx context.Context, code int, user int64) error {
	rec, err := m.acquire(code)
	if err != nil {
		return err
	}
	defer rec.mu.Unlock()

	j, ok := rec.variant.(joiner)
	if !ok || !joinable(rec.variant) {
		return game.ErrCapacityExceeded
	}

	m.mu.Lock()
	if _, busy := m.users[user]; busy {
		m.mu.Unlock()
		return game.ErrAlreadyInSession
	}
	m.users[user] = code
	m.mu.Unlock()

	if err := j.Join(ctx, user); err != nil {
		m.mu.Lock()
		delete(m.users, user)
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	rec.participants = append(rec.participants, user)
	rec.lastActive = m.now()
	m.mu.Unlock()
	log.Info().Int("code", code).Int64("user_id", user).Str("variant", string(rec.variant.Kind())).Msg("User joined session")
	return nil
}

type hosted interface {
	Host() int64
}

// HandleInput routes one chat message to the sender's session.
// ErrNotInSession means the sender has no session, including one that
// ended while this call waited for it.
func (m *Manager) HandleInput(ctx context.Context, in game.Input) (*game.Result, error) {
	code, ok := m.FindSessionForUser(in.UserID)
	if !ok {
		return nil, game.ErrNotInSession
	}
	rec, err := m.acquire(code)
	if err != nil {
		return nil, game.ErrNotInSession
	}
	defer rec.mu.Unlock()

	m.mu.Lock()
	c, indexed := m.users[in.UserID]
	member := (indexed && c == code) || rec.host == in.UserID
	m.mu.Unlock()
	if !member || rec.variant == nil {
		return nil, game.ErrNotInSession
	}

	res, err := rec.variant.HandleInput(ctx, in)
	if err != nil {
		if game.IsRecoverable(err) {
			log.Debug().Int("code", code).Int64("user_id", in.UserID).Str("input", in.Text).Err(err).Msg("Input rejected")
		}
		return nil, err
	}

	if res.Terminated {
		m.terminate(rec, ReasonFinished)
		return res, nil
	}

	m.mu.Lock()
	rec.lastActive = m.now()
	for _, u := range res.Removed {
		if c, ok := m.users[u]; ok && c == code {
			delete(m.users, u)
		}
		rec.participants = slices.DeleteFunc(rec.participants, func(p int64) bool { return p == u })
	}
	if h, ok := rec.variant.(hosted); ok {
		rec.host = h.Host()
	} else if slices.Contains(res.Removed, rec.host) && len(rec.participants) > 0 {
		rec.host = rec.participants[0]
	}
	m.mu.Unlock()
	return res, nil
}

// Members returns the users seated in the session, host included.
func (m *Manager) Members(code int) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for u, c := range m.users {
		if c == code {
			out = append(out, u)
		}
	}
	slices.Sort(out)
	return out
}
