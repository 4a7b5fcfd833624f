package service

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"banana-bot/internal/model"
	"banana-bot/internal/repository"
)

type ledgerRow struct {
	userID   int64
	amount   int64
	currency string
	txType   string
}

// memStore is an in-memory UserStore, ItemStore and LedgerStore with the
// same overdraw and capacity rules as the Postgres repositories.
type memStore struct {
	mu     sync.Mutex
	users  map[int64]*model.User
	items  map[int64][]model.Item
	nextID int64
	ledger []ledgerRow

	winners []model.DailyRank
	losers  []model.DailyRank
	day     time.Time // last date passed to a ledger query
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[int64]*model.User),
		items: make(map[int64][]model.Item),
	}
}

func (m *memStore) put(u model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.Level == 0 {
		u.Level = 1
	}
	if u.Prestige == 0 {
		u.Prestige = 1
	}
	m.users[u.ID] = &u
}

func (m *memStore) user(id int64) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func (m *memStore) rows(userID int64) []ledgerRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ledgerRow
	for _, r := range m.ledger {
		if r.userID == userID {
			out = append(out, r)
		}
	}
	return out
}

func (m *memStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetOrCreate(_ context.Context, id int64, username string, starting int64) (*model.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, false, nil
	}
	u := &model.User{ID: id, Username: username, Bananas: starting, Level: 1, Prestige: 1}
	m.users[id] = u
	if starting > 0 {
		m.ledger = append(m.ledger, ledgerRow{id, starting, model.CurrencyBananas, model.TxTypeInitial})
	}
	cp := *u
	return &cp, true, nil
}

func (m *memStore) UpdateUsername(_ context.Context, id int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Username = username
	}
	return nil
}

func (m *memStore) applyLocked(id int64, currency string, delta int64, txType string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	var bal *int64
	switch currency {
	case model.CurrencyBananas:
		bal = &u.Bananas
	case model.CurrencySuperNanners:
		bal = &u.SuperNanners
	default:
		return nil, repository.ErrInvalidCurrency
	}
	if *bal+delta < 0 {
		return nil, repository.ErrInsufficientBalance
	}
	*bal += delta
	m.ledger = append(m.ledger, ledgerRow{id, delta, currency, txType})
	cp := *u
	return &cp, nil
}

func (m *memStore) Apply(_ context.Context, id int64, currency string, delta int64, txType string, _ *string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(id, currency, delta, txType)
}

func (m *memStore) Transfer(_ context.Context, from, to, amount int64) (*model.User, *model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[to]; !ok {
		return nil, nil, repository.ErrUserNotFound
	}
	f, err := m.applyLocked(from, model.CurrencyBananas, -amount, model.TxTypeTransfer)
	if err != nil {
		return nil, nil, err
	}
	t, _ := m.applyLocked(to, model.CurrencyBananas, amount, model.TxTypeTransfer)
	return f, t, nil
}

func (m *memStore) Progress(_ context.Context, id int64, txType string, fn func(u *model.User) (int64, error)) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	cost, err := fn(&cp)
	if err != nil {
		return nil, err
	}
	if cost > cp.Bananas {
		return nil, repository.ErrInsufficientBalance
	}
	cp.Bananas -= cost
	*u = cp
	if cost > 0 {
		m.ledger = append(m.ledger, ledgerRow{id, -cost, model.CurrencyBananas, txType})
	}
	return &cp, nil
}

func (m *memStore) SetBalance(_ context.Context, id int64, bananas int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	m.ledger = append(m.ledger, ledgerRow{id, bananas - u.Bananas, model.CurrencyBananas, model.TxTypeAdminAdjust})
	u.Bananas = bananas
	cp := *u
	return &cp, nil
}

func (m *memStore) SetEquipped(_ context.Context, id int64, itemID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.EquippedItem = itemID
	return nil
}

func (m *memStore) GetTopUsers(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LeaderboardEntry
	for _, u := range m.users {
		out = append(out, model.LeaderboardEntry{
			UserID: u.ID, Username: u.Username, Bananas: u.Bananas,
			Level: u.Level, Prestige: u.Prestige, Ascension: u.Ascension,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Ascension != b.Ascension {
			return a.Ascension > b.Ascension
		}
		if a.Prestige != b.Prestige {
			return a.Prestige > b.Prestige
		}
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		if a.Bananas != b.Bananas {
			return a.Bananas > b.Bananas
		}
		return a.UserID < b.UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) List(_ context.Context, userID int64) ([]model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items[userID]), nil
}

func (m *memStore) Add(_ context.Context, userID int64, item model.Item, capacity int) (model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items[userID]) >= capacity {
		return model.Item{}, repository.ErrInventoryFull
	}
	m.nextID++
	item.ID = m.nextID
	m.items[userID] = append(m.items[userID], item)
	return item, nil
}

func (m *memStore) Delete(_ context.Context, userID, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items[userID]
	i := slices.IndexFunc(items, func(it model.Item) bool { return it.ID == itemID })
	if i < 0 {
		return repository.ErrItemNotFound
	}
	m.items[userID] = slices.Delete(slices.Clone(items), i, i+1)
	if u, ok := m.users[userID]; ok && u.EquippedItem != nil && *u.EquippedItem == itemID {
		u.EquippedItem = nil
	}
	return nil
}

func (m *memStore) Equipped(_ context.Context, userID int64) (*model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.EquippedItem == nil {
		return nil, nil
	}
	for _, it := range m.items[userID] {
		if it.ID == *u.EquippedItem {
			return &it, nil
		}
	}
	return nil, nil
}

func (m *memStore) HasKind(_ context.Context, userID int64, kind model.ItemKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.ContainsFunc(m.items[userID], func(it model.Item) bool { return it.Kind == kind }), nil
}

func (m *memStore) CollectMinions(_ context.Context, userID int64, now time.Time, worth int64) (int, *model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sludge := 0
	for i, it := range m.items[userID] {
		if it.Kind == model.ItemMinion {
			sludge += it.SludgeProduced(now)
			m.items[userID][i].MiningStart = now
		}
	}
	u, err := m.applyLocked(userID, model.CurrencyBananas, int64(sludge)*worth, model.TxTypeMinions)
	if err != nil {
		return 0, nil, err
	}
	return sludge, u, nil
}

func (m *memStore) GetDailyWinners(_ context.Context, date time.Time, limit int) ([]model.DailyRank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.day = date
	return m.winners[:min(limit, len(m.winners))], nil
}

func (m *memStore) GetDailyLosers(_ context.Context, date time.Time, limit int) ([]model.DailyRank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.day = date
	return m.losers[:min(limit, len(m.losers))], nil
}

func (m *memStore) GetUserDailyProfit(_ context.Context, userID int64, date time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.day = date
	var net int64
	for _, r := range m.ledger {
		if r.userID == userID && r.currency == model.CurrencyBananas && slices.Contains(model.GameTransactionTypes(), r.txType) {
			net += r.amount
		}
	}
	return net, nil
}

var (
	_ UserStore   = (*memStore)(nil)
	_ ItemStore   = (*memStore)(nil)
	_ LedgerStore = (*memStore)(nil)
)

// services wires every service over one memStore.
type services struct {
	store       *memStore
	accounts    *AccountService
	inventory   *InventoryService
	progression *ProgressionService
	transfers   *TransferService
	ranking     *RankingService
}

func newServices() *services {
	st := newMemStore()
	accounts := NewAccountService(st, 100)
	return &services{
		store:       st,
		accounts:    accounts,
		inventory:   NewInventoryService(st, st, 3),
		progression: NewProgressionService(accounts, st),
		transfers:   NewTransferService(accounts, st),
		ranking:     NewRankingService(st, st, time.UTC),
	}
}
