// Package gametest provides in-memory collaborators and deterministic
// randomness for game tests.
package gametest

import (
	"context"
	"math/rand/v2"
	"sync"

	"banana-bot/internal/game"
	"banana-bot/internal/model"
)

// Entry is one recorded economy movement. Debits are negative.
type Entry struct {
	UserID int64
	Amount int64
	TxType string
}

// Economy is an in-memory game.Economy.
type Economy struct {
	mu       sync.Mutex
	balances map[int64]int64
	nanners  map[int64]int64
	ledger   []Entry

	failIn  int // Credit calls left before failErr is returned
	failErr error
}

// NewEconomy creates an economy with the given starting balances.
func NewEconomy(balances map[int64]int64) *Economy {
	e := &Economy{
		balances: make(map[int64]int64),
		nanners:  make(map[int64]int64),
	}
	for id, b := range balances {
		e.balances[id] = b
	}
	return e
}

// Set overwrites a balance without recording a ledger entry.
func (e *Economy) Set(userID, amount int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balances[userID] = amount
}

// Get returns a balance.
func (e *Economy) Get(userID int64) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances[userID]
}

// Nanners returns a super nanner balance.
func (e *Economy) Nanners(userID int64) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nanners[userID]
}

// Ledger returns a copy of every movement so far.
func (e *Economy) Ledger() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Entry(nil), e.ledger...)
}

// Net sums the recorded movements for a user.
func (e *Economy) Net(userID int64) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var net int64
	for _, en := range e.ledger {
		if en.UserID == userID {
			net += en.Amount
		}
	}
	return net
}

func (e *Economy) Balance(_ context.Context, userID int64) (int64, error) {
	return e.Get(userID), nil
}

// FailCredit makes the nth Credit from now return err instead of paying.
// Only that one call fails.
func (e *Economy) FailCredit(n int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failIn, e.failErr = n, err
}

func (e *Economy) Credit(_ context.Context, userID, amount int64, txType string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failIn > 0 {
		e.failIn--
		if e.failIn == 0 {
			return e.failErr
		}
	}
	e.balances[userID] += amount
	e.ledger = append(e.ledger, Entry{UserID: userID, Amount: amount, TxType: txType})
	return nil
}

func (e *Economy) Debit(_ context.Context, userID, amount int64, txType string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.balances[userID] < amount {
		return game.ErrInsufficientFunds
	}
	e.balances[userID] -= amount
	e.ledger = append(e.ledger, Entry{UserID: userID, Amount: -amount, TxType: txType})
	return nil
}

func (e *Economy) CreditSuperNanners(_ context.Context, userID, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nanners[userID] += amount
	return nil
}

// Inventory is an in-memory game.Inventory.
type Inventory struct {
	mu       sync.Mutex
	capacity int
	items    map[int64][]model.Item
	equipped map[int64]*model.Item
}

// NewInventory creates an inventory holding at most capacity items per user.
func NewInventory(capacity int) *Inventory {
	return &Inventory{
		capacity: capacity,
		items:    make(map[int64][]model.Item),
		equipped: make(map[int64]*model.Item),
	}
}

// Give appends items regardless of capacity.
func (i *Inventory) Give(userID int64, items ...model.Item) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items[userID] = append(i.items[userID], items...)
}

// Equip sets the equipped item.
func (i *Inventory) Equip(userID int64, item model.Item) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.equipped[userID] = &item
}

func (i *Inventory) Items(_ context.Context, userID int64) ([]model.Item, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]model.Item(nil), i.items[userID]...), nil
}

func (i *Inventory) RemoveItem(_ context.Context, userID int64, slot int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	items := i.items[userID]
	if slot < 0 || slot >= len(items) {
		return game.ErrItemNotFound
	}
	i.items[userID] = append(items[:slot:slot], items[slot+1:]...)
	return nil
}

func (i *Inventory) AddItem(_ context.Context, userID int64, item model.Item) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.capacity > 0 && len(i.items[userID]) >= i.capacity {
		return game.ErrInventoryFull
	}
	i.items[userID] = append(i.items[userID], item)
	return nil
}

func (i *Inventory) Equipped(_ context.Context, userID int64) (*model.Item, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if it, ok := i.equipped[userID]; ok {
		cp := *it
		return &cp, nil
	}
	return nil, nil
}

// RNG replays scripted values and falls back to a seeded generator once
// the script runs out. Scripted ints are clamped into [0, n).
type RNG struct {
	Ints     []int
	Floats   []float64
	fallback *rand.Rand
}

// NewRNG returns a scripted generator.
func NewRNG(ints ...int) *RNG {
	return &RNG{Ints: ints, fallback: rand.New(rand.NewPCG(1, 2))}
}

// WithFloats appends scripted Float64 values.
func (r *RNG) WithFloats(f ...float64) *RNG {
	r.Floats = append(r.Floats, f...)
	return r
}

func (r *RNG) IntN(n int) int {
	if len(r.Ints) == 0 {
		return r.fallback.IntN(n)
	}
	v := r.Ints[0]
	r.Ints = r.Ints[1:]
	switch {
	case v < 0:
		return 0
	case v >= n:
		return n - 1
	}
	return v
}

func (r *RNG) Float64() float64 {
	if len(r.Floats) == 0 {
		return r.fallback.Float64()
	}
	v := r.Floats[0]
	r.Floats = r.Floats[1:]
	return v
}

var (
	_ game.Economy   = (*Economy)(nil)
	_ game.Inventory = (*Inventory)(nil)
	_ game.RNG       = (*RNG)(nil)
)
