package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"banana-bot/internal/model"
)

var (
	ErrInventoryFull = errors.New("inventory full")
	ErrItemNotFound  = errors.New("item not found")
)

// InventoryRepository stores user items as JSONB rows in user_items. A
// user's inventory order is row id order.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository creates a new InventoryRepository instance
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

func scanItem(row pgx.Row) (model.Item, error) {
	var (
		id      int64
		payload []byte
		item    model.Item
	)
	if err := row.Scan(&id, &payload); err != nil {
		return item, err
	}
	if err := json.Unmarshal(payload, &item); err != nil {
		return item, fmt.Errorf("failed to decode item %d: %w", id, err)
	}
	item.ID = id
	return item, nil
}

func listItems(ctx context.Context, q querier, userID int64, lock bool) ([]model.Item, error) {
	query := `SELECT id, item FROM user_items WHERE user_id = $1 ORDER BY id`
	if lock {
		query += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func updateItem(ctx context.Context, q querier, item model.Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode item: %w", err)
	}
	_, err = q.Exec(ctx, `UPDATE user_items SET item = $2 WHERE id = $1`, item.ID, payload)
	return err
}

// List returns a user's items in slot order.
func (r *InventoryRepository) List(ctx context.Context, userID int64) ([]model.Item, error) {
	items, err := listItems(ctx, r.pool, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// Add appends item to the user's inventory unless it already holds
// capacity items. The user row is locked so concurrent adds can't both
// take the last slot.
func (r *InventoryRepository) Add(ctx context.Context, userID int64, item model.Item, capacity int) (model.Item, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return item, fmt.Errorf("failed to encode item: %w", err)
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT true FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&exists); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}

		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM user_items WHERE user_id = $1`, userID).Scan(&count); err != nil {
			return err
		}
		if count >= capacity {
			return ErrInventoryFull
		}
		return tx.QueryRow(ctx, `INSERT INTO user_items (user_id, item) VALUES ($1, $2) RETURNING id`, userID, payload).Scan(&item.ID)
	})
	if err != nil {
		if errors.Is(err, ErrInventoryFull) || errors.Is(err, ErrUserNotFound) {
			return item, err
		}
		return item, fmt.Errorf("failed to add item: %w", err)
	}
	return item, nil
}

// Delete removes one item, unequipping it if it was equipped.
func (r *InventoryRepository) Delete(ctx context.Context, userID, itemID int64) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `DELETE FROM user_items WHERE id = $1 AND user_id = $2`, itemID, userID)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return ErrItemNotFound
		}
		_, err = tx.Exec(ctx, `
			UPDATE users SET equipped_item_id = NULL, updated_at = NOW()
			WHERE id = $1 AND equipped_item_id = $2`, userID, itemID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// Equipped returns the user's equipped item, or nil.
func (r *InventoryRepository) Equipped(ctx context.Context, userID int64) (*model.Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `
		SELECT i.id, i.item
		FROM users u
		JOIN user_items i ON i.id = u.equipped_item_id AND i.user_id = u.id
		WHERE u.id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get equipped item: %w", err)
	}
	return &item, nil
}

// HasKind reports whether the user owns at least one item of kind.
func (r *InventoryRepository) HasKind(ctx context.Context, userID int64, kind model.ItemKind) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM user_items WHERE user_id = $1 AND item->>'kind' = $2)`,
		userID, string(kind)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check item kind: %w", err)
	}
	return exists, nil
}

// CollectMinions pays out the sludge every minion has produced since its
// last collection, at worth bananas per sludge, and restarts their clocks
// at now. Items, balance and ledger change in one transaction.
func (r *InventoryRepository) CollectMinions(ctx context.Context, userID int64, now time.Time, worth int64) (int, *model.User, error) {
	var (
		sludge int
		user   *model.User
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		items, err := listItems(ctx, tx, userID, true)
		if err != nil {
			return err
		}

		for _, item := range items {
			if item.Kind != model.ItemMinion {
				continue
			}
			sludge += item.SludgeProduced(now)
			item.MiningStart = now
			if err := updateItem(ctx, tx, item); err != nil {
				return err
			}
		}

		if user, err = applyDelta(ctx, tx, userID, model.CurrencyBananas, int64(sludge)*worth); err != nil {
			return err
		}
		if sludge > 0 {
			_, err = insertTransaction(ctx, tx, userID, int64(sludge)*worth, model.CurrencyBananas, model.TxTypeMinions, nil)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("failed to collect minions: %w", err)
	}

	log.Info().
		Int64("user_id", userID).
		Int("sludge", sludge).
		Int64("bananas", user.Bananas).
		Msg("Minions collected")
	return sludge, user, nil
}
