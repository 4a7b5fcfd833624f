// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"banana-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidCurrency     = errors.New("invalid currency")
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, username, bananas, super_nanners, level, prestige, ascension, equipped_item_id, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Bananas,
		&user.SuperNanners,
		&user.Level,
		&user.Prestige,
		&user.Ascension,
		&user.EquippedItem,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserRepository handles wallets and progression.
// Every balance change is written together with its ledger row.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create creates a new user holding the given starting bananas.
func (r *UserRepository) Create(ctx context.Context, id int64, username string, bananas int64) (*model.User, error) {
	var user *model.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		user, err = scanUser(tx.QueryRow(ctx, `
			INSERT INTO users (id, username, bananas)
			VALUES ($1, $2, $3)
			RETURNING `+userColumns, id, username, bananas))
		if err != nil {
			return err
		}
		if bananas > 0 {
			_, err = insertTransaction(ctx, tx, id, bananas, model.CurrencyBananas, model.TxTypeInitial, nil)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetOrCreate retrieves a user, creating one with the starting balance if
// it doesn't exist. The bool reports whether the user was created.
func (r *UserRepository) GetOrCreate(ctx context.Context, id int64, username string, starting int64) (*model.User, bool, error) {
	user, err := r.GetByID(ctx, id)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	user, err = r.Create(ctx, id, username, starting)
	if err != nil {
		// Another request may have created the user first.
		user, err = r.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return user, false, nil
	}
	return user, true, nil
}

func balanceColumn(currency string) (string, error) {
	switch currency {
	case model.CurrencyBananas:
		return "bananas", nil
	case model.CurrencySuperNanners:
		return "super_nanners", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
}

// Apply adds delta (negative to take) to one of the user's balances and
// records it. A change that would leave the balance negative fails with
// ErrInsufficientBalance and writes nothing.
func (r *UserRepository) Apply(ctx context.Context, id int64, currency string, delta int64, txType string, description *string) (*model.User, error) {
	var user *model.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		user, err = applyDelta(ctx, tx, id, currency, delta)
		if err != nil {
			return err
		}
		_, err = insertTransaction(ctx, tx, id, delta, currency, txType, description)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidCurrency) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	return user, nil
}

func applyDelta(ctx context.Context, q querier, id int64, currency string, delta int64) (*model.User, error) {
	col, err := balanceColumn(currency)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		UPDATE users
		SET %[1]s = %[1]s + $2, updated_at = NOW()
		WHERE id = $1 AND %[1]s + $2 >= 0
		RETURNING `+userColumns, col)

	user, err := scanUser(q.QueryRow(ctx, query, id, delta))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}
	return nil, ErrInsufficientBalance
}

// Transfer moves bananas between two users in one transaction, writing a
// ledger row for each side.
func (r *UserRepository) Transfer(ctx context.Context, from, to, amount int64) (*model.User, *model.User, error) {
	var sender, receiver *model.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Lock both rows in id order so opposite transfers can't deadlock.
		rows, err := tx.Query(ctx, `SELECT id FROM users WHERE id IN ($1, $2) ORDER BY id FOR UPDATE`, from, to)
		if err != nil {
			return err
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if sender, err = applyDelta(ctx, tx, from, model.CurrencyBananas, -amount); err != nil {
			return err
		}
		if receiver, err = applyDelta(ctx, tx, to, model.CurrencyBananas, amount); err != nil {
			return err
		}
		if _, err := insertTransaction(ctx, tx, from, -amount, model.CurrencyBananas, model.TxTypeTransfer, nil); err != nil {
			return err
		}
		_, err = insertTransaction(ctx, tx, to, amount, model.CurrencyBananas, model.TxTypeTransfer, nil)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrUserNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to transfer: %w", err)
	}
	return sender, receiver, nil
}

// Progress locks the user row and lets fn change level, prestige and
// ascension. fn returns the banana cost, which is deducted with the
// changes. An error from fn aborts without writing anything.
func (r *UserRepository) Progress(ctx context.Context, id int64, txType string, fn func(u *model.User) (int64, error)) (*model.User, error) {
	var user *model.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}

		cost, err := fn(current)
		if err != nil {
			return err
		}
		if cost > current.Bananas {
			return ErrInsufficientBalance
		}

		user, err = scanUser(tx.QueryRow(ctx, `
			UPDATE users
			SET bananas = bananas - $2, level = $3, prestige = $4, ascension = $5, updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			id, cost, current.Level, current.Prestige, current.Ascension))
		if err != nil {
			return err
		}
		if cost > 0 {
			_, err = insertTransaction(ctx, tx, id, -cost, model.CurrencyBananas, txType, nil)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("user_id", id).
		Str("type", txType).
		Int("level", user.Level).
		Int("prestige", user.Prestige).
		Int("ascension", user.Ascension).
		Msg("User progressed")
	return user, nil
}

// SetBalance sets a user's bananas to an exact value and records the
// difference as an admin adjustment.
func (r *UserRepository) SetBalance(ctx context.Context, id int64, bananas int64) (*model.User, error) {
	if bananas < 0 {
		return nil, ErrInsufficientBalance
	}
	var user *model.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var old int64
		if err := tx.QueryRow(ctx, `SELECT bananas FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&old); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}
		var err error
		user, err = scanUser(tx.QueryRow(ctx, `
			UPDATE users SET bananas = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns, id, bananas))
		if err != nil {
			return err
		}
		_, err = insertTransaction(ctx, tx, id, bananas-old, model.CurrencyBananas, model.TxTypeAdminAdjust, nil)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to set balance: %w", err)
	}
	return user, nil
}

// SetEquipped points the user at one of their items, or clears it when
// itemID is nil.
func (r *UserRepository) SetEquipped(ctx context.Context, id int64, itemID *int64) error {
	result, err := r.pool.Exec(ctx, `UPDATE users SET equipped_item_id = $2, updated_at = NOW() WHERE id = $1`, id, itemID)
	if err != nil {
		return fmt.Errorf("failed to set equipped item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetTopUsers returns the top N users by ascension, prestige and level,
// with bananas breaking ties.
func (r *UserRepository) GetTopUsers(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	const query = `
		SELECT id, username, bananas, level, prestige, ascension
		FROM users
		ORDER BY ascension DESC, prestige DESC, level DESC, bananas DESC, id
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Bananas, &e.Level, &e.Prestige, &e.Ascension); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return entries, nil
}

// UpdateUsername updates a user's username.
func (r *UserRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	result, err := r.pool.Exec(ctx, `UPDATE users SET username = $2, updated_at = NOW() WHERE id = $1`, id, username)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Exists checks if a user with the given ID exists.
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}
