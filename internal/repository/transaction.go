package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"banana-bot/internal/model"
)

const transactionColumns = `id, user_id, amount, currency, type, description, created_at`

// TransactionRepository reads and writes the balance ledger.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func insertTransaction(ctx context.Context, q querier, userID, amount int64, currency, txType string, description *string) (*model.Transaction, error) {
	return scanTransaction(q.QueryRow(ctx, `
		INSERT INTO transactions (user_id, amount, currency, type, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+transactionColumns,
		userID, amount, currency, txType, description))
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var tx model.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Currency,
		&tx.Type,
		&tx.Description,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create records a ledger row without touching the balance.
func (r *TransactionRepository) Create(ctx context.Context, userID, amount int64, currency, txType string, description *string) (*model.Transaction, error) {
	tx, err := insertTransaction(ctx, r.pool, userID, amount, currency, txType, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// CreateWithTime records a ledger row with a specific timestamp.
// Useful for testing and data migration.
func (r *TransactionRepository) CreateWithTime(ctx context.Context, userID, amount int64, txType string, createdAt time.Time) (*model.Transaction, error) {
	tx, err := scanTransaction(r.pool.QueryRow(ctx, `
		INSERT INTO transactions (user_id, amount, currency, type, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+transactionColumns,
		userID, amount, model.CurrencyBananas, txType, createdAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// GetByUserID retrieves a user's transactions, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

func dayBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 1)
}

// GetDailyWinners returns the users with the highest positive net game
// result on date.
func (r *TransactionRepository) GetDailyWinners(ctx context.Context, date time.Time, limit int) ([]model.DailyRank, error) {
	return r.dailyRanks(ctx, date, limit, `HAVING SUM(t.amount) > 0 ORDER BY net_profit DESC`)
}

// GetDailyLosers returns the users with the largest net game loss on date.
func (r *TransactionRepository) GetDailyLosers(ctx context.Context, date time.Time, limit int) ([]model.DailyRank, error) {
	return r.dailyRanks(ctx, date, limit, `HAVING SUM(t.amount) < 0 ORDER BY net_profit ASC`)
}

func (r *TransactionRepository) dailyRanks(ctx context.Context, date time.Time, limit int, order string) ([]model.DailyRank, error) {
	start, end := dayBounds(date)
	query := `
		SELECT t.user_id, u.username, COALESCE(SUM(t.amount), 0) AS net_profit
		FROM transactions t
		JOIN users u ON t.user_id = u.id
		WHERE t.type = ANY($1)
		  AND t.currency = $2
		  AND t.created_at >= $3
		  AND t.created_at < $4
		GROUP BY t.user_id, u.username
		` + order + `
		LIMIT $5`

	rows, err := r.pool.Query(ctx, query, model.GameTransactionTypes(), model.CurrencyBananas, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily ranks: %w", err)
	}
	defer rows.Close()

	var ranks []model.DailyRank
	for rows.Next() {
		var rank model.DailyRank
		if err := rows.Scan(&rank.UserID, &rank.Username, &rank.NetProfit); err != nil {
			return nil, fmt.Errorf("failed to scan daily rank: %w", err)
		}
		ranks = append(ranks, rank)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily ranks: %w", err)
	}
	return ranks, nil
}

// GetUserDailyProfit returns a user's net game result on date.
func (r *TransactionRepository) GetUserDailyProfit(ctx context.Context, userID int64, date time.Time) (int64, error) {
	start, end := dayBounds(date)
	var profit int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1
		  AND type = ANY($2)
		  AND currency = $3
		  AND created_at >= $4
		  AND created_at < $5`,
		userID, model.GameTransactionTypes(), model.CurrencyBananas, start, end).Scan(&profit)
	if err != nil {
		return 0, fmt.Errorf("failed to get user daily profit: %w", err)
	}
	return profit, nil
}
