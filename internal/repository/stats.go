package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepository struct {
	db *pgxpool.Pool
}

type OverviewStats struct {
	TotalBudgets  int
	MonthExpenses float64
	MonthIncomes  float64
	Balance       float64
}

type MonthlyComparison struct {
	Month    time.Time
	Expenses float64
	Incomes  float64
}

// NewStatsRepository builds a statistics repository over the pool.
func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// Overview returns aggregate numbers for the user: budget count, the current
// month's expense and income totals and the lifetime balance.
func (r *StatsRepository) Overview(ctx context.Context, userID uuid.UUID) (OverviewStats, error) {
	var stats OverviewStats

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM budgets WHERE user_id = $1`,
		userID,
	).Scan(&stats.TotalBudgets)
	if err != nil {
		return stats, err
	}

	err = r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount) FILTER (WHERE kind = 'expense' AND date_trunc('month', occurred_on) = date_trunc('month', CURRENT_DATE)), 0),
		        COALESCE(SUM(amount) FILTER (WHERE kind = 'income' AND date_trunc('month', occurred_on) = date_trunc('month', CURRENT_DATE)), 0),
		        COALESCE(SUM(CASE WHEN kind = 'income' THEN amount ELSE -amount END), 0)
		 FROM records
		 WHERE user_id = $1`,
		userID,
	).Scan(&stats.MonthExpenses, &stats.MonthIncomes, &stats.Balance)
	if err != nil {
		return stats, err
	}

	return stats, nil
}

// MonthlyComparison returns per-month expense and income totals, newest first.
func (r *StatsRepository) MonthlyComparison(ctx context.Context, userID uuid.UUID, months int) ([]MonthlyComparison, error) {
	if months <= 0 {
		return nil, ErrInvalid
	}

	rows, err := r.db.Query(ctx,
		`SELECT date_trunc('month', occurred_on)::date AS month,
		        COALESCE(SUM(amount) FILTER (WHERE kind = 'expense'), 0) AS expenses,
		        COALESCE(SUM(amount) FILTER (WHERE kind = 'income'), 0) AS incomes
		 FROM records
		 WHERE user_id = $1
		 GROUP BY month
		 ORDER BY month DESC
		 LIMIT $2`,
		userID, months,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]MonthlyComparison, 0)
	for rows.Next() {
		var row MonthlyComparison
		var month time.Time
		if err := rows.Scan(&month, &row.Expenses, &row.Incomes); err != nil {
			return nil, err
		}
		row.Month = month
		items = append(items, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
