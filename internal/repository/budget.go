package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/finance-tracker/backend/internal/models"
)

type BudgetRepository struct {
	db *pgxpool.Pool
}

// NewBudgetRepository builds a budget repository over the pool.
func NewBudgetRepository(db *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// Create inserts a budget. A duplicate name for the same user maps to
// ErrConflict (unique index on user_id + lower(name)).
func (r *BudgetRepository) Create(ctx context.Context, userID uuid.UUID, name string, budgetType models.BudgetType, amount *float64) (models.Budget, error) {
	var budget models.Budget

	err := r.db.QueryRow(ctx,
		`INSERT INTO budgets (user_id, name, budget_type, amount)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, user_id, name, budget_type, amount, created_at`,
		userID, name, budgetType, amount,
	).Scan(&budget.ID, &budget.UserID, &budget.Name, &budget.Type, &budget.Amount, &budget.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return budget, ErrConflict
		}
		return budget, err
	}

	return budget, nil
}

// ListByUser returns the user's budgets in creation order.
func (r *BudgetRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Budget, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, name, budget_type, amount, created_at
		 FROM budgets
		 WHERE user_id = $1
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := make([]models.Budget, 0)
	for rows.Next() {
		var budget models.Budget
		if err := rows.Scan(&budget.ID, &budget.UserID, &budget.Name, &budget.Type, &budget.Amount, &budget.CreatedAt); err != nil {
			return nil, err
		}
		budgets = append(budgets, budget)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return budgets, nil
}

// GetByID returns one budget owned by the user.
func (r *BudgetRepository) GetByID(ctx context.Context, userID, budgetID uuid.UUID) (models.Budget, error) {
	var budget models.Budget

	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, name, budget_type, amount, created_at
		 FROM budgets
		 WHERE id = $1 AND user_id = $2`,
		budgetID, userID,
	).Scan(&budget.ID, &budget.UserID, &budget.Name, &budget.Type, &budget.Amount, &budget.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return budget, ErrNotFound
		}
		return budget, err
	}

	return budget, nil
}

// Delete removes a budget. Associated records cascade at the schema level;
// callers that need the expense-then-income deletion order delete records
// explicitly before calling this.
func (r *BudgetRepository) Delete(ctx context.Context, userID, budgetID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM budgets WHERE id = $1 AND user_id = $2`,
		budgetID, userID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
