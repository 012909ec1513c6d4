package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/finance-tracker/backend/internal/models"
)

// RecordRepository stores expenses and incomes in one table, discriminated
// by kind.
type RecordRepository struct {
	db *pgxpool.Pool
}

// NewRecordRepository builds a record repository over the pool.
func NewRecordRepository(db *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{db: db}
}

// Create inserts one record.
func (r *RecordRepository) Create(ctx context.Context, record models.Record) (models.Record, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO records (user_id, budget_id, kind, name, amount, occurred_on)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		record.UserID, record.BudgetID, record.Kind, record.Name, record.Amount, record.Date,
	).Scan(&record.ID)
	if err != nil {
		return record, err
	}

	return record, nil
}

// ListByUser returns all records of one kind for the user, oldest first.
func (r *RecordRepository) ListByUser(ctx context.Context, userID uuid.UUID, kind models.RecordKind) ([]models.Record, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, budget_id, kind, name, amount, occurred_on
		 FROM records
		 WHERE user_id = $1 AND kind = $2
		 ORDER BY occurred_on, id`,
		userID, kind,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.Record, 0)
	for rows.Next() {
		var record models.Record
		if err := rows.Scan(&record.ID, &record.UserID, &record.BudgetID, &record.Kind, &record.Name, &record.Amount, &record.Date); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ListByBudget returns records of one kind attached to a budget.
func (r *RecordRepository) ListByBudget(ctx context.Context, userID, budgetID uuid.UUID, kind models.RecordKind) ([]models.Record, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, budget_id, kind, name, amount, occurred_on
		 FROM records
		 WHERE user_id = $1 AND budget_id = $2 AND kind = $3
		 ORDER BY occurred_on, id`,
		userID, budgetID, kind,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.Record, 0)
	for rows.Next() {
		var record models.Record
		if err := rows.Scan(&record.ID, &record.UserID, &record.BudgetID, &record.Kind, &record.Name, &record.Amount, &record.Date); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Delete removes one record by id.
func (r *RecordRepository) Delete(ctx context.Context, userID, recordID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM records WHERE id = $1 AND user_id = $2`,
		recordID, userID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByBudget removes every record of one kind attached to a budget.
// Budget deletion calls this for expenses first, then incomes.
func (r *RecordRepository) DeleteByBudget(ctx context.Context, userID, budgetID uuid.UUID, kind models.RecordKind) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM records WHERE user_id = $1 AND budget_id = $2 AND kind = $3`,
		userID, budgetID, kind,
	)
	return err
}

// GetByID returns one record owned by the user.
func (r *RecordRepository) GetByID(ctx context.Context, userID, recordID uuid.UUID) (models.Record, error) {
	var record models.Record

	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, budget_id, kind, name, amount, occurred_on
		 FROM records
		 WHERE id = $1 AND user_id = $2`,
		recordID, userID,
	).Scan(&record.ID, &record.UserID, &record.BudgetID, &record.Kind, &record.Name, &record.Amount, &record.Date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return record, ErrNotFound
		}
		return record, err
	}

	return record, nil
}
