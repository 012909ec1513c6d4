package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/models"
)

// BudgetSource lists a user's budgets from the persistent store.
type BudgetSource interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Budget, error)
}

// RecordSource lists a user's expense or income records.
type RecordSource interface {
	ListByUser(ctx context.Context, userID uuid.UUID, kind models.RecordKind) ([]models.Record, error)
}

// Snapshot is a read-only, process-local copy of one user's collections. The
// agent computes every financial aggregate from a snapshot, never from the
// store directly.
type Snapshot struct {
	Budgets  []models.Budget
	Expenses []models.Record
	Incomes  []models.Record
}

// BudgetByID resolves a budget in the snapshot, if present.
func (s Snapshot) BudgetByID(id uuid.UUID) (models.Budget, bool) {
	for _, budget := range s.Budgets {
		if budget.ID == id {
			return budget, true
		}
	}
	return models.Budget{}, false
}

// BudgetNames maps budget ids to display names for category grouping.
func (s Snapshot) BudgetNames() map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(s.Budgets))
	for _, budget := range s.Budgets {
		names[budget.ID] = budget.Name
	}
	return names
}

// Ledger caches per-user snapshots of the remote collections. Reads go
// through the cache; mutations happen elsewhere (repositories) and must be
// followed by Refresh or Invalidate so the next read observes them.
type Ledger struct {
	budgets BudgetSource
	records RecordSource

	mu    sync.RWMutex
	cache map[uuid.UUID]Snapshot
}

// NewLedger builds a ledger over the given sources.
func NewLedger(budgets BudgetSource, records RecordSource) *Ledger {
	return &Ledger{
		budgets: budgets,
		records: records,
		cache:   make(map[uuid.UUID]Snapshot),
	}
}

// Snapshot returns the cached snapshot for the user, loading it on first use.
func (l *Ledger) Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	l.mu.RLock()
	snapshot, ok := l.cache[userID]
	l.mu.RUnlock()
	if ok {
		return snapshot, nil
	}

	return l.Refresh(ctx, userID)
}

// Refresh reloads the user's collections from the store. Called after every
// confirmed mutation so the next prompt reflects the applied change.
func (l *Ledger) Refresh(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	budgets, err := l.budgets.ListByUser(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	expenses, err := l.records.ListByUser(ctx, userID, models.RecordKindExpense)
	if err != nil {
		return Snapshot{}, err
	}

	incomes, err := l.records.ListByUser(ctx, userID, models.RecordKindIncome)
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{Budgets: budgets, Expenses: expenses, Incomes: incomes}

	l.mu.Lock()
	l.cache[userID] = snapshot
	l.mu.Unlock()

	return snapshot, nil
}

// Invalidate drops the cached snapshot for the user.
func (l *Ledger) Invalidate(userID uuid.UUID) {
	l.mu.Lock()
	delete(l.cache, userID)
	l.mu.Unlock()
}
