package store

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/models"
)

type fakeBudgetSource struct {
	calls   int
	budgets []models.Budget
}

func (f *fakeBudgetSource) ListByUser(_ context.Context, _ uuid.UUID) ([]models.Budget, error) {
	f.calls++
	return f.budgets, nil
}

type fakeRecordSource struct {
	expenses []models.Record
	incomes  []models.Record
}

func (f *fakeRecordSource) ListByUser(_ context.Context, _ uuid.UUID, kind models.RecordKind) ([]models.Record, error) {
	if kind == models.RecordKindIncome {
		return f.incomes, nil
	}
	return f.expenses, nil
}

// TestLedgerCachesSnapshot checks that repeated reads hit the cache instead
// of the sources.
func TestLedgerCachesSnapshot(t *testing.T) {
	budgets := &fakeBudgetSource{budgets: []models.Budget{{ID: uuid.New(), Name: "Courses"}}}
	ledger := NewLedger(budgets, &fakeRecordSource{})
	userID := uuid.New()

	if _, err := ledger.Snapshot(context.Background(), userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ledger.Snapshot(context.Background(), userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if budgets.calls != 1 {
		t.Fatalf("expected 1 source load, got %d", budgets.calls)
	}
}

// TestLedgerRefreshReloads checks that Refresh always goes back to the
// sources and replaces the cached snapshot.
func TestLedgerRefreshReloads(t *testing.T) {
	budgets := &fakeBudgetSource{}
	ledger := NewLedger(budgets, &fakeRecordSource{})
	userID := uuid.New()

	if _, err := ledger.Snapshot(context.Background(), userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	budgets.budgets = []models.Budget{{ID: uuid.New(), Name: "Loisirs"}}
	snapshot, err := ledger.Refresh(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snapshot.Budgets) != 1 || snapshot.Budgets[0].Name != "Loisirs" {
		t.Fatalf("expected refreshed snapshot, got %v", snapshot.Budgets)
	}

	cached, err := ledger.Snapshot(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cached.Budgets) != 1 {
		t.Fatal("expected cache updated after refresh")
	}
}

// TestLedgerInvalidateForcesReload checks the invalidation path used by the
// CRUD handlers after direct mutations.
func TestLedgerInvalidateForcesReload(t *testing.T) {
	budgets := &fakeBudgetSource{}
	ledger := NewLedger(budgets, &fakeRecordSource{})
	userID := uuid.New()

	if _, err := ledger.Snapshot(context.Background(), userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ledger.Invalidate(userID)

	if _, err := ledger.Snapshot(context.Background(), userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if budgets.calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d loads", budgets.calls)
	}
}

// TestSnapshotBudgetByID checks snapshot lookup helpers.
func TestSnapshotBudgetByID(t *testing.T) {
	budget := models.Budget{ID: uuid.New(), Name: "Courses"}
	snapshot := Snapshot{Budgets: []models.Budget{budget}}

	got, ok := snapshot.BudgetByID(budget.ID)
	if !ok || got.Name != "Courses" {
		t.Fatalf("expected lookup hit, got %v (ok=%v)", got, ok)
	}

	if _, ok := snapshot.BudgetByID(uuid.New()); ok {
		t.Fatal("expected lookup miss for unknown id")
	}

	names := snapshot.BudgetNames()
	if names[budget.ID] != "Courses" {
		t.Fatalf("expected name map entry, got %v", names)
	}
}
