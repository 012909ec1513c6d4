package agent

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/store"
)

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func fixedBuilder() *ContextBuilder {
	return &ContextBuilder{Now: func() time.Time { return testNow }}
}

func cappedBudget(name string, amount float64) models.Budget {
	return models.Budget{
		ID:     uuid.New(),
		Name:   name,
		Type:   models.BudgetTypeCapped,
		Amount: &amount,
	}
}

// TestCappedBudgetWarningMath checks the 85% warning vector: amount 1000,
// month expenses 850, no incomes.
func TestCappedBudgetWarningMath(t *testing.T) {
	budget := cappedBudget("Courses", 1000)
	snapshot := store.Snapshot{
		Budgets: []models.Budget{budget},
		Expenses: []models.Record{
			expense(budget.ID, "marché", 600, testNow.AddDate(0, 0, -3)),
			expense(budget.ID, "épicerie", 250, testNow.AddDate(0, 0, -1)),
		},
	}

	context := fixedBuilder().Build(snapshot)
	summary := context.Budgets[0]

	if summary.Percentage != 85 {
		t.Fatalf("expected 85%%, got %d", summary.Percentage)
	}
	if summary.Status != BudgetStatusWarning {
		t.Fatalf("expected warning, got %s", summary.Status)
	}
	if summary.Remaining != 150 {
		t.Fatalf("expected remaining 150, got %f", summary.Remaining)
	}
}

// TestCappedBudgetExceededMath checks the overrun vector: expenses 1200
// against a 1000 ceiling.
func TestCappedBudgetExceededMath(t *testing.T) {
	budget := cappedBudget("Courses", 1000)
	snapshot := store.Snapshot{
		Budgets: []models.Budget{budget},
		Expenses: []models.Record{
			expense(budget.ID, "gros plein", 1200, testNow.AddDate(0, 0, -2)),
		},
	}

	context := fixedBuilder().Build(snapshot)
	summary := context.Budgets[0]

	if summary.Remaining != -200 {
		t.Fatalf("expected remaining -200, got %f", summary.Remaining)
	}
	if summary.Status != BudgetStatusExceeded {
		t.Fatalf("expected exceeded, got %s", summary.Status)
	}
}

// TestCappedBudgetZeroAvailableGuard checks the divide-by-zero guard.
func TestCappedBudgetZeroAvailableGuard(t *testing.T) {
	budget := cappedBudget("Vide", 0)
	context := fixedBuilder().Build(store.Snapshot{Budgets: []models.Budget{budget}})

	summary := context.Budgets[0]
	if summary.Percentage != 0 || summary.Status != BudgetStatusOK {
		t.Fatalf("expected 0%%/ok, got %d%%/%s", summary.Percentage, summary.Status)
	}
}

// TestIncomesExtendCappedBudget checks that month incomes raise the
// available total before the percentage is computed.
func TestIncomesExtendCappedBudget(t *testing.T) {
	budget := cappedBudget("Courses", 1000)
	snapshot := store.Snapshot{
		Budgets: []models.Budget{budget},
		Expenses: []models.Record{
			expense(budget.ID, "a", 600, testNow.AddDate(0, 0, -1)),
		},
		Incomes: []models.Record{
			{ID: uuid.New(), BudgetID: budget.ID, Kind: models.RecordKindIncome, Name: "remboursement", Amount: 200, Date: testNow.AddDate(0, 0, -2)},
		},
	}

	summary := fixedBuilder().Build(snapshot).Budgets[0]
	if summary.Remaining != 600 {
		t.Fatalf("expected remaining 600, got %f", summary.Remaining)
	}
	if summary.Percentage != 50 {
		t.Fatalf("expected 50%%, got %d", summary.Percentage)
	}
}

// TestSavingsLifetimeAccumulation checks that savings progress spans months
// and that exactly 50% raises the halfway alert, not the completion one.
func TestSavingsLifetimeAccumulation(t *testing.T) {
	goal := 500.0
	budget := models.Budget{ID: uuid.New(), Name: "Vacances", Type: models.BudgetTypeSavings, Amount: &goal}
	snapshot := store.Snapshot{
		Budgets: []models.Budget{budget},
		Incomes: []models.Record{
			{ID: uuid.New(), BudgetID: budget.ID, Kind: models.RecordKindIncome, Name: "virement", Amount: 200, Date: time.Date(2024, time.November, 2, 0, 0, 0, 0, time.UTC)},
			{ID: uuid.New(), BudgetID: budget.ID, Kind: models.RecordKindIncome, Name: "virement", Amount: 100, Date: time.Date(2025, time.February, 2, 0, 0, 0, 0, time.UTC)},
		},
		Expenses: []models.Record{
			expense(budget.ID, "retrait", 50, time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)),
		},
	}

	context := fixedBuilder().Build(snapshot)
	summary := context.Budgets[0]
	if summary.Percentage != 50 {
		t.Fatalf("expected 50%%, got %d", summary.Percentage)
	}

	halfway, completed := 0, 0
	for _, alert := range context.Alerts {
		if strings.Contains(alert.Message, "mi-chemin") {
			halfway++
		}
		if strings.Contains(alert.Message, "atteint") {
			completed++
		}
	}
	if halfway != 1 || completed != 0 {
		t.Fatalf("expected exactly one halfway alert, got halfway=%d completed=%d", halfway, completed)
	}
}

// TestHistoryExcludesCurrentMonth checks that history covers the three
// months strictly before the current one.
func TestHistoryExcludesCurrentMonth(t *testing.T) {
	budget := cappedBudget("Courses", 1000)
	snapshot := store.Snapshot{
		Budgets: []models.Budget{budget},
		Expenses: []models.Record{
			expense(budget.ID, "mars", 100, testNow),
			expense(budget.ID, "février", 200, time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)),
			expense(budget.ID, "décembre", 300, time.Date(2024, time.December, 10, 0, 0, 0, 0, time.UTC)),
		},
	}

	context := fixedBuilder().Build(snapshot)
	if len(context.History) != 3 {
		t.Fatalf("expected 3 history months, got %d", len(context.History))
	}
	if context.History[0].Label != "2025-02" || context.History[0].Expenses != 200 {
		t.Fatalf("unexpected first history month: %+v", context.History[0])
	}
	if context.History[2].Label != "2024-12" || context.History[2].Expenses != 300 {
		t.Fatalf("unexpected last history month: %+v", context.History[2])
	}
}

// TestOverspendAlert checks the month-progress overspend rule.
func TestOverspendAlert(t *testing.T) {
	budget := cappedBudget("Courses", 1000)
	// Day 15 of 31: threshold is 1000 * 15/31 * 1.2 ≈ 580.65.
	snapshot := store.Snapshot{
		Budgets: []models.Budget{budget},
		Expenses: []models.Record{
			expense(budget.ID, "a", 700, testNow.AddDate(0, 0, -1)),
		},
	}

	context := fixedBuilder().Build(snapshot)
	found := false
	for _, alert := range context.Alerts {
		if strings.Contains(alert.Message, "Rythme de dépenses") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected overspend pace alert")
	}
}

// TestBuildIsDeterministic checks that two builds over the same snapshot are
// identical (pure function over snapshot and clock).
func TestBuildIsDeterministic(t *testing.T) {
	budget := cappedBudget("Courses", 1000)
	snapshot := store.Snapshot{
		Budgets: []models.Budget{budget},
		Expenses: []models.Record{
			expense(budget.ID, "a", 120, testNow.AddDate(0, 0, -4)),
			expense(budget.ID, "b", 80, testNow.AddDate(0, 0, -2)),
		},
		Incomes: []models.Record{
			{ID: uuid.New(), BudgetID: budget.ID, Kind: models.RecordKindIncome, Name: "salaire", Amount: 2000, Date: testNow.AddDate(0, 0, -10)},
		},
	}

	builder := fixedBuilder()
	first := builder.Build(snapshot)
	second := builder.Build(snapshot)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical contexts from identical snapshots")
	}
}
