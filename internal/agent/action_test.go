package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/models"
)

type fakeBudgetStore struct {
	budgets   []models.Budget
	listErr   error
	createErr error
	deleted   []uuid.UUID
	listCalls int
}

func (f *fakeBudgetStore) ListByUser(_ context.Context, _ uuid.UUID) ([]models.Budget, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.budgets, nil
}

func (f *fakeBudgetStore) Create(_ context.Context, userID uuid.UUID, name string, budgetType models.BudgetType, amount *float64) (models.Budget, error) {
	if f.createErr != nil {
		return models.Budget{}, f.createErr
	}
	budget := models.Budget{ID: uuid.New(), UserID: userID, Name: name, Type: budgetType, Amount: amount}
	f.budgets = append(f.budgets, budget)
	return budget, nil
}

func (f *fakeBudgetStore) Delete(_ context.Context, _ uuid.UUID, budgetID uuid.UUID) error {
	f.deleted = append(f.deleted, budgetID)
	return nil
}

type fakeRecordStore struct {
	created      []models.Record
	createErr    error
	deleteErr    error
	deletedKinds []models.RecordKind
}

func (f *fakeRecordStore) Create(_ context.Context, record models.Record) (models.Record, error) {
	if f.createErr != nil {
		return models.Record{}, f.createErr
	}
	record.ID = uuid.New()
	f.created = append(f.created, record)
	return record, nil
}

func (f *fakeRecordStore) DeleteByBudget(_ context.Context, _ uuid.UUID, budgetID uuid.UUID, kind models.RecordKind) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedKinds = append(f.deletedKinds, kind)
	remaining := f.created[:0]
	for _, record := range f.created {
		if record.BudgetID != budgetID || record.Kind != kind {
			remaining = append(remaining, record)
		}
	}
	f.created = remaining
	return nil
}

func pendingAction(actionType models.ActionType, params map[string]string) models.Action {
	return models.Action{
		ID:                   uuid.New(),
		Type:                 actionType,
		Parameters:           params,
		RequiresConfirmation: true,
		Status:               models.ActionStatusPending,
	}
}

// TestExecuteCreateBudget checks the happy path including the capped default
// when an amount is supplied.
func TestExecuteCreateBudget(t *testing.T) {
	budgets := &fakeBudgetStore{}
	executor := NewExecutor(budgets, &fakeRecordStore{})

	result := executor.Execute(context.Background(), pendingAction(models.ActionTypeCreateBudget, map[string]string{
		"name": "Loisirs", "amount": "100",
	}), uuid.New())

	if !result.Success {
		t.Fatalf("expected success, got %q (%s)", result.Message, result.Error)
	}
	if len(budgets.budgets) != 1 {
		t.Fatalf("expected 1 budget created, got %d", len(budgets.budgets))
	}
	created := budgets.budgets[0]
	if created.Type != models.BudgetTypeCapped || created.Amount == nil || *created.Amount != 100 {
		t.Fatalf("unexpected budget: %+v", created)
	}
}

// TestExecuteCreateBudgetDuplicateName checks the case-insensitive duplicate
// rejection.
func TestExecuteCreateBudgetDuplicateName(t *testing.T) {
	budgets := &fakeBudgetStore{budgets: []models.Budget{{ID: uuid.New(), Name: "Loisirs"}}}
	executor := NewExecutor(budgets, &fakeRecordStore{})

	result := executor.Execute(context.Background(), pendingAction(models.ActionTypeCreateBudget, map[string]string{
		"name": "loisirs",
	}), uuid.New())

	if result.Success {
		t.Fatal("expected duplicate name rejection")
	}
	if result.Error == "" {
		t.Fatal("expected raw error to be reported")
	}
}

// TestExecuteCreateTrackingBudgetIgnoresAmount checks that tracking budgets
// carry no amount.
func TestExecuteCreateTrackingBudgetIgnoresAmount(t *testing.T) {
	budgets := &fakeBudgetStore{}
	executor := NewExecutor(budgets, &fakeRecordStore{})

	result := executor.Execute(context.Background(), pendingAction(models.ActionTypeCreateBudget, map[string]string{
		"name": "Suivi", "type": "tracking", "amount": "300",
	}), uuid.New())

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if budgets.budgets[0].Amount != nil {
		t.Fatal("expected tracking budget without amount")
	}
}

// TestExecuteAddExpenseDefaultsToFirstBudget checks the default budget rule.
func TestExecuteAddExpenseDefaultsToFirstBudget(t *testing.T) {
	first := models.Budget{ID: uuid.New(), Name: "Courses"}
	second := models.Budget{ID: uuid.New(), Name: "Loisirs"}
	records := &fakeRecordStore{}
	executor := NewExecutor(&fakeBudgetStore{budgets: []models.Budget{first, second}}, records)

	result := executor.Execute(context.Background(), pendingAction(models.ActionTypeAddExpense, map[string]string{
		"name": "Café", "amount": "3.50",
	}), uuid.New())

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if len(records.created) != 1 || records.created[0].BudgetID != first.ID {
		t.Fatalf("expected expense on first budget, got %+v", records.created)
	}
	if records.created[0].Amount != 3.5 {
		t.Fatalf("expected amount 3.5, got %f", records.created[0].Amount)
	}
}

// TestExecuteAddExpenseWithoutBudgets checks the typed zero-budget failure.
func TestExecuteAddExpenseWithoutBudgets(t *testing.T) {
	executor := NewExecutor(&fakeBudgetStore{}, &fakeRecordStore{})

	result := executor.Execute(context.Background(), pendingAction(models.ActionTypeAddExpense, map[string]string{
		"name": "Café", "amount": "3",
	}), uuid.New())

	if result.Success {
		t.Fatal("expected failure without budgets")
	}
	if result.Error != ErrNoBudgets.Error() {
		t.Fatalf("expected ErrNoBudgets, got %q", result.Error)
	}
}

// TestExecuteAddIncomeToNamedBudget checks budget resolution by name.
func TestExecuteAddIncomeToNamedBudget(t *testing.T) {
	first := models.Budget{ID: uuid.New(), Name: "Courses"}
	savings := models.Budget{ID: uuid.New(), Name: "Vacances"}
	records := &fakeRecordStore{}
	executor := NewExecutor(&fakeBudgetStore{budgets: []models.Budget{first, savings}}, records)

	result := executor.Execute(context.Background(), pendingAction(models.ActionTypeAddIncome, map[string]string{
		"name": "Prime", "amount": "150", "budget": "vacances",
	}), uuid.New())

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if records.created[0].BudgetID != savings.ID {
		t.Fatal("expected income on named budget")
	}
	if records.created[0].Kind != models.RecordKindIncome {
		t.Fatalf("expected income kind, got %s", records.created[0].Kind)
	}
}

// TestExecuteDeleteBudgetByName checks case-insensitive name resolution.
func TestExecuteDeleteBudgetByName(t *testing.T) {
	budget := models.Budget{ID: uuid.New(), Name: "Loisirs"}
	budgets := &fakeBudgetStore{budgets: []models.Budget{budget}}
	executor := NewExecutor(budgets, &fakeRecordStore{})

	result := executor.Execute(context.Background(), pendingAction(models.ActionTypeDeleteBudget, map[string]string{
		"name": "LOISIRS",
	}), uuid.New())

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if len(budgets.deleted) != 1 || budgets.deleted[0] != budget.ID {
		t.Fatalf("expected budget deleted, got %v", budgets.deleted)
	}
}

// TestExecuteDeleteBudgetCascadesRecords checks that a confirmed deletion
// removes the budget's expenses first, then its incomes, then the budget row,
// so nothing ends up counted under the fallback category.
func TestExecuteDeleteBudgetCascadesRecords(t *testing.T) {
	budget := models.Budget{ID: uuid.New(), Name: "Loisirs"}
	budgets := &fakeBudgetStore{budgets: []models.Budget{budget}}
	records := &fakeRecordStore{created: []models.Record{
		{ID: uuid.New(), BudgetID: budget.ID, Kind: models.RecordKindExpense, Name: "Cinéma", Amount: 12},
		{ID: uuid.New(), BudgetID: budget.ID, Kind: models.RecordKindIncome, Name: "Remboursement", Amount: 5},
	}}
	executor := NewExecutor(budgets, records)

	result := executor.Execute(context.Background(), pendingAction(models.ActionTypeDeleteBudget, map[string]string{
		"name": "Loisirs",
	}), uuid.New())

	if !result.Success {
		t.Fatalf("expected success, got %q (%s)", result.Message, result.Error)
	}
	if len(records.created) != 0 {
		t.Fatalf("expected budget records removed, %d left", len(records.created))
	}
	if len(records.deletedKinds) != 2 ||
		records.deletedKinds[0] != models.RecordKindExpense ||
		records.deletedKinds[1] != models.RecordKindIncome {
		t.Fatalf("expected expenses deleted before incomes, got %v", records.deletedKinds)
	}
	if len(budgets.deleted) != 1 || budgets.deleted[0] != budget.ID {
		t.Fatalf("expected budget deleted, got %v", budgets.deleted)
	}
}

// TestExecuteDeleteBudgetKeepsBudgetOnRecordFailure checks the cascade order:
// when record deletion fails the budget row must stay.
func TestExecuteDeleteBudgetKeepsBudgetOnRecordFailure(t *testing.T) {
	budget := models.Budget{ID: uuid.New(), Name: "Loisirs"}
	budgets := &fakeBudgetStore{budgets: []models.Budget{budget}}
	executor := NewExecutor(budgets, &fakeRecordStore{deleteErr: errors.New("connection reset")})

	result := executor.Execute(context.Background(), pendingAction(models.ActionTypeDeleteBudget, map[string]string{
		"name": "Loisirs",
	}), uuid.New())

	if result.Success {
		t.Fatal("expected failure on record deletion error")
	}
	if len(budgets.deleted) != 0 {
		t.Fatal("expected budget row untouched")
	}
}

// TestExecuteDeleteBudgetUnknownTarget checks the unresolved-target failure.
func TestExecuteDeleteBudgetUnknownTarget(t *testing.T) {
	executor := NewExecutor(&fakeBudgetStore{}, &fakeRecordStore{})

	result := executor.Execute(context.Background(), pendingAction(models.ActionTypeDeleteBudget, map[string]string{
		"name": "Fantôme",
	}), uuid.New())

	if result.Success {
		t.Fatal("expected failure for unknown budget")
	}
}

// TestExecuteModifyBudgetNotImplemented checks the deterministic gap result.
func TestExecuteModifyBudgetNotImplemented(t *testing.T) {
	executor := NewExecutor(&fakeBudgetStore{}, &fakeRecordStore{})
	action := pendingAction(models.ActionTypeModifyBudget, map[string]string{"name": "Courses"})

	first := executor.Execute(context.Background(), action, uuid.New())
	second := executor.Execute(context.Background(), action, uuid.New())

	if first.Success || second.Success {
		t.Fatal("expected modify_budget to fail")
	}
	if first.Message != second.Message || first.Error != second.Error {
		t.Fatal("expected deterministic not-implemented result")
	}
}

// TestExecuteStoreFailureConverted checks that a store error becomes a
// structured failure instead of propagating.
func TestExecuteStoreFailureConverted(t *testing.T) {
	executor := NewExecutor(&fakeBudgetStore{listErr: errors.New("connection reset")}, &fakeRecordStore{})

	result := executor.Execute(context.Background(), pendingAction(models.ActionTypeCreateBudget, map[string]string{
		"name": "Loisirs",
	}), uuid.New())

	if result.Success {
		t.Fatal("expected failure on store error")
	}
	if result.Error != "connection reset" {
		t.Fatalf("expected raw error captured, got %q", result.Error)
	}
	if result.Message == "" {
		t.Fatal("expected a user-facing message")
	}
}
