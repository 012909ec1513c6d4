package agent

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/models"
)

// ErrNoBudgets is returned when an expense or income has no budget to land
// in because the user has none.
var ErrNoBudgets = errors.New("user has no budgets")

// ActionResult is the structured outcome of one executed action. Store
// failures are converted into a failed result, never propagated as a raw
// error to the chat surface.
type ActionResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// BudgetStore is the mutation entrypoint for budgets. The executor is the
// only agent component allowed to trigger mutations.
type BudgetStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Budget, error)
	Create(ctx context.Context, userID uuid.UUID, name string, budgetType models.BudgetType, amount *float64) (models.Budget, error)
	Delete(ctx context.Context, userID, budgetID uuid.UUID) error
}

// RecordStore creates expense and income records, and removes them when
// their budget is deleted.
type RecordStore interface {
	Create(ctx context.Context, record models.Record) (models.Record, error)
	DeleteByBudget(ctx context.Context, userID, budgetID uuid.UUID, kind models.RecordKind) error
}

type actionSchema struct {
	required []string
	optional []string
}

// actionSchemas declares the parameter contract per action type, checked at
// parse time by the response processor and again before execution.
var actionSchemas = map[models.ActionType]actionSchema{
	models.ActionTypeCreateBudget: {required: []string{"name"}, optional: []string{"amount", "type"}},
	models.ActionTypeAddExpense:   {required: []string{"name", "amount"}, optional: []string{"budget"}},
	models.ActionTypeAddIncome:    {required: []string{"name", "amount"}, optional: []string{"budget"}},
	models.ActionTypeModifyBudget: {required: []string{"name"}, optional: []string{"amount"}},
	models.ActionTypeDeleteBudget: {required: []string{}, optional: []string{"id", "name"}},
}

func hasRequiredParams(actionType models.ActionType, params map[string]string) bool {
	schema, ok := actionSchemas[actionType]
	if !ok {
		return false
	}
	for _, key := range schema.required {
		if strings.TrimSpace(params[key]) == "" {
			return false
		}
	}
	return true
}

// Executor validates and performs confirmed actions against the stores.
type Executor struct {
	budgets BudgetStore
	records RecordStore
	now     func() time.Time
}

// NewExecutor builds an executor over the given stores.
func NewExecutor(budgets BudgetStore, records RecordStore) *Executor {
	return &Executor{budgets: budgets, records: records, now: time.Now}
}

// Execute runs one confirmed action and reports a structured result. Every
// failure path resolves to Success=false with a user-facing message.
func (e *Executor) Execute(ctx context.Context, action models.Action, userID uuid.UUID) ActionResult {
	if !hasRequiredParams(action.Type, action.Parameters) {
		return failure("Paramètres manquants pour cette action.", errors.New("missing required parameters"))
	}

	switch action.Type {
	case models.ActionTypeCreateBudget:
		return e.createBudget(ctx, action.Parameters, userID)
	case models.ActionTypeAddExpense:
		return e.addRecord(ctx, action.Parameters, userID, models.RecordKindExpense)
	case models.ActionTypeAddIncome:
		return e.addRecord(ctx, action.Parameters, userID, models.RecordKindIncome)
	case models.ActionTypeDeleteBudget:
		return e.deleteBudget(ctx, action.Parameters, userID)
	case models.ActionTypeModifyBudget:
		// Known gap: budget modification has no execution path yet. The
		// action type stays recognized so the model can propose it, but
		// execution always reports the same failure.
		return failure("La modification de budget n'est pas encore disponible.", errors.New("modify_budget not implemented"))
	default:
		return failure("Action inconnue.", errors.New("unknown action type"))
	}
}

func (e *Executor) createBudget(ctx context.Context, params map[string]string, userID uuid.UUID) ActionResult {
	name := strings.TrimSpace(params["name"])

	existing, err := e.budgets.ListByUser(ctx, userID)
	if err != nil {
		return failure("Impossible de vérifier les budgets existants.", err)
	}
	for _, budget := range existing {
		if strings.EqualFold(budget.Name, name) {
			return failure("Un budget \""+budget.Name+"\" existe déjà.", errors.New("duplicate budget name"))
		}
	}

	budgetType := models.BudgetTypeTracking
	switch strings.ToLower(strings.TrimSpace(params["type"])) {
	case string(models.BudgetTypeCapped):
		budgetType = models.BudgetTypeCapped
	case string(models.BudgetTypeSavings):
		budgetType = models.BudgetTypeSavings
	case string(models.BudgetTypeTracking):
		budgetType = models.BudgetTypeTracking
	default:
		if params["amount"] != "" {
			budgetType = models.BudgetTypeCapped
		}
	}

	var amount *float64
	if budgetType != models.BudgetTypeTracking {
		value, err := parseAmount(params["amount"])
		if err != nil {
			return failure("Montant invalide pour ce budget.", err)
		}
		amount = &value
	}

	budget, err := e.budgets.Create(ctx, userID, name, budgetType, amount)
	if err != nil {
		return failure("La création du budget a échoué.", err)
	}

	return ActionResult{
		Success: true,
		Message: "Budget \"" + budget.Name + "\" créé.",
		Data:    budget,
	}
}

func (e *Executor) addRecord(ctx context.Context, params map[string]string, userID uuid.UUID, kind models.RecordKind) ActionResult {
	amount, err := parseAmount(params["amount"])
	if err != nil {
		return failure("Montant invalide.", err)
	}

	budgets, err := e.budgets.ListByUser(ctx, userID)
	if err != nil {
		return failure("Impossible de lire les budgets.", err)
	}
	if len(budgets) == 0 {
		return failure("Créez d'abord un budget avant d'ajouter des opérations.", ErrNoBudgets)
	}

	target := budgets[0]
	if ref := strings.TrimSpace(params["budget"]); ref != "" {
		resolved, ok := resolveBudget(budgets, ref)
		if !ok {
			return failure("Budget \""+ref+"\" introuvable.", errors.New("budget not found"))
		}
		target = resolved
	}

	record, err := e.records.Create(ctx, models.Record{
		UserID:   userID,
		BudgetID: target.ID,
		Kind:     kind,
		Name:     strings.TrimSpace(params["name"]),
		Amount:   amount,
		Date:     e.now(),
	})
	if err != nil {
		return failure("L'enregistrement de l'opération a échoué.", err)
	}

	label := "Dépense"
	if kind == models.RecordKindIncome {
		label = "Revenu"
	}
	return ActionResult{
		Success: true,
		Message: label + " \"" + record.Name + "\" ajouté au budget \"" + target.Name + "\".",
		Data:    record,
	}
}

func (e *Executor) deleteBudget(ctx context.Context, params map[string]string, userID uuid.UUID) ActionResult {
	budgets, err := e.budgets.ListByUser(ctx, userID)
	if err != nil {
		return failure("Impossible de lire les budgets.", err)
	}

	ref := strings.TrimSpace(params["id"])
	if ref == "" {
		ref = strings.TrimSpace(params["name"])
	}
	if ref == "" {
		return failure("Précisez le budget à supprimer.", errors.New("missing budget reference"))
	}

	target, ok := resolveBudget(budgets, ref)
	if !ok {
		return failure("Budget \""+ref+"\" introuvable.", errors.New("budget not found"))
	}

	// Records go first, expenses then incomes, so a deleted budget never
	// leaves operations behind under the fallback category.
	if err := e.records.DeleteByBudget(ctx, userID, target.ID, models.RecordKindExpense); err != nil {
		return failure("La suppression du budget a échoué.", err)
	}
	if err := e.records.DeleteByBudget(ctx, userID, target.ID, models.RecordKindIncome); err != nil {
		return failure("La suppression du budget a échoué.", err)
	}
	if err := e.budgets.Delete(ctx, userID, target.ID); err != nil {
		return failure("La suppression du budget a échoué.", err)
	}

	return ActionResult{
		Success: true,
		Message: "Budget \"" + target.Name + "\" supprimé.",
	}
}

// resolveBudget matches by id first, then by case-insensitive name.
func resolveBudget(budgets []models.Budget, ref string) (models.Budget, bool) {
	if id, err := uuid.Parse(ref); err == nil {
		for _, budget := range budgets {
			if budget.ID == id {
				return budget, true
			}
		}
	}
	for _, budget := range budgets {
		if strings.EqualFold(budget.Name, ref) {
			return budget, true
		}
	}
	return models.Budget{}, false
}

func parseAmount(value string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	amount, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, errors.New("amount must be positive")
	}
	return amount, nil
}

func failure(message string, err error) ActionResult {
	return ActionResult{Success: false, Message: message, Error: err.Error()}
}
