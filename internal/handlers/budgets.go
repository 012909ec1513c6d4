package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/backend/internal/auth"
	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/notifications"
	"example.com/finance-tracker/backend/internal/repository"
	"example.com/finance-tracker/backend/internal/store"
)

type BudgetHandler struct {
	Budgets  *repository.BudgetRepository
	Records  *repository.RecordRepository
	Ledger   *store.Ledger
	Notifier *notifications.Hub
}

// NewBudgetHandler builds the budget CRUD handler.
func NewBudgetHandler(budgets *repository.BudgetRepository, records *repository.RecordRepository, ledger *store.Ledger, notifier *notifications.Hub) *BudgetHandler {
	return &BudgetHandler{Budgets: budgets, Records: records, Ledger: ledger, Notifier: notifier}
}

type BudgetRequest struct {
	Name   string   `json:"name" validate:"required,max=100"`
	Type   string   `json:"type" validate:"omitempty,oneof=capped tracking savings"`
	Amount *float64 `json:"amount" validate:"omitempty,gt=0"`
}

type BudgetResponse struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Type      models.BudgetType `json:"type"`
	Amount    *float64          `json:"amount,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// List returns the user's budgets.
func (h *BudgetHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	budgets, err := h.Budgets.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	response := make([]BudgetResponse, 0, len(budgets))
	for _, budget := range budgets {
		response = append(response, toBudgetResponse(budget))
	}

	return c.JSON(http.StatusOK, map[string][]BudgetResponse{"budgets": response})
}

// Create adds a budget. The type defaults to tracking, or capped when an
// amount is provided without an explicit type.
func (h *BudgetHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req BudgetRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return badRequest(c, "name is required")
	}

	budgetType := models.BudgetType(req.Type)
	if budgetType == "" {
		budgetType = models.BudgetTypeTracking
		if req.Amount != nil {
			budgetType = models.BudgetTypeCapped
		}
	}

	amount := req.Amount
	if budgetType == models.BudgetTypeTracking {
		amount = nil
	} else if amount == nil {
		return badRequest(c, "amount is required for capped and savings budgets")
	}

	budget, err := h.Budgets.Create(c.Request().Context(), userID, name, budgetType, amount)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict(c, "budget already exists")
		}
		return serverError(c)
	}

	h.Ledger.Invalidate(userID)
	h.Notifier.Publish(userID, notifications.Event{
		Type: notifications.EventBudgetUpdated,
		Data: map[string]any{"budget_id": budget.ID, "operation": "created"},
	})

	return c.JSON(http.StatusCreated, toBudgetResponse(budget))
}

// Delete removes a budget with its records. Expenses go first, then incomes,
// then the budget itself.
func (h *BudgetHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	budgetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid budget id")
	}

	ctx := c.Request().Context()

	if _, err := h.Budgets.GetByID(ctx, userID, budgetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "budget not found")
		}
		return serverError(c)
	}

	if err := h.Records.DeleteByBudget(ctx, userID, budgetID, models.RecordKindExpense); err != nil {
		return serverError(c)
	}
	if err := h.Records.DeleteByBudget(ctx, userID, budgetID, models.RecordKindIncome); err != nil {
		return serverError(c)
	}
	if err := h.Budgets.Delete(ctx, userID, budgetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "budget not found")
		}
		return serverError(c)
	}

	h.Ledger.Invalidate(userID)
	h.Notifier.Publish(userID, notifications.Event{
		Type: notifications.EventBudgetUpdated,
		Data: map[string]any{"budget_id": budgetID, "operation": "deleted"},
	})

	return c.NoContent(http.StatusNoContent)
}

func toBudgetResponse(budget models.Budget) BudgetResponse {
	return BudgetResponse{
		ID:        budget.ID,
		Name:      budget.Name,
		Type:      budget.Type,
		Amount:    budget.Amount,
		CreatedAt: budget.CreatedAt,
	}
}
