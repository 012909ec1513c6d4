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

const dateLayout = "2006-01-02"

// RecordHandler serves expenses and incomes. The kind is fixed per instance
// so the same handler code backs both route groups.
type RecordHandler struct {
	Kind     models.RecordKind
	Records  *repository.RecordRepository
	Budgets  *repository.BudgetRepository
	Ledger   *store.Ledger
	Notifier *notifications.Hub
}

// NewRecordHandler builds a record handler for one kind.
func NewRecordHandler(kind models.RecordKind, records *repository.RecordRepository, budgets *repository.BudgetRepository, ledger *store.Ledger, notifier *notifications.Hub) *RecordHandler {
	return &RecordHandler{Kind: kind, Records: records, Budgets: budgets, Ledger: ledger, Notifier: notifier}
}

type RecordRequest struct {
	BudgetID string  `json:"budget" validate:"required,uuid"`
	Name     string  `json:"name" validate:"required,max=200"`
	Amount   float64 `json:"amount" validate:"gt=0"`
	Date     string  `json:"date" validate:"omitempty"`
}

type RecordResponse struct {
	ID       uuid.UUID         `json:"id"`
	BudgetID uuid.UUID         `json:"budget"`
	Kind     models.RecordKind `json:"kind"`
	Name     string            `json:"name"`
	Amount   float64           `json:"amount"`
	Date     string            `json:"date"`
}

// List returns the user's records of this handler's kind.
func (h *RecordHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	records, err := h.Records.ListByUser(c.Request().Context(), userID, h.Kind)
	if err != nil {
		return serverError(c)
	}

	response := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		response = append(response, toRecordResponse(record))
	}

	return c.JSON(http.StatusOK, map[string][]RecordResponse{"records": response})
}

// Create adds a record to a budget the user owns. The date defaults to today.
func (h *RecordHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req RecordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	budgetID, err := uuid.Parse(req.BudgetID)
	if err != nil {
		return badRequest(c, "invalid budget id")
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		date, err = time.Parse(dateLayout, req.Date)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
	}

	ctx := c.Request().Context()

	if _, err := h.Budgets.GetByID(ctx, userID, budgetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "budget not found")
		}
		return serverError(c)
	}

	record, err := h.Records.Create(ctx, models.Record{
		UserID:   userID,
		BudgetID: budgetID,
		Kind:     h.Kind,
		Name:     strings.TrimSpace(req.Name),
		Amount:   req.Amount,
		Date:     date,
	})
	if err != nil {
		return serverError(c)
	}

	h.Ledger.Invalidate(userID)
	h.Notifier.Publish(userID, notifications.Event{
		Type: notifications.EventBudgetUpdated,
		Data: map[string]any{"budget_id": budgetID, "operation": "record_added"},
	})

	return c.JSON(http.StatusCreated, toRecordResponse(record))
}

// Delete removes one record.
func (h *RecordHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid record id")
	}

	if err := h.Records.Delete(c.Request().Context(), userID, recordID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "record not found")
		}
		return serverError(c)
	}

	h.Ledger.Invalidate(userID)

	return c.NoContent(http.StatusNoContent)
}

func toRecordResponse(record models.Record) RecordResponse {
	return RecordResponse{
		ID:       record.ID,
		BudgetID: record.BudgetID,
		Kind:     record.Kind,
		Name:     record.Name,
		Amount:   record.Amount,
		Date:     record.Date.Format(dateLayout),
	}
}
