package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/backend/internal/auth"
	"example.com/finance-tracker/backend/internal/repository"
)

const monthLayout = "2006-01"

type StatsHandler struct {
	Stats *repository.StatsRepository
}

// NewStatsHandler builds the statistics handler.
func NewStatsHandler(stats *repository.StatsRepository) *StatsHandler {
	return &StatsHandler{Stats: stats}
}

type OverviewResponse struct {
	TotalBudgets  int     `json:"total_budgets"`
	MonthExpenses float64 `json:"month_expenses"`
	MonthIncomes  float64 `json:"month_incomes"`
	Balance       float64 `json:"balance"`
}

type MonthlyComparisonResponse struct {
	Month    string  `json:"month"`
	Expenses float64 `json:"expenses"`
	Incomes  float64 `json:"incomes"`
}

// Overview returns aggregate numbers for the user.
func (h *StatsHandler) Overview(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	stats, err := h.Stats.Overview(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, OverviewResponse{
		TotalBudgets:  stats.TotalBudgets,
		MonthExpenses: stats.MonthExpenses,
		MonthIncomes:  stats.MonthIncomes,
		Balance:       stats.Balance,
	})
}

// Monthly returns per-month expense and income totals. The months query
// parameter defaults to 6.
func (h *StatsHandler) Monthly(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	months := 6
	if raw := c.QueryParam("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 36 {
			return badRequest(c, "months must be between 1 and 36")
		}
		months = parsed
	}

	items, err := h.Stats.MonthlyComparison(c.Request().Context(), userID, months)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid months")
		}
		return serverError(c)
	}

	response := make([]MonthlyComparisonResponse, 0, len(items))
	for _, item := range items {
		response = append(response, MonthlyComparisonResponse{
			Month:    item.Month.Format(monthLayout),
			Expenses: item.Expenses,
			Incomes:  item.Incomes,
		})
	}

	return c.JSON(http.StatusOK, map[string][]MonthlyComparisonResponse{"months": response})
}
