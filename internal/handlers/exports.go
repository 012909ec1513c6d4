package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/backend/internal/auth"
	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/repository"
	"example.com/finance-tracker/backend/internal/store"
)

const (
	exportTypeBudgets  = "budgets"
	exportTypeExpenses = "expenses"
	exportTypeIncomes  = "incomes"
)

const timeLayout = time.RFC3339

// ExportHandler serves full-ledger exports in JSON and CSV.
type ExportHandler struct {
	Budgets *repository.BudgetRepository
	Records *repository.RecordRepository
}

// NewExportHandler builds the export handler.
func NewExportHandler(budgets *repository.BudgetRepository, records *repository.RecordRepository) *ExportHandler {
	return &ExportHandler{Budgets: budgets, Records: records}
}

type ExportResponse struct {
	Budgets  []models.Budget `json:"budgets"`
	Expenses []models.Record `json:"expenses"`
	Incomes  []models.Record `json:"incomes"`
}

// ExportJSON downloads the user's full ledger as a JSON file.
func (h *ExportHandler) ExportJSON(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	snapshot, err := h.loadSnapshot(c)
	if err != nil {
		return serverError(c)
	}

	filename := "finances-" + userID.String() + ".json"
	c.Response().Header().Set(echo.HeaderContentType, "application/json")
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
	return c.JSON(http.StatusOK, ExportResponse{
		Budgets:  snapshot.Budgets,
		Expenses: snapshot.Expenses,
		Incomes:  snapshot.Incomes,
	})
}

// ExportCSV downloads one ledger section as a CSV file.
func (h *ExportHandler) ExportCSV(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	exportType := strings.ToLower(strings.TrimSpace(c.QueryParam("type")))
	if exportType == "" {
		exportType = exportTypeExpenses
	}

	snapshot, err := h.loadSnapshot(c)
	if err != nil {
		return serverError(c)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	switch exportType {
	case exportTypeBudgets:
		err = writeBudgetsCSV(writer, snapshot.Budgets)
	case exportTypeExpenses:
		err = writeRecordsCSV(writer, snapshot.Expenses, snapshot)
	case exportTypeIncomes:
		err = writeRecordsCSV(writer, snapshot.Incomes, snapshot)
	default:
		return badRequest(c, "invalid export type")
	}
	if err != nil {
		return serverError(c)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return serverError(c)
	}

	filename := "finances-" + userID.String() + "-" + exportType + ".csv"
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *ExportHandler) loadSnapshot(c echo.Context) (store.Snapshot, error) {
	userID, _ := auth.UserIDFromContext(c)
	ctx := c.Request().Context()

	budgets, err := h.Budgets.ListByUser(ctx, userID)
	if err != nil {
		return store.Snapshot{}, err
	}

	expenses, err := h.Records.ListByUser(ctx, userID, models.RecordKindExpense)
	if err != nil {
		return store.Snapshot{}, err
	}

	incomes, err := h.Records.ListByUser(ctx, userID, models.RecordKindIncome)
	if err != nil {
		return store.Snapshot{}, err
	}

	return store.Snapshot{Budgets: budgets, Expenses: expenses, Incomes: incomes}, nil
}

func writeBudgetsCSV(writer *csv.Writer, budgets []models.Budget) error {
	header := []string{"id", "name", "type", "amount", "created_at"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, budget := range budgets {
		amount := ""
		if budget.Amount != nil {
			amount = formatAmount(*budget.Amount)
		}
		record := []string{
			budget.ID.String(),
			budget.Name,
			string(budget.Type),
			amount,
			budget.CreatedAt.Format(timeLayout),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

func writeRecordsCSV(writer *csv.Writer, records []models.Record, snapshot store.Snapshot) error {
	header := []string{"id", "budget", "kind", "name", "amount", "date"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, record := range records {
		budgetName := models.FallbackCategory
		if budget, ok := snapshot.BudgetByID(record.BudgetID); ok {
			budgetName = budget.Name
		}
		row := []string{
			record.ID.String(),
			budgetName,
			string(record.Kind),
			record.Name,
			formatAmount(record.Amount),
			record.Date.Format(dateLayout),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func formatAmount(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}
