package agent

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/store"
)

const (
	BudgetStatusOK       = "ok"
	BudgetStatusWarning  = "warning"
	BudgetStatusExceeded = "exceeded"

	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"

	warningThreshold = 80
	overspendFactor  = 1.2
	topRecordCount   = 5
	historyMonths    = 3
)

// BudgetSummary is the per-budget slice of a financial context. Spent and
// Added are month-scoped for capped and tracking budgets; savings budgets
// report lifetime figures instead.
type BudgetSummary struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Type       models.BudgetType `json:"type"`
	Amount     float64           `json:"amount"`
	Spent      float64           `json:"spent"`
	Added      float64           `json:"added"`
	Remaining  float64           `json:"remaining"`
	Percentage int               `json:"percentage"`
	Status     string            `json:"status"`
}

type RecordSummary struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
}

type MonthSummary struct {
	Total         float64            `json:"total"`
	Count         int                `json:"count"`
	ByCategory    map[string]float64 `json:"by_category"`
	Top           []RecordSummary    `json:"top"`
	AveragePerDay float64            `json:"average_per_day"`
}

type MonthHistory struct {
	Label       string  `json:"label"`
	Expenses    float64 `json:"expenses"`
	Incomes     float64 `json:"incomes"`
	Balance     float64 `json:"balance"`
	TopCategory string  `json:"top_category"`
}

type TrendAnalysis struct {
	Overall    string         `json:"overall"`
	Percentage int            `json:"percentage"`
	ByCategory map[string]int `json:"by_category,omitempty"`
}

type Alert struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// FinancialContext is the aggregated picture of a user's finances, rebuilt
// from a fresh snapshot before every grounded agent reply. It is never
// persisted.
type FinancialContext struct {
	CurrentDate            time.Time       `json:"current_date"`
	DayOfMonth             int             `json:"day_of_month"`
	DaysInMonth            int             `json:"days_in_month"`
	Budgets                []BudgetSummary `json:"budgets"`
	Expenses               MonthSummary    `json:"expenses"`
	Incomes                MonthSummary    `json:"incomes"`
	History                []MonthHistory  `json:"history"`
	Trend                  TrendAnalysis   `json:"trend"`
	Alerts                 []Alert         `json:"alerts"`
	Recurring              []string        `json:"recurring,omitempty"`
	ProjectedMonthExpenses float64         `json:"projected_month_expenses"`
}

// ContextBuilder assembles financial contexts. The clock is injectable so
// builds are reproducible in tests.
type ContextBuilder struct {
	Now func() time.Time
}

// NewContextBuilder returns a builder on the real clock.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{Now: time.Now}
}

// Build computes the full financial context from a snapshot. It is a pure
// function of the snapshot and the clock.
func (b *ContextBuilder) Build(snapshot store.Snapshot) FinancialContext {
	now := b.Now()
	year, month := now.Year(), now.Month()

	names := snapshot.BudgetNames()
	monthExpenses := recordsInMonth(snapshot.Expenses, year, month)
	monthIncomes := recordsInMonth(snapshot.Incomes, year, month)

	context := FinancialContext{
		CurrentDate: now,
		DayOfMonth:  now.Day(),
		DaysInMonth: daysInMonth(now),
		Expenses:    buildMonthSummary(monthExpenses, names, now.Day()),
		Incomes:     buildMonthSummary(monthIncomes, names, now.Day()),
	}

	context.Budgets = make([]BudgetSummary, 0, len(snapshot.Budgets))
	for _, budget := range snapshot.Budgets {
		context.Budgets = append(context.Budgets, buildBudgetSummary(budget, snapshot, monthExpenses, monthIncomes))
	}

	context.History = buildHistory(snapshot, names, now)

	historicalTotals := make([]float64, 0, len(context.History))
	for _, past := range context.History {
		historicalTotals = append(historicalTotals, past.Expenses)
	}
	overall, percentage := trendPercentage(context.Expenses.Total, historicalTotals)
	context.Trend = TrendAnalysis{
		Overall:    overall,
		Percentage: percentage,
		ByCategory: buildCategoryTrends(snapshot, names, now),
	}

	context.ProjectedMonthExpenses = projectMonthEnd(context.Expenses.Total, context.DayOfMonth, context.DaysInMonth)
	context.Recurring = recurringExpenses(snapshot.Expenses, now)
	context.Alerts = buildAlerts(context)

	return context
}

func buildBudgetSummary(budget models.Budget, snapshot store.Snapshot, monthExpenses, monthIncomes []models.Record) BudgetSummary {
	summary := BudgetSummary{
		ID:     budget.ID,
		Name:   budget.Name,
		Type:   budget.Type,
		Status: BudgetStatusOK,
	}
	if budget.Amount != nil {
		summary.Amount = *budget.Amount
	}

	if budget.Type == models.BudgetTypeSavings {
		// Savings goals are cumulative: progress is lifetime incomes minus
		// lifetime expenses, not month-scoped.
		allExpenses := recordsForBudget(snapshot.Expenses, budget.ID)
		allIncomes := recordsForBudget(snapshot.Incomes, budget.ID)
		netSaved, percentage := savingsProgress(summary.Amount, allIncomes, allExpenses)
		summary.Spent = sumAmounts(allExpenses)
		summary.Added = sumAmounts(allIncomes)
		summary.Remaining = summary.Amount - netSaved
		summary.Percentage = percentage
		return summary
	}

	summary.Spent = sumAmounts(recordsForBudget(monthExpenses, budget.ID))
	summary.Added = sumAmounts(recordsForBudget(monthIncomes, budget.ID))

	if budget.Type != models.BudgetTypeCapped {
		return summary
	}

	totalAvailable := summary.Amount + summary.Added
	summary.Remaining = totalAvailable - summary.Spent
	if totalAvailable == 0 {
		return summary
	}

	summary.Percentage = roundToInt(summary.Spent / totalAvailable * 100)
	switch {
	case summary.Remaining < 0:
		summary.Status = BudgetStatusExceeded
	case summary.Percentage >= warningThreshold:
		summary.Status = BudgetStatusWarning
	}
	return summary
}

func buildMonthSummary(records []models.Record, names map[uuid.UUID]string, dayOfMonth int) MonthSummary {
	summary := MonthSummary{
		Total:      sumAmounts(records),
		Count:      len(records),
		ByCategory: categoryTotals(records, names),
		Top:        make([]RecordSummary, 0, topRecordCount),
	}

	for _, record := range topRecords(records, topRecordCount) {
		category, ok := names[record.BudgetID]
		if !ok {
			category = models.FallbackCategory
		}
		summary.Top = append(summary.Top, RecordSummary{
			Name:     record.Name,
			Amount:   record.Amount,
			Category: category,
		})
	}

	if dayOfMonth > 0 {
		summary.AveragePerDay = summary.Total / float64(dayOfMonth)
	}
	return summary
}

// buildHistory covers the three calendar months strictly before the current
// one, most recent first.
func buildHistory(snapshot store.Snapshot, names map[uuid.UUID]string, now time.Time) []MonthHistory {
	history := make([]MonthHistory, 0, historyMonths)
	for offset := 1; offset <= historyMonths; offset++ {
		target := monthStart(now).AddDate(0, -offset, 0)
		expenses := recordsInMonth(snapshot.Expenses, target.Year(), target.Month())
		incomes := recordsInMonth(snapshot.Incomes, target.Year(), target.Month())

		expenseTotal := sumAmounts(expenses)
		incomeTotal := sumAmounts(incomes)
		history = append(history, MonthHistory{
			Label:       target.Format("2006-01"),
			Expenses:    expenseTotal,
			Incomes:     incomeTotal,
			Balance:     incomeTotal - expenseTotal,
			TopCategory: dominantCategory(expenses, names),
		})
	}
	return history
}

func buildCategoryTrends(snapshot store.Snapshot, names map[uuid.UUID]string, now time.Time) map[string]int {
	current := categoryTotals(recordsInMonth(snapshot.Expenses, now.Year(), now.Month()), names)
	if len(current) == 0 {
		return nil
	}

	historical := make(map[string][]float64)
	for offset := 1; offset <= historyMonths; offset++ {
		target := monthStart(now).AddDate(0, -offset, 0)
		for name, total := range categoryTotals(recordsInMonth(snapshot.Expenses, target.Year(), target.Month()), names) {
			historical[name] = append(historical[name], total)
		}
	}

	trends := make(map[string]int)
	for name, total := range current {
		if _, percentage := trendPercentage(total, historical[name]); percentage != 0 {
			trends[name] = percentage
		}
	}
	if len(trends) == 0 {
		return nil
	}
	return trends
}

func buildAlerts(context FinancialContext) []Alert {
	alerts := make([]Alert, 0)
	var totalCapped float64

	for _, budget := range context.Budgets {
		if budget.Type == models.BudgetTypeCapped {
			totalCapped += budget.Amount
		}

		switch budget.Status {
		case BudgetStatusExceeded:
			alerts = append(alerts, Alert{
				Severity: "error",
				Message:  fmt.Sprintf("Budget \"%s\" dépassé de %.2f€", budget.Name, -budget.Remaining),
			})
		case BudgetStatusWarning:
			alerts = append(alerts, Alert{
				Severity: "warning",
				Message:  fmt.Sprintf("Budget \"%s\" utilisé à %d%%", budget.Name, budget.Percentage),
			})
		}

		if budget.Type == models.BudgetTypeSavings && budget.Amount > 0 {
			switch {
			case budget.Percentage >= 100:
				alerts = append(alerts, Alert{
					Severity: "info",
					Message:  fmt.Sprintf("Objectif d'épargne \"%s\" atteint, bravo !", budget.Name),
				})
			case budget.Percentage >= 50:
				// 50% exactly lands here, not in the completion branch.
				alerts = append(alerts, Alert{
					Severity: "info",
					Message:  fmt.Sprintf("Épargne \"%s\" à mi-chemin de l'objectif (%d%%)", budget.Name, budget.Percentage),
				})
			}
		}
	}

	if totalCapped > 0 && context.DaysInMonth > 0 {
		monthProgress := float64(context.DayOfMonth) / float64(context.DaysInMonth)
		if context.Expenses.Total > totalCapped*monthProgress*overspendFactor {
			alerts = append(alerts, Alert{
				Severity: "warning",
				Message:  "Rythme de dépenses élevé par rapport à l'avancement du mois",
			})
		}
	}

	return alerts
}
