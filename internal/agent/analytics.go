package agent

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/models"
)

// Pure aggregation helpers over budget records. Everything in this file is
// deterministic for a fixed input; no clock reads, no I/O.

func sumAmounts(records []models.Record) float64 {
	var total float64
	for _, record := range records {
		total += record.Amount
	}
	return total
}

// recordsInMonth filters records by (month, year) equality on their date.
func recordsInMonth(records []models.Record, year int, month time.Month) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, record := range records {
		if record.Date.Year() == year && record.Date.Month() == month {
			out = append(out, record)
		}
	}
	return out
}

func recordsForBudget(records []models.Record, budgetID uuid.UUID) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, record := range records {
		if record.BudgetID == budgetID {
			out = append(out, record)
		}
	}
	return out
}

// categoryTotals sums amounts per budget name. Records whose budget cannot be
// resolved fall into the sentinel category.
func categoryTotals(records []models.Record, budgetNames map[uuid.UUID]string) map[string]float64 {
	totals := make(map[string]float64)
	for _, record := range records {
		name, ok := budgetNames[record.BudgetID]
		if !ok {
			name = models.FallbackCategory
		}
		totals[name] += record.Amount
	}
	return totals
}

// topRecords returns the n highest amounts, descending. The sort is stable so
// ties keep their original order.
func topRecords(records []models.Record, n int) []models.Record {
	sorted := make([]models.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount > sorted[j].Amount
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// dominantCategory returns the category with the highest summed amount. Ties
// keep the first-encountered category in record order.
func dominantCategory(records []models.Record, budgetNames map[uuid.UUID]string) string {
	totals := make(map[string]float64)
	order := make([]string, 0)

	for _, record := range records {
		name, ok := budgetNames[record.BudgetID]
		if !ok {
			name = models.FallbackCategory
		}
		if _, seen := totals[name]; !seen {
			order = append(order, name)
		}
		totals[name] += record.Amount
	}

	best := ""
	bestTotal := 0.0
	for _, name := range order {
		if totals[name] > bestTotal {
			best = name
			bestTotal = totals[name]
		}
	}
	return best
}

// trendPercentage compares the current month total to the average of the
// historical totals. A zero historical average yields a flat trend.
func trendPercentage(currentTotal float64, historicalTotals []float64) (overall string, percentage int) {
	if len(historicalTotals) == 0 {
		return TrendStable, 0
	}

	var sum float64
	for _, total := range historicalTotals {
		sum += total
	}
	average := sum / float64(len(historicalTotals))
	if average == 0 {
		return TrendStable, 0
	}

	percentage = roundToInt((currentTotal - average) / average * 100)
	switch {
	case percentage > 10:
		return TrendIncreasing, percentage
	case percentage < -10:
		return TrendDecreasing, percentage
	default:
		return TrendStable, percentage
	}
}

// savingsProgress computes the lifetime net saved toward a savings goal.
// Savings are cumulative: month boundaries do not apply here, unlike capped
// budgets.
func savingsProgress(goal float64, allIncomes, allExpenses []models.Record) (netSaved float64, percentage int) {
	netSaved = sumAmounts(allIncomes) - sumAmounts(allExpenses)
	if goal <= 0 {
		return netSaved, 0
	}
	return netSaved, roundToInt(netSaved / goal * 100)
}

// projectMonthEnd extrapolates a month-end total from the current run rate.
func projectMonthEnd(totalSoFar float64, dayOfMonth, daysInMonth int) float64 {
	if dayOfMonth <= 0 {
		return totalSoFar
	}
	return totalSoFar / float64(dayOfMonth) * float64(daysInMonth)
}

// recurringExpenses lists expense names seen in at least two distinct months
// of the window ending at now (current month plus the three before it).
func recurringExpenses(expenses []models.Record, now time.Time) []string {
	start := monthStart(now).AddDate(0, -3, 0)
	months := make(map[string]map[string]struct{})
	display := make(map[string]string)
	order := make([]string, 0)

	for _, expense := range expenses {
		if expense.Date.Before(start) || expense.Date.After(now) {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(expense.Name))
		if key == "" {
			continue
		}
		if _, seen := months[key]; !seen {
			months[key] = make(map[string]struct{})
			display[key] = strings.TrimSpace(expense.Name)
			order = append(order, key)
		}
		months[key][expense.Date.Format("2006-01")] = struct{}{}
	}

	out := make([]string, 0)
	for _, key := range order {
		if len(months[key]) >= 2 {
			out = append(out, display[key])
		}
	}
	return out
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func daysInMonth(t time.Time) int {
	return monthStart(t).AddDate(0, 1, -1).Day()
}

func roundToInt(value float64) int {
	return int(math.Round(value))
}
