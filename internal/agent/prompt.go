package agent

import (
	"fmt"
	"strings"
)

// SystemPrompt is the fixed instruction sent with every grounded request.
// The action micro-syntax described here is the only channel through which
// the model may propose mutations; everything else is free text.
const SystemPrompt = `Tu es un assistant financier personnel. Tu réponds en français, de façon concise et concrète, uniquement à partir des données financières fournies.

Règles :
- Ne jamais inventer de chiffres : utilise uniquement les données du contexte.
- Pour proposer une action, insère une directive au format exact [ACTION:type:clé1=valeur1,clé2=valeur2] dans ta réponse.
- Types d'action autorisés : create_budget, add_expense, add_income, modify_budget, delete_budget.
- Ne propose jamais plus d'une action par réponse et n'exécute rien toi-même : chaque action sera confirmée par l'utilisateur.
- Si la question sort du domaine financier, indique poliment que tu ne traites que les finances personnelles.`

const noAlerts = "Aucune alerte"

func statusGlyph(status string) string {
	switch status {
	case BudgetStatusExceeded:
		return "🔴"
	case BudgetStatusWarning:
		return "⚠️"
	default:
		return "✅"
	}
}

// BuildPrompt renders the financial context, the recent conversation and the
// user question into a single prompt block. Section order and headers are
// fixed so prompts are reproducible for a given context.
func BuildPrompt(context FinancialContext, userMessage, historyText string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Date\n%s (jour %d/%d)\n\n",
		context.CurrentDate.Format("2006-01-02"), context.DayOfMonth, context.DaysInMonth)

	b.WriteString("## Budgets\n")
	if len(context.Budgets) == 0 {
		b.WriteString("Aucun budget défini\n")
	}
	for _, budget := range context.Budgets {
		fmt.Fprintf(&b, "%s %s (%s) : dépensé %.2f€, ajouté %.2f€, restant %.2f€ (%d%%)\n",
			statusGlyph(budget.Status), budget.Name, budget.Type,
			budget.Spent, budget.Added, budget.Remaining, budget.Percentage)
	}
	b.WriteString("\n")

	writeMonthSection(&b, "## Dépenses du mois", context.Expenses)
	writeMonthSection(&b, "## Revenus du mois", context.Incomes)

	b.WriteString("## Historique (3 derniers mois)\n")
	for _, month := range context.History {
		fmt.Fprintf(&b, "- %s : dépenses %.2f€, revenus %.2f€, solde %.2f€", month.Label, month.Expenses, month.Incomes, month.Balance)
		if month.TopCategory != "" {
			fmt.Fprintf(&b, ", principale catégorie : %s", month.TopCategory)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Tendance\n%s (%+d%% vs moyenne historique)\n", context.Trend.Overall, context.Trend.Percentage)
	fmt.Fprintf(&b, "Projection fin de mois : %.2f€ de dépenses\n\n", context.ProjectedMonthExpenses)

	b.WriteString("## Alertes\n")
	if len(context.Alerts) == 0 {
		b.WriteString(noAlerts + "\n")
	}
	for _, alert := range context.Alerts {
		fmt.Fprintf(&b, "- %s\n", alert.Message)
	}
	b.WriteString("\n")

	if historyText != "" {
		fmt.Fprintf(&b, "## Conversation récente\n%s\n\n", historyText)
	}

	fmt.Fprintf(&b, "## Question\n%s", userMessage)
	return b.String()
}

func writeMonthSection(b *strings.Builder, header string, summary MonthSummary) {
	fmt.Fprintf(b, "%s\nTotal : %.2f€ (%d opérations, %.2f€/jour)\n", header, summary.Total, summary.Count, summary.AveragePerDay)
	for _, top := range summary.Top {
		fmt.Fprintf(b, "  - %s (%s) : %.2f€\n", top.Name, top.Category, top.Amount)
	}
	b.WriteString("\n")
}
