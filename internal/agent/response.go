package agent

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"example.com/finance-tracker/backend/internal/models"
)

var (
	directivePattern = regexp.MustCompile(`\[ACTION:([^:]+):([^\]]+)\]`)
	boldPattern      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicPattern    = regexp.MustCompile(`\*(.+?)\*`)
	spacePattern     = regexp.MustCompile(`[ \t]{2,}`)
)

// Directive is one scanned action span from model output. Unrecognized types
// and schema violations keep Recognized=false: they are stripped from display
// and logged, but produce no user-facing action.
type Directive struct {
	Raw        string
	Type       models.ActionType
	Params     map[string]string
	Recognized bool
}

// ProcessedResponse carries the sanitized display text and the pending
// actions extracted from one model completion.
type ProcessedResponse struct {
	Text         string
	HTML         string
	Actions      []models.Action
	Unrecognized []Directive
}

// ResponseProcessor turns raw model text into display text plus confirmable
// actions. The id generator is injectable for deterministic tests.
type ResponseProcessor struct {
	NewID func() uuid.UUID
}

// NewResponseProcessor returns a processor using random uuids.
func NewResponseProcessor() *ResponseProcessor {
	return &ResponseProcessor{NewID: uuid.New}
}

// ScanDirectives finds every action span in the text, parses its parameter
// blob and validates it against the per-type schema. Malformed pairs or
// unknown types never fail the scan; they yield unrecognized spans.
func ScanDirectives(text string) []Directive {
	matches := directivePattern.FindAllStringSubmatch(text, -1)
	directives := make([]Directive, 0, len(matches))

	for _, match := range matches {
		directive := Directive{
			Raw:    match[0],
			Type:   models.ActionType(strings.TrimSpace(match[1])),
			Params: parseParams(match[2]),
		}
		directive.Recognized = models.KnownActionType(directive.Type) &&
			hasRequiredParams(directive.Type, directive.Params)
		directives = append(directives, directive)
	}
	return directives
}

// parseParams splits the blob on commas, then each pair on the first '='.
// A pair without '=' is dropped, never an error.
func parseParams(blob string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(blob, ",") {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		params[key] = value
	}
	return params
}

// Process extracts actions from raw model text and sanitizes the remainder
// for display. Every matched directive span is removed from the text,
// recognized or not, so the raw protocol never leaks to the user.
func (p *ResponseProcessor) Process(raw string) ProcessedResponse {
	response := ProcessedResponse{Actions: make([]models.Action, 0)}

	for _, directive := range ScanDirectives(raw) {
		if !directive.Recognized {
			response.Unrecognized = append(response.Unrecognized, directive)
			continue
		}

		response.Actions = append(response.Actions, models.Action{
			ID:                   p.NewID(),
			Type:                 directive.Type,
			Parameters:           directive.Params,
			RequiresConfirmation: true,
			ConfirmationMessage:  confirmationMessage(directive.Type, directive.Params),
			Status:               models.ActionStatusPending,
		})
	}

	text := directivePattern.ReplaceAllString(raw, "")
	text = spacePattern.ReplaceAllString(text, " ")
	response.Text = strings.TrimSpace(text)
	response.HTML = renderHTML(response.Text)
	return response
}

func confirmationMessage(actionType models.ActionType, params map[string]string) string {
	name := params["name"]
	amount := params["amount"]

	switch actionType {
	case models.ActionTypeCreateBudget:
		if amount == "" {
			return fmt.Sprintf("Créer un budget \"%s\" ?", name)
		}
		return fmt.Sprintf("Créer un budget \"%s\" de %s€ ?", name, amount)
	case models.ActionTypeAddExpense:
		return fmt.Sprintf("Ajouter la dépense \"%s\" de %s€ ?", name, amount)
	case models.ActionTypeAddIncome:
		return fmt.Sprintf("Ajouter le revenu \"%s\" de %s€ ?", name, amount)
	case models.ActionTypeModifyBudget:
		return fmt.Sprintf("Modifier le budget \"%s\" ?", name)
	case models.ActionTypeDeleteBudget:
		return fmt.Sprintf("Supprimer le budget \"%s\" et toutes ses opérations ?", name)
	default:
		return "Confirmer cette action ?"
	}
}

// renderHTML converts the markdown subset the model is allowed to use (bold,
// italics, bullet lines, line breaks) into display-safe HTML.
func renderHTML(text string) string {
	escaped := html.EscapeString(text)
	escaped = boldPattern.ReplaceAllString(escaped, "<strong>$1</strong>")
	escaped = italicPattern.ReplaceAllString(escaped, "<em>$1</em>")

	lines := strings.Split(escaped, "\n")
	var b strings.Builder
	inList := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
			if !inList {
				b.WriteString("<ul>")
				inList = true
			}
			b.WriteString("<li>" + strings.TrimSpace(trimmed[2:]) + "</li>")
			continue
		}

		if inList {
			b.WriteString("</ul>")
			inList = false
		}
		if trimmed != "" {
			b.WriteString("<p>" + trimmed + "</p>")
		}
	}
	if inList {
		b.WriteString("</ul>")
	}

	return b.String()
}
