package agent

import (
	"regexp"
	"strings"
)

type IntentType string

const (
	IntentGreeting     IntentType = "greeting"
	IntentQueryData    IntentType = "query_data"
	IntentAnalysis     IntentType = "analysis"
	IntentAdvice       IntentType = "advice"
	IntentPrediction   IntentType = "prediction"
	IntentActionCreate IntentType = "action_create"
	IntentActionModify IntentType = "action_modify"
	IntentActionDelete IntentType = "action_delete"
	IntentGeneralChat  IntentType = "general_chat"
)

// Intent is the classification of a single inbound message. Parameters hold
// best-effort extractions and may be empty.
type Intent struct {
	Type       IntentType
	Confidence float64
	Parameters map[string]string
}

type intentCategory struct {
	intent   IntentType
	keywords []string
}

// Detector classifies free-text messages by counting keyword hits per
// category. The category slice is ordered: on a tie the earliest category
// wins, which keeps classification deterministic.
type Detector struct {
	categories []intentCategory
}

// NewDetector builds a detector with the built-in keyword lists.
func NewDetector() *Detector {
	return &Detector{categories: defaultCategories()}
}

func defaultCategories() []intentCategory {
	return []intentCategory{
		{IntentGreeting, []string{
			"bonjour", "salut", "bonsoir", "coucou", "hello", "hey", "merci", "ça va",
		}},
		{IntentQueryData, []string{
			"combien", "total", "dépensé", "reste", "restant", "solde", "montant",
			"liste", "quel est", "quelle est", "mes dépenses", "mes revenus",
		}},
		{IntentAnalysis, []string{
			"analyse", "analyser", "répartition", "catégorie", "comparaison",
			"comparer", "évolution", "tendance", "habitude", "récurrent",
		}},
		{IntentAdvice, []string{
			"conseil", "conseille", "recommande", "recommandation", "économiser",
			"astuce", "comment faire", "devrais-je", "optimiser",
		}},
		{IntentPrediction, []string{
			"prévision", "prédire", "prédiction", "fin du mois", "projection",
			"estimation", "estimer", "va dépenser",
		}},
		{IntentActionCreate, []string{
			"crée", "créer", "ajoute", "ajouter", "nouveau budget", "nouvelle dépense",
			"nouveau revenu", "enregistre", "enregistrer",
		}},
		{IntentActionModify, []string{
			"modifie", "modifier", "change", "changer", "augmente", "augmenter",
			"diminue", "diminuer", "renomme",
		}},
		{IntentActionDelete, []string{
			"supprime", "supprimer", "efface", "effacer", "retire", "retirer",
			"enlève", "enlever",
		}},
	}
}

var (
	amountPattern = regexp.MustCompile(`(\d+)\s*(?:€|euros?|eur\b)`)
	namePattern   = regexp.MustCompile(`(?:budget|dépense|revenu)\s+(?:pour\s+|de\s+|")?([\p{L}\d][\p{L}\d\s-]*?)(?:"|\s+(?:de|pour|avec|à|dans|sur)\b|$)`)
)

// Detect classifies a raw message. It never fails: unparseable input yields a
// low-confidence general_chat intent.
func (d *Detector) Detect(raw string) Intent {
	message := strings.ToLower(strings.TrimSpace(raw))

	best := Intent{Type: IntentGeneralChat, Confidence: 0.1}
	bestScore := 0

	for _, category := range d.categories {
		score := 0
		for _, keyword := range category.keywords {
			if strings.Contains(message, keyword) {
				score++
			}
		}

		// Greetings pre-empt every financial intent: a single greeting
		// keyword wins regardless of other scores.
		if category.intent == IntentGreeting && score > 0 {
			return Intent{Type: IntentGreeting, Confidence: confidence(score)}
		}

		if score > bestScore {
			bestScore = score
			best = Intent{Type: category.intent, Confidence: confidence(score)}
		}
	}

	if bestScore == 0 {
		return best
	}

	if best.Type == IntentActionCreate || best.Type == IntentActionModify {
		best.Parameters = extractActionParameters(message)
	}

	return best
}

func confidence(score int) float64 {
	value := float64(score) / 3
	if value > 1 {
		return 1
	}
	return value
}

// extractActionParameters pulls a candidate target type, amount and name out
// of the message. Extraction is best effort: a missing match simply omits the
// parameter.
func extractActionParameters(message string) map[string]string {
	params := make(map[string]string)

	switch {
	case strings.Contains(message, "budget"):
		params["type"] = "budget"
	case strings.Contains(message, "dépense"), strings.Contains(message, "expense"):
		params["type"] = "expense"
	case strings.Contains(message, "revenu"), strings.Contains(message, "income"):
		params["type"] = "income"
	}

	if match := amountPattern.FindStringSubmatch(message); match != nil {
		params["amount"] = match[1]
	}

	if match := namePattern.FindStringSubmatch(message); match != nil {
		name := strings.TrimSpace(match[1])
		if name != "" {
			params["name"] = name
		}
	}

	if len(params) == 0 {
		return nil
	}
	return params
}
