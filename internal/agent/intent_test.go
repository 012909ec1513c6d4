package agent

import "testing"

// TestDetectGreetingPreemption checks that a greeting keyword wins even when
// financial categories score higher.
func TestDetectGreetingPreemption(t *testing.T) {
	detector := NewDetector()

	intent := detector.Detect("Bonjour, combien reste-t-il sur mon budget courses, total dépensé ?")
	if intent.Type != IntentGreeting {
		t.Fatalf("expected greeting, got %s", intent.Type)
	}
}

// TestDetectDefaultsToGeneralChat checks the low-confidence fallback.
func TestDetectDefaultsToGeneralChat(t *testing.T) {
	detector := NewDetector()

	intent := detector.Detect("azerty uiop qsdf")
	if intent.Type != IntentGeneralChat {
		t.Fatalf("expected general_chat, got %s", intent.Type)
	}
	if intent.Confidence != 0.1 {
		t.Fatalf("expected confidence 0.1, got %f", intent.Confidence)
	}
}

// TestDetectQueryDataConfidence checks score-based confidence capping.
func TestDetectQueryDataConfidence(t *testing.T) {
	detector := NewDetector()

	intent := detector.Detect("Combien au total ? Quel est le solde et le montant restant ?")
	if intent.Type != IntentQueryData {
		t.Fatalf("expected query_data, got %s", intent.Type)
	}
	if intent.Confidence != 1 {
		t.Fatalf("expected confidence capped at 1, got %f", intent.Confidence)
	}
}

// TestDetectTieBreakFavorsEarlierCategory checks the deterministic tie-break:
// analysis is declared before advice, so an equal score resolves to analysis.
func TestDetectTieBreakFavorsEarlierCategory(t *testing.T) {
	detector := NewDetector()

	intent := detector.Detect("analyse et conseil")
	if intent.Type != IntentAnalysis {
		t.Fatalf("expected analysis on tie, got %s", intent.Type)
	}
}

// TestDetectActionCreateParameters checks best-effort parameter extraction.
func TestDetectActionCreateParameters(t *testing.T) {
	detector := NewDetector()

	intent := detector.Detect("Crée un budget Loisirs de 100€")
	if intent.Type != IntentActionCreate {
		t.Fatalf("expected action_create, got %s", intent.Type)
	}
	if intent.Parameters["type"] != "budget" {
		t.Fatalf("expected type budget, got %q", intent.Parameters["type"])
	}
	if intent.Parameters["amount"] != "100" {
		t.Fatalf("expected amount 100, got %q", intent.Parameters["amount"])
	}
	if intent.Parameters["name"] != "loisirs" {
		t.Fatalf("expected name loisirs, got %q", intent.Parameters["name"])
	}
}

// TestDetectActionWithoutParameters checks that absent extractions are simply
// omitted, never an error.
func TestDetectActionWithoutParameters(t *testing.T) {
	detector := NewDetector()

	intent := detector.Detect("ajoute quelque chose")
	if intent.Type != IntentActionCreate {
		t.Fatalf("expected action_create, got %s", intent.Type)
	}
	if _, ok := intent.Parameters["amount"]; ok {
		t.Fatal("expected no amount parameter")
	}
}
