package handlers

import "testing"

// TestNormalizeName checks trimming and the empty-to-nil collapse.
func TestNormalizeName(t *testing.T) {
	if got := normalizeName(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}

	empty := "   "
	if got := normalizeName(&empty); got != nil {
		t.Fatalf("expected nil for blank name, got %q", *got)
	}

	raw := "  Camille "
	got := normalizeName(&raw)
	if got == nil || *got != "Camille" {
		t.Fatalf("expected trimmed name, got %v", got)
	}
}
