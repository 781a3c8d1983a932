package policy

import (
	"errors"
	"testing"
)

func TestNewModelValidation(t *testing.T) {
	valid := Rule{ID: "r1", Scope: Global, Action: ActionRedact}

	tests := []struct {
		name  string
		model string
		ver   int
		rules []Rule
	}{
		{"empty name", "", 1, []Rule{valid}},
		{"zero version", "p", 0, []Rule{valid}},
		{"missing rule id", "p", 1, []Rule{{Scope: Global, Action: ActionRedact}}},
		{"duplicate rule id", "p", 1, []Rule{valid, valid}},
		{"unknown action", "p", 1, []Rule{{ID: "r1", Scope: Global, Action: "obliterate"}}},
		{"dataset scope without name", "p", 1, []Rule{{ID: "r1", Scope: Scope{Kind: ScopeDataset}, Action: ActionRedact}}},
		{"unknown scope kind", "p", 1, []Rule{{ID: "r1", Scope: Scope{Kind: "tenant", Name: "x"}, Action: ActionRedact}}},
		{"bad field pattern", "p", 1, []Rule{{ID: "r1", Scope: Global, Action: ActionRedact, Match: Match{FieldPattern: "("}}}},
		{"bad value matches", "p", 1, []Rule{{ID: "r1", Scope: Global, Action: ActionRedact, Where: &Where{ValueMatches: "("}}}},
		{"confidence out of range", "p", 1, []Rule{{ID: "r1", Scope: Global, Action: ActionRedact, Where: &Where{MinConfidence: f(1.5)}}}},
		{"inverted confidence band", "p", 1, []Rule{{ID: "r1", Scope: Global, Action: ActionRedact, Where: &Where{MinConfidence: f(0.9), MaxConfidence: f(0.1)}}}},
		{"negative mask bounds", "p", 1, []Rule{{ID: "r1", Scope: Global, Action: ActionMask, KeepTail: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModel(tt.model, tt.ver, false, tt.rules)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidModel) {
				t.Errorf("error %v does not wrap ErrInvalidModel", err)
			}
		})
	}
}

func TestNewModelNormalization(t *testing.T) {
	m, err := NewModel("p", 2, false, []Rule{
		{ID: "scrubbed", Scope: Global, Action: "scrub"},
		{ID: "masked", Scope: Global, Action: ActionMask},
		{ID: "masked_explicit", Scope: Global, Action: ActionMask, KeepHead: 2},
	})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	rules := m.Rules()
	if rules[0].Action != ActionRedact {
		t.Errorf("alias scrub normalized to %q, want redact", rules[0].Action)
	}
	if rules[1].KeepTail != DefaultKeepTail || rules[1].MaskGlyph != DefaultMaskGlyph {
		t.Errorf("bare mask rule got keep_tail=%d glyph=%q, want %d %q",
			rules[1].KeepTail, rules[1].MaskGlyph, DefaultKeepTail, DefaultMaskGlyph)
	}
	if rules[2].KeepTail != 0 {
		t.Errorf("explicit mask rule got default keep_tail %d", rules[2].KeepTail)
	}
	if rules[2].MaskGlyph != DefaultMaskGlyph {
		t.Errorf("mask glyph not defaulted: %q", rules[2].MaskGlyph)
	}

	if got, want := m.Fingerprint(), "p@v2#3"; got != want {
		t.Errorf("Fingerprint() = %q, want %q", got, want)
	}
}

func TestNewModelPriorities(t *testing.T) {
	m, err := NewModel("p", 1, false, []Rule{
		{ID: "global", Scope: Global, Action: ActionAllow},
		{ID: "global_role", Scope: Global, Role: "analyst", Action: ActionAllow},
		{ID: "dataset", Scope: Dataset("payments"), Action: ActionAllow},
		{ID: "field", Scope: Field("card_number"), Action: ActionAllow},
		{ID: "field_role", Scope: Field("card_number"), Role: "analyst", Action: ActionAllow},
	})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	want := map[string]int{
		"global":      100,
		"global_role": 110,
		"dataset":     200,
		"field":       300,
		"field_role":  310,
	}
	for _, r := range m.Rules() {
		if r.Priority() != want[r.ID] {
			t.Errorf("rule %s priority = %d, want %d", r.ID, r.Priority(), want[r.ID])
		}
	}
}

func TestRulesReturnsCopy(t *testing.T) {
	m, err := NewModel("p", 1, false, []Rule{{ID: "r1", Scope: Global, Action: ActionRedact}})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	rules := m.Rules()
	rules[0].ID = "mutated"
	if m.Rules()[0].ID != "r1" {
		t.Error("mutating the returned slice changed the model")
	}
}

func f(v float64) *float64 { return &v }
