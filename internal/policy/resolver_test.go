package policy

import (
	"testing"

	"github.com/raaihank/data-sentinel/internal/detect"
)

func mustModel(t *testing.T, failClosed bool, rules []Rule) *Model {
	t.Helper()
	m, err := NewModel("test", 1, failClosed, rules)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

func emailFinding(confidence float64) detect.Finding {
	return detect.Finding{
		Type:       detect.TypeEmail,
		Value:      "alice@example.com",
		Confidence: confidence,
		Detector:   "email",
		Class:      detect.ClassRegex,
	}
}

func TestResolveScopePrecedence(t *testing.T) {
	m := mustModel(t, false, []Rule{
		{ID: "global", Scope: Global, Action: ActionAllow},
		{ID: "dataset", Scope: Dataset("customers"), Action: ActionMask},
		{ID: "field", Scope: Field("email"), Action: ActionRedact},
	})

	tests := []struct {
		name string
		ctx  Context
		want string
	}{
		{"global only", Context{}, "global"},
		{"dataset beats global", Context{Dataset: "customers"}, "dataset"},
		{"field beats dataset", Context{Dataset: "customers", Field: "email"}, "field"},
		{"dataset names are case-insensitive", Context{Dataset: "CUSTOMERS"}, "dataset"},
		{"other dataset falls through", Context{Dataset: "orders"}, "global"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Resolve(emailFinding(0.9), tt.ctx)
			if got.Reason != tt.want {
				t.Errorf("resolved rule %q, want %q", got.Reason, tt.want)
			}
		})
	}
}

func TestResolveRolePrecedence(t *testing.T) {
	m := mustModel(t, false, []Rule{
		{ID: "field_any", Scope: Field("email"), Action: ActionRedact},
		{ID: "field_analyst", Scope: Field("email"), Role: "analyst", Action: ActionMask},
		{ID: "global_analyst", Scope: Global, Role: "analyst", Action: ActionAllow},
	})

	t.Run("role-specific beats role-agnostic at same scope", func(t *testing.T) {
		got := m.Resolve(emailFinding(0.9), Context{Field: "email", Role: "analyst"})
		if got.Reason != "field_analyst" {
			t.Errorf("resolved %q, want field_analyst", got.Reason)
		}
	})
	t.Run("role bonus never crosses scope levels", func(t *testing.T) {
		// A global analyst rule (110) must lose to an unqualified
		// field rule (300).
		got := m.Resolve(emailFinding(0.9), Context{Field: "email", Role: "analyst"})
		if got.Reason == "global_analyst" {
			t.Error("global role rule outranked a field rule")
		}
	})
	t.Run("wrong role skips the rule", func(t *testing.T) {
		got := m.Resolve(emailFinding(0.9), Context{Field: "email", Role: "auditor"})
		if got.Reason != "field_any" {
			t.Errorf("resolved %q, want field_any", got.Reason)
		}
	})
	t.Run("role comparison ignores case like scope names do", func(t *testing.T) {
		got := m.Resolve(emailFinding(0.9), Context{Field: "email", Role: "Analyst"})
		if got.Reason != "field_analyst" {
			t.Errorf("resolved %q, want field_analyst", got.Reason)
		}
	})
}

func TestResolveDeclarationOrderTieBreak(t *testing.T) {
	m := mustModel(t, false, []Rule{
		{ID: "first", Scope: Global, Action: ActionMask},
		{ID: "second", Scope: Global, Action: ActionRedact},
	})
	for i := 0; i < 20; i++ {
		got := m.Resolve(emailFinding(0.9), Context{})
		if got.Reason != "first" {
			t.Fatalf("run %d resolved %q, want first", i, got.Reason)
		}
	}
}

func TestResolveMatchPredicates(t *testing.T) {
	m := mustModel(t, false, []Rule{
		{ID: "cards_only", Scope: Global, Action: ActionRedact, Match: Match{Types: []string{detect.TypeCreditCard}}},
		{ID: "card_fields", Scope: Global, Action: ActionMask, Match: Match{FieldPattern: `(?i)^card`}},
		{ID: "fallback", Scope: Global, Action: ActionAllow},
	})

	t.Run("type filter", func(t *testing.T) {
		pan := detect.Finding{Type: detect.TypeCreditCard, Value: "4111111111111111", Confidence: 0.95}
		if got := m.Resolve(pan, Context{}); got.Reason != "cards_only" {
			t.Errorf("resolved %q, want cards_only", got.Reason)
		}
	})
	t.Run("field pattern from context", func(t *testing.T) {
		if got := m.Resolve(emailFinding(0.9), Context{Field: "CardHolderEmail"}); got.Reason != "card_fields" {
			t.Errorf("resolved %q, want card_fields", got.Reason)
		}
	})
	t.Run("no predicate matches falls to unconditional rule", func(t *testing.T) {
		if got := m.Resolve(emailFinding(0.9), Context{Field: "notes"}); got.Reason != "fallback" {
			t.Errorf("resolved %q, want fallback", got.Reason)
		}
	})
}

func TestResolveWhereClause(t *testing.T) {
	m := mustModel(t, false, []Rule{
		{ID: "confident", Scope: Global, Action: ActionRedact, Where: &Where{MinConfidence: f(0.8)}},
		{ID: "weak", Scope: Global, Action: ActionAllow},
	})

	if got := m.Resolve(emailFinding(0.9), Context{}); got.Reason != "confident" {
		t.Errorf("high confidence resolved %q, want confident", got.Reason)
	}
	if got := m.Resolve(emailFinding(0.5), Context{}); got.Reason != "weak" {
		t.Errorf("low confidence resolved %q, want weak", got.Reason)
	}
}

func TestResolveFailurePosture(t *testing.T) {
	rules := []Rule{{ID: "cards", Scope: Global, Action: ActionMask, Match: Match{Types: []string{detect.TypeCreditCard}}}}

	t.Run("fail closed synthesizes redact", func(t *testing.T) {
		m := mustModel(t, true, rules)
		got := m.Resolve(emailFinding(0.9), Context{})
		if got.Kind != ActionRedact || got.Reason != ReasonFailClosed {
			t.Errorf("got (%s, %s), want (redact, %s)", got.Kind, got.Reason, ReasonFailClosed)
		}
		if got.Rule != nil {
			t.Error("synthesized action carries a rule")
		}
	})
	t.Run("fail open synthesizes allow", func(t *testing.T) {
		m := mustModel(t, false, rules)
		got := m.Resolve(emailFinding(0.9), Context{})
		if got.Kind != ActionAllow || got.Reason != ReasonFailOpen {
			t.Errorf("got (%s, %s), want (allow, %s)", got.Kind, got.Reason, ReasonFailOpen)
		}
	})
}

func TestBuilder(t *testing.T) {
	m, err := NewBuilder("custom").
		Description("builder test").
		FailClosed(true).
		Mask([]string{detect.TypeEmail}, PreserveDomain()).
		Redact([]string{detect.TypeSecret}, InDataset("logs"), WithReplacement("[GONE]")).
		Tokenize([]string{detect.TypeCreditCard}, WithID("pan"), WithSalt("s"), FormatPreserving(), MinConfidence(0.5)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	rules := m.Rules()
	if len(rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(rules))
	}
	if !m.FailClosed {
		t.Error("fail closed flag lost")
	}
	if rules[0].ID == "" || rules[1].ID == "" {
		t.Error("builder did not generate rule ids")
	}
	if rules[1].Scope != Dataset("logs") {
		t.Errorf("dataset option not applied: %v", rules[1].Scope)
	}
	if rules[2].ID != "pan" || !rules[2].FormatPreserving || rules[2].Salt != "s" {
		t.Errorf("tokenize options not applied: %+v", rules[2])
	}
	if rules[2].Where == nil || rules[2].Where.MinConfidence == nil || *rules[2].Where.MinConfidence != 0.5 {
		t.Error("MinConfidence option not applied")
	}
}

func TestBuiltinTemplates(t *testing.T) {
	for _, name := range BuiltinNames() {
		t.Run(name, func(t *testing.T) {
			m, err := Builtin(name)
			if err != nil {
				t.Fatalf("Builtin(%s): %v", name, err)
			}
			if len(m.Rules()) == 0 {
				t.Error("builtin has no rules")
			}
		})
	}

	t.Run("aliases and file suffixes", func(t *testing.T) {
		for _, name := range []string{"pci-dss", "GDPR", "hipaa.yaml", "policies/pci.yml"} {
			if !IsBuiltin(name) {
				t.Errorf("IsBuiltin(%q) = false", name)
			}
		}
		if IsBuiltin("sox") {
			t.Error("IsBuiltin(sox) = true")
		}
	})

	t.Run("postures", func(t *testing.T) {
		gdpr, _ := Builtin("gdpr")
		pci, _ := Builtin("pci")
		hipaa, _ := Builtin("hipaa")
		if gdpr.FailClosed {
			t.Error("gdpr should fail open")
		}
		if !pci.FailClosed || !hipaa.FailClosed {
			t.Error("pci and hipaa should fail closed")
		}
	})
}
