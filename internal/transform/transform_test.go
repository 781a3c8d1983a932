package transform

import (
	"strings"
	"testing"

	"github.com/raaihank/data-sentinel/internal/detect"
	"github.com/raaihank/data-sentinel/internal/policy"
)

func maskRule(t *testing.T, opts ...policy.RuleOption) *policy.Rule {
	t.Helper()
	return builtRule(t, policy.ActionMask, opts...)
}

func builtRule(t *testing.T, action policy.Action, opts ...policy.RuleOption) *policy.Rule {
	t.Helper()
	b := policy.NewBuilder("test").Add(action, nil, append([]policy.RuleOption{policy.WithID("r")}, opts...)...)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build rule: %v", err)
	}
	rules := m.Rules()
	return &rules[0]
}

func TestRedact(t *testing.T) {
	if got := Redact(detect.TypeEmail, nil); got != "[REDACTED:EMAIL]" {
		t.Errorf("Redact = %q", got)
	}
	rule := builtRule(t, policy.ActionRedact, policy.WithReplacement("[GONE]"))
	if got := Redact(detect.TypeEmail, rule); got != "[GONE]" {
		t.Errorf("Redact with replacement = %q", got)
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		name  string
		value string
		rule  *policy.Rule
		want  string
	}{
		{"default keeps last four", "4111111111111111", maskRule(t), "************1111"},
		{"head and tail", "GB29NWBK60161331926819", maskRule(t, policy.Keep(4, 4)), "GB29**************6819"},
		{"short value fully masked", "123", maskRule(t), "***"},
		{"exact boundary fully masked", "1234", maskRule(t), "****"},
		{"custom glyph", "secret99", maskRule(t, policy.Keep(0, 2), policy.Glyph("#")), "######99"},
		{"preserve domain", "test@example.com", maskRule(t, policy.PreserveDomain()), "****@example.com"},
		{"preserve domain without at falls back", "no-at-sign", maskRule(t, policy.PreserveDomain()), "**********"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mask(tt.value, tt.rule)
			if got != tt.want {
				t.Errorf("Mask(%q) = %q, want %q", tt.value, got, tt.want)
			}
			if len([]rune(got)) != len([]rune(tt.value)) {
				t.Errorf("mask changed length: %d -> %d", len(tt.value), len(got))
			}
		})
	}
}

func TestToken(t *testing.T) {
	rule := builtRule(t, policy.ActionTokenize, policy.WithSalt("pepper"))

	t.Run("deterministic", func(t *testing.T) {
		a, b := Token("alice@example.com", rule), Token("alice@example.com", rule)
		if a != b {
			t.Errorf("same input diverged: %q vs %q", a, b)
		}
	})
	t.Run("distinct inputs differ", func(t *testing.T) {
		if Token("a", rule) == Token("b", rule) {
			t.Error("distinct inputs collided")
		}
	})
	t.Run("salt changes the token", func(t *testing.T) {
		other := builtRule(t, policy.ActionTokenize, policy.WithSalt("different"))
		if Token("alice", rule) == Token("alice", other) {
			t.Error("token independent of salt")
		}
	})
	t.Run("plain form", func(t *testing.T) {
		tok := Token("alice", rule)
		if !strings.HasPrefix(tok, "tok_") || len(tok) != len("tok_")+32 {
			t.Errorf("unexpected token shape %q", tok)
		}
	})
	t.Run("format preserving keeps shape", func(t *testing.T) {
		fp := builtRule(t, policy.ActionTokenize, policy.WithSalt("pepper"), policy.FormatPreserving())
		tok := Token("4111-1111-1111-1111", fp)
		if len(tok) != len("4111-1111-1111-1111") {
			t.Fatalf("length changed: %q", tok)
		}
		for i, r := range tok {
			orig := rune("4111-1111-1111-1111"[i])
			switch {
			case orig >= '0' && orig <= '9':
				if r < '0' || r > '9' {
					t.Fatalf("digit position %d became %q", i, r)
				}
			case orig == '-':
				if r != '-' {
					t.Fatalf("separator position %d became %q", i, r)
				}
			}
		}
		if tok == "4111-1111-1111-1111" {
			t.Error("token equals input")
		}
	})
}

func TestApply(t *testing.T) {
	finding := detect.Finding{Type: detect.TypeCreditCard, Value: "4111111111111111", Confidence: 0.95}

	t.Run("allow passes through", func(t *testing.T) {
		got := Apply(finding, policy.ResolvedAction{Kind: policy.ActionAllow, Reason: "r"})
		if got.Output != finding.Value || !got.Reversible {
			t.Errorf("allow mangled the value: %+v", got)
		}
	})
	t.Run("redact", func(t *testing.T) {
		got := Apply(finding, policy.ResolvedAction{Kind: policy.ActionRedact, Reason: policy.ReasonFailClosed})
		if got.Output != "[REDACTED:CREDIT_CARD]" || got.Reversible {
			t.Errorf("redact: %+v", got)
		}
		if got.Reason != policy.ReasonFailClosed {
			t.Errorf("reason lost: %q", got.Reason)
		}
	})
	t.Run("mask", func(t *testing.T) {
		got := Apply(finding, policy.ResolvedAction{Kind: policy.ActionMask, Reason: "r", Rule: maskRule(t)})
		if got.Output != "************1111" {
			t.Errorf("mask output %q", got.Output)
		}
	})
	t.Run("tokenize without salt falls back to redact", func(t *testing.T) {
		rule := builtRule(t, policy.ActionTokenize)
		got := Apply(finding, policy.ResolvedAction{Kind: policy.ActionTokenize, Reason: "r", Rule: rule})
		if got.Action != policy.ActionRedact {
			t.Fatalf("action = %s, want redact", got.Action)
		}
		if got.Reason != ReasonMissingSalt {
			t.Errorf("reason = %q, want %q", got.Reason, ReasonMissingSalt)
		}
		if strings.Contains(got.Output, "4111") {
			t.Errorf("original value leaked: %q", got.Output)
		}
	})
}
