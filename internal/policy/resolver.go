package policy

import (
	"strings"

	"github.com/raaihank/data-sentinel/internal/detect"
)

// Resolve walks the rule hierarchy and returns exactly one action for the
// (finding, context) pair. Candidates are every rule whose scope matches the
// context, whose role is absent or equal to the context role, whose match
// predicate accepts the finding and whose where clause passes. Among the
// candidates the highest pre-computed specificity wins; remaining ties go to
// declaration order. The function is pure and fully deterministic: rules are
// examined in their normalized declaration order, never via map iteration.
//
// An empty candidate set falls back to the model's safety posture: redact
// when FailClosed, pass-through otherwise. Both outcomes carry a synthetic
// reason so the audit trail shows that no rule matched.
func (m *Model) Resolve(f detect.Finding, ctx Context) ResolvedAction {
	var (
		best  *Rule
		found bool
	)
	for i := range m.rules {
		r := &m.rules[i]
		if !scopeMatches(r.Scope, ctx) {
			continue
		}
		// Names are compared case-insensitively across the board: roles
		// here, dataset and field scopes in scopeMatches, finding types
		// in matchAccepts.
		if r.Role != "" && !strings.EqualFold(r.Role, ctx.Role) {
			continue
		}
		if !matchAccepts(&r.Match, f, ctx) {
			continue
		}
		if r.Where != nil && !whereAccepts(r.Where, f) {
			continue
		}
		if !found || r.priority > best.priority {
			best = r
			found = true
		}
		// Equal priority keeps the earlier declaration: rules are
		// iterated in declaration order, so best never changes on ties.
	}

	if !found {
		if m.FailClosed {
			return ResolvedAction{Kind: ActionRedact, Reason: ReasonFailClosed}
		}
		return ResolvedAction{Kind: ActionAllow, Reason: ReasonFailOpen}
	}
	return ResolvedAction{Kind: best.Action, Reason: best.ID, Rule: best}
}

func scopeMatches(s Scope, ctx Context) bool {
	switch s.Kind {
	case ScopeGlobal:
		return true
	case ScopeDataset:
		return ctx.Dataset != "" && strings.EqualFold(s.Name, ctx.Dataset)
	case ScopeField:
		return ctx.Field != "" && strings.EqualFold(s.Name, ctx.Field)
	default:
		return false
	}
}

func matchAccepts(m *Match, f detect.Finding, ctx Context) bool {
	if len(m.Types) > 0 {
		ok := false
		for _, t := range m.Types {
			if strings.EqualFold(t, f.Type) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if m.fieldRe != nil {
		field := f.Field
		if field == "" {
			field = ctx.Field
		}
		if !m.fieldRe.MatchString(field) {
			return false
		}
	}
	return true
}

func whereAccepts(w *Where, f detect.Finding) bool {
	if w.MinConfidence != nil && f.Confidence < *w.MinConfidence {
		return false
	}
	if w.MaxConfidence != nil && f.Confidence > *w.MaxConfidence {
		return false
	}
	if w.valueRe != nil && !w.valueRe.MatchString(f.Value) {
		return false
	}
	return true
}
