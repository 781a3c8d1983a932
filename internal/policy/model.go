package policy

import (
	"errors"
	"fmt"
	"regexp"
)

// DefaultKeepTail is applied to mask rules that carry no explicit mask
// options.
const DefaultKeepTail = 4

// DefaultMaskGlyph is the character used to overwrite masked runs.
const DefaultMaskGlyph = "*"

// ErrInvalidModel wraps every model-build failure so callers can
// distinguish a malformed policy from runtime errors.
var ErrInvalidModel = errors.New("invalid policy model")

// Model is an immutable, pre-normalized policy: a flat rule list annotated
// with specificity scores plus the fail-closed flag. Build it once with
// NewModel and never mutate it; hot reload replaces the whole model.
type Model struct {
	Name        string
	Version     int
	Description string
	FailClosed  bool

	rules []Rule
}

// NewModel validates and normalizes a rule list into a resolvable model.
// Unknown action kinds, duplicate or empty rule ids, malformed scopes,
// invalid regexes and out-of-range confidence bounds are all rejected here:
// the orchestrator never receives an invalid model.
func NewModel(name string, version int, failClosed bool, rules []Rule) (*Model, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty policy name", ErrInvalidModel)
	}
	if version < 1 {
		return nil, fmt.Errorf("%w: version must be >= 1, got %d", ErrInvalidModel, version)
	}

	normalized := make([]Rule, len(rules))
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: rule %d has no id", ErrInvalidModel, i)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("%w: duplicate rule id %q", ErrInvalidModel, r.ID)
		}
		seen[r.ID] = true

		action, ok := NormalizeAction(string(r.Action))
		if !ok {
			return nil, fmt.Errorf("%w: rule %q: unknown action %q", ErrInvalidModel, r.ID, r.Action)
		}
		r.Action = action

		if err := normalizeScope(&r.Scope); err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", ErrInvalidModel, r.ID, err)
		}

		if r.Match.FieldPattern != "" {
			re, err := regexp.Compile(r.Match.FieldPattern)
			if err != nil {
				return nil, fmt.Errorf("%w: rule %q: bad field_pattern: %v", ErrInvalidModel, r.ID, err)
			}
			r.Match.fieldRe = re
		}

		if r.Where != nil {
			w := *r.Where
			if err := validateWhere(&w); err != nil {
				return nil, fmt.Errorf("%w: rule %q: %v", ErrInvalidModel, r.ID, err)
			}
			r.Where = &w
		}

		if r.Action == ActionMask {
			if r.KeepHead < 0 || r.KeepTail < 0 {
				return nil, fmt.Errorf("%w: rule %q: negative keep bounds", ErrInvalidModel, r.ID)
			}
			if r.KeepHead == 0 && r.KeepTail == 0 && r.MaskGlyph == "" && !r.PreserveDomain {
				r.KeepTail = DefaultKeepTail
			}
			if r.MaskGlyph == "" {
				r.MaskGlyph = DefaultMaskGlyph
			}
		}

		r.priority = r.Scope.specificity()
		if r.Role != "" {
			// Role-specific rules outrank role-agnostic ones at the
			// same scope level, never across levels.
			r.priority += 10
		}
		r.order = i
		normalized[i] = r
	}

	return &Model{
		Name:       name,
		Version:    version,
		FailClosed: failClosed,
		rules:      normalized,
	}, nil
}

func normalizeScope(s *Scope) error {
	switch s.Kind {
	case "", ScopeGlobal:
		s.Kind = ScopeGlobal
		s.Name = ""
	case ScopeDataset, ScopeField:
		if s.Name == "" {
			return fmt.Errorf("%s scope requires a name", s.Kind)
		}
	default:
		return fmt.Errorf("unknown scope kind %q", s.Kind)
	}
	return nil
}

func validateWhere(w *Where) error {
	if w.MinConfidence != nil && (*w.MinConfidence < 0 || *w.MinConfidence > 1) {
		return fmt.Errorf("min_confidence %f out of [0,1]", *w.MinConfidence)
	}
	if w.MaxConfidence != nil && (*w.MaxConfidence < 0 || *w.MaxConfidence > 1) {
		return fmt.Errorf("max_confidence %f out of [0,1]", *w.MaxConfidence)
	}
	if w.MinConfidence != nil && w.MaxConfidence != nil && *w.MinConfidence > *w.MaxConfidence {
		return fmt.Errorf("min_confidence greater than max_confidence")
	}
	if w.ValueMatches != "" {
		re, err := regexp.Compile(w.ValueMatches)
		if err != nil {
			return fmt.Errorf("bad value_matches: %v", err)
		}
		w.valueRe = re
	}
	return nil
}

// Rules returns a copy of the normalized rule list, in declaration order.
func (m *Model) Rules() []Rule {
	return append([]Rule(nil), m.rules...)
}

// Fingerprint identifies the model for cache keys: name and version are
// enough because models are immutable once built.
func (m *Model) Fingerprint() string {
	return fmt.Sprintf("%s@v%d#%d", m.Name, m.Version, len(m.rules))
}
