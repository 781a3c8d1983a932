package policy

import (
	"regexp"
	"strings"
)

// Action is the transformation a rule applies to matched findings.
type Action string

const (
	ActionRedact   Action = "redact"
	ActionMask     Action = "mask"
	ActionTokenize Action = "tokenize"
	ActionAllow    Action = "allow"
)

// actionAliases maps the spellings accepted in policy documents to the
// canonical actions.
var actionAliases = map[string]Action{
	"redact":       ActionRedact,
	"scrub":        ActionRedact,
	"mask":         ActionMask,
	"generalise":   ActionMask,
	"generalize":   ActionMask,
	"tokenize":     ActionTokenize,
	"tokenise":     ActionTokenize,
	"pseudonymize": ActionTokenize,
	"pseudonymise": ActionTokenize,
	"hash":         ActionTokenize,
	"allow":        ActionAllow,
	"pass":         ActionAllow,
}

// NormalizeAction resolves an action spelling to its canonical form.
func NormalizeAction(s string) (Action, bool) {
	a, ok := actionAliases[strings.ToLower(strings.TrimSpace(s))]
	return a, ok
}

// ScopeKind is the level of the rule hierarchy a rule binds to.
type ScopeKind string

const (
	ScopeGlobal  ScopeKind = "global"
	ScopeDataset ScopeKind = "dataset"
	ScopeField   ScopeKind = "field"
)

// Scope locates a rule in the global → dataset → field hierarchy. Name is
// required for dataset and field scopes and empty for global.
type Scope struct {
	Kind ScopeKind `yaml:"kind" json:"kind"`
	Name string    `yaml:"name,omitempty" json:"name,omitempty"`
}

// Global is the catch-all scope.
var Global = Scope{Kind: ScopeGlobal}

// Dataset scopes a rule to one named dataset.
func Dataset(name string) Scope { return Scope{Kind: ScopeDataset, Name: name} }

// Field scopes a rule to one named record field.
func Field(name string) Scope { return Scope{Kind: ScopeField, Name: name} }

// specificity ranks scopes for resolution: most specific wins.
func (s Scope) specificity() int {
	switch s.Kind {
	case ScopeField:
		return 300
	case ScopeDataset:
		return 200
	default:
		return 100
	}
}

func (s Scope) String() string {
	if s.Kind == ScopeGlobal {
		return string(ScopeGlobal)
	}
	return string(s.Kind) + ":" + s.Name
}

// Match is the finding predicate of a rule. Empty Types means any type; an
// empty FieldPattern means any field. Both conditions must hold.
type Match struct {
	Types        []string `yaml:"types,omitempty" json:"types,omitempty"`
	FieldPattern string   `yaml:"field_pattern,omitempty" json:"field_pattern,omitempty"`

	fieldRe *regexp.Regexp
}

// Where optionally narrows a rule to findings within a confidence band or
// whose value matches a regex.
type Where struct {
	MinConfidence *float64 `yaml:"min_confidence,omitempty" json:"min_confidence,omitempty"`
	MaxConfidence *float64 `yaml:"max_confidence,omitempty" json:"max_confidence,omitempty"`
	ValueMatches  string   `yaml:"value_matches,omitempty" json:"value_matches,omitempty"`

	valueRe *regexp.Regexp
}

// Rule maps findings in a scope (optionally for one role) to an action.
// Rules are declared in order; declaration order is the final tie-breaker
// during resolution.
type Rule struct {
	ID     string `yaml:"id" json:"id"`
	Scope  Scope  `yaml:"scope" json:"scope"`
	Role   string `yaml:"role,omitempty" json:"role,omitempty"`
	Match  Match  `yaml:"match" json:"match"`
	Action Action `yaml:"action" json:"action"`
	Where  *Where `yaml:"where,omitempty" json:"where,omitempty"`

	// Redact options.
	Replacement string `yaml:"replacement,omitempty" json:"replacement,omitempty"`

	// Mask options. A mask rule with no explicit options gets the default
	// keep-last-4 treatment at model build time.
	KeepHead       int    `yaml:"keep_head,omitempty" json:"keep_head,omitempty"`
	KeepTail       int    `yaml:"keep_tail,omitempty" json:"keep_tail,omitempty"`
	MaskGlyph      string `yaml:"mask_glyph,omitempty" json:"mask_glyph,omitempty"`
	PreserveDomain bool   `yaml:"preserve_domain,omitempty" json:"preserve_domain,omitempty"`

	// Tokenize options.
	Salt             string `yaml:"salt,omitempty" json:"salt,omitempty"`
	FormatPreserving bool   `yaml:"format_preserving,omitempty" json:"format_preserving,omitempty"`

	// priority is the specificity score computed once at model build;
	// order is the declaration index. Resolution sorts by (priority desc,
	// order asc) and nothing else.
	priority int
	order    int
}

// Priority exposes the computed specificity score (for inspection only).
func (r *Rule) Priority() int { return r.priority }

// Context carries the resolution coordinates for one finding.
type Context struct {
	Field   string `json:"field,omitempty"`
	Dataset string `json:"dataset,omitempty"`
	Role    string `json:"role,omitempty"`
}

// Reasons attached to synthesized actions when no rule matched.
const (
	ReasonFailClosed = "fail-closed-default"
	ReasonFailOpen   = "fail-open-default"
)

// ResolvedAction is the single outcome of resolving one (finding, context)
// pair. Rule is nil when the action was synthesized by the fail-closed or
// fail-open default.
type ResolvedAction struct {
	Kind   Action `json:"kind"`
	Reason string `json:"reason"`
	Rule   *Rule  `json:"-"`
}
