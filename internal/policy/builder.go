package policy

import (
	"fmt"
	"strings"
)

// Builder is a fluent helper for constructing policy models in code. It
// hides the document layout used by Load and generates stable rule
// identifiers when none are supplied.
type Builder struct {
	name        string
	version     int
	description string
	failClosed  bool
	counter     int
	rules       []Rule
}

// NewBuilder starts a version-1 policy with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name, version: 1}
}

// Version sets the policy schema version.
func (b *Builder) Version(v int) *Builder {
	b.version = v
	return b
}

// Description attaches a human-readable description.
func (b *Builder) Description(d string) *Builder {
	b.description = d
	return b
}

// FailClosed sets the safety posture applied when no rule matches.
func (b *Builder) FailClosed(v bool) *Builder {
	b.failClosed = v
	return b
}

// RuleOption adjusts a rule before it is appended.
type RuleOption func(*Rule)

// WithID overrides the generated rule identifier.
func WithID(id string) RuleOption { return func(r *Rule) { r.ID = id } }

// InDataset scopes the rule to a dataset.
func InDataset(name string) RuleOption { return func(r *Rule) { r.Scope = Dataset(name) } }

// InField scopes the rule to a record field.
func InField(name string) RuleOption { return func(r *Rule) { r.Scope = Field(name) } }

// ForRole restricts the rule to one role.
func ForRole(role string) RuleOption { return func(r *Rule) { r.Role = role } }

// WithReplacement sets the redact placeholder.
func WithReplacement(s string) RuleOption { return func(r *Rule) { r.Replacement = s } }

// Keep sets the masked head/tail kept verbatim.
func Keep(head, tail int) RuleOption {
	return func(r *Rule) { r.KeepHead, r.KeepTail = head, tail }
}

// Glyph sets the masking character.
func Glyph(g string) RuleOption { return func(r *Rule) { r.MaskGlyph = g } }

// PreserveDomain keeps everything after the last "@" visible when masking.
func PreserveDomain() RuleOption { return func(r *Rule) { r.PreserveDomain = true } }

// WithSalt sets the tokenization salt.
func WithSalt(salt string) RuleOption { return func(r *Rule) { r.Salt = salt } }

// FormatPreserving requests shape-preserving tokens.
func FormatPreserving() RuleOption { return func(r *Rule) { r.FormatPreserving = true } }

// MinConfidence narrows the rule to findings at or above the bound.
func MinConfidence(v float64) RuleOption {
	return func(r *Rule) {
		if r.Where == nil {
			r.Where = &Where{}
		}
		r.Where.MinConfidence = &v
	}
}

// ValueMatches narrows the rule to values matching the regex.
func ValueMatches(pattern string) RuleOption {
	return func(r *Rule) {
		if r.Where == nil {
			r.Where = &Where{}
		}
		r.Where.ValueMatches = pattern
	}
}

// Add appends a rule for the given action and finding types.
func (b *Builder) Add(action Action, types []string, opts ...RuleOption) *Builder {
	r := Rule{
		Scope:  Global,
		Match:  Match{Types: types},
		Action: action,
	}
	for _, opt := range opts {
		opt(&r)
	}
	if r.ID == "" {
		r.ID = b.nextID(types, action)
	}
	b.rules = append(b.rules, r)
	return b
}

// Redact appends a global redact rule.
func (b *Builder) Redact(types []string, opts ...RuleOption) *Builder {
	return b.Add(ActionRedact, types, opts...)
}

// Mask appends a global mask rule.
func (b *Builder) Mask(types []string, opts ...RuleOption) *Builder {
	return b.Add(ActionMask, types, opts...)
}

// Tokenize appends a global tokenize rule.
func (b *Builder) Tokenize(types []string, opts ...RuleOption) *Builder {
	return b.Add(ActionTokenize, types, opts...)
}

// Allow appends a global allow rule.
func (b *Builder) Allow(types []string, opts ...RuleOption) *Builder {
	return b.Add(ActionAllow, types, opts...)
}

// Extend appends pre-built rules as declared.
func (b *Builder) Extend(rules ...Rule) *Builder {
	b.rules = append(b.rules, rules...)
	return b
}

// Build validates the accumulated rules into a Model.
func (b *Builder) Build() (*Model, error) {
	m, err := NewModel(b.name, b.version, b.failClosed, b.rules)
	if err != nil {
		return nil, err
	}
	m.Description = b.description
	return m, nil
}

func (b *Builder) nextID(types []string, action Action) string {
	b.counter++
	subject := "any"
	if len(types) > 0 {
		subject = strings.ToLower(strings.ReplaceAll(types[0], " ", "_"))
	}
	return fmt.Sprintf("rule_%s_%s_%02d", subject, action, b.counter)
}
