package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy documents are YAML or JSON (YAML being a superset, one decoder
// covers both). The layout mirrors what compliance teams already write:
//
//	version: 1
//	name: payments
//	fail_closed: true
//	defaults:
//	  action: redact
//	transform_types:
//	  mask_pan: {action: mask, keep_tail: 4}
//	rules:
//	  - id: pan_rule
//	    scope: dataset:payments
//	    role: analyst
//	    match: {types: [credit_card]}
//	    transform: mask_pan
//
// Rules may state an action directly, reference a named transform, or fall
// back to defaults.action. Scope is written as "global", "dataset:<name>"
// or "field:<name>".

type document struct {
	Version        int                      `yaml:"version"`
	Name           string                   `yaml:"name"`
	Description    string                   `yaml:"description"`
	FailClosed     bool                     `yaml:"fail_closed"`
	Defaults       documentDefaults         `yaml:"defaults"`
	TransformTypes map[string]transformSpec `yaml:"transform_types"`
	Rules          []ruleSpec               `yaml:"rules"`
}

type documentDefaults struct {
	Action string `yaml:"action"`
}

type transformSpec struct {
	Action           string `yaml:"action"`
	Type             string `yaml:"type"` // legacy alias of action
	Replacement      string `yaml:"replacement"`
	KeepHead         *int   `yaml:"keep_head"`
	KeepTail         *int   `yaml:"keep_tail"`
	MaskGlyph        string `yaml:"mask_glyph"`
	PreserveDomain   *bool  `yaml:"preserve_domain"`
	Salt             string `yaml:"salt"`
	FormatPreserving *bool  `yaml:"format_preserving"`
}

type ruleSpec struct {
	ID        string   `yaml:"id"`
	Scope     string   `yaml:"scope"`
	Role      string   `yaml:"role"`
	Match     Match    `yaml:"match"`
	Types     []string `yaml:"types"` // shorthand for match.types
	Action    string   `yaml:"action"`
	Transform string   `yaml:"transform"`
	Where     *Where   `yaml:"where"`

	Replacement      string `yaml:"replacement"`
	KeepHead         int    `yaml:"keep_head"`
	KeepTail         int    `yaml:"keep_tail"`
	MaskGlyph        string `yaml:"mask_glyph"`
	PreserveDomain   bool   `yaml:"preserve_domain"`
	Salt             string `yaml:"salt"`
	FormatPreserving bool   `yaml:"format_preserving"`
}

// Load reads a policy document from disk and builds the model. The file
// stem names the policy when the document does not.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(data, fallback)
}

// Parse builds a model from raw document bytes. fallbackName is used when
// the document carries no name.
func Parse(data []byte, fallbackName string) (*Model, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse policy document: %v", ErrInvalidModel, err)
	}

	name := doc.Name
	if name == "" {
		name = fallbackName
	}
	version := doc.Version
	if version == 0 {
		version = 1
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for i, spec := range doc.Rules {
		rule, err := buildRule(i, spec, doc)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	m, err := NewModel(name, version, doc.FailClosed, rules)
	if err != nil {
		return nil, err
	}
	m.Description = doc.Description
	return m, nil
}

func buildRule(index int, spec ruleSpec, doc document) (Rule, error) {
	scope, err := parseScope(spec.Scope)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: rule %d: %v", ErrInvalidModel, index, err)
	}

	r := Rule{
		ID:               spec.ID,
		Scope:            scope,
		Role:             spec.Role,
		Match:            spec.Match,
		Where:            spec.Where,
		Replacement:      spec.Replacement,
		KeepHead:         spec.KeepHead,
		KeepTail:         spec.KeepTail,
		MaskGlyph:        spec.MaskGlyph,
		PreserveDomain:   spec.PreserveDomain,
		Salt:             spec.Salt,
		FormatPreserving: spec.FormatPreserving,
	}
	if r.ID == "" {
		r.ID = fmt.Sprintf("rule_%d", index)
	}
	if len(r.Match.Types) == 0 {
		r.Match.Types = spec.Types
	}

	action := spec.Action
	var transform *transformSpec
	if spec.Transform != "" {
		t, ok := doc.TransformTypes[spec.Transform]
		if !ok {
			return Rule{}, fmt.Errorf("%w: rule %q references unknown transform %q", ErrInvalidModel, r.ID, spec.Transform)
		}
		transform = &t
		if action == "" {
			action = t.Action
			if action == "" {
				action = t.Type
			}
			if action == "" {
				// Transform names like "mask_pan" or "hash_email" imply
				// the action, same as the legacy document format.
				action = actionFromName(spec.Transform)
			}
		}
	}
	if action == "" {
		action = doc.Defaults.Action
	}
	if action == "" {
		return Rule{}, fmt.Errorf("%w: rule %q has no action", ErrInvalidModel, r.ID)
	}
	r.Action = Action(action)

	if transform != nil {
		mergeTransform(&r, transform)
	}
	return r, nil
}

func actionFromName(name string) string {
	key := strings.ToLower(name)
	for alias := range actionAliases {
		if strings.HasPrefix(key, alias) {
			return alias
		}
	}
	return ""
}

func mergeTransform(r *Rule, t *transformSpec) {
	if r.Replacement == "" {
		r.Replacement = t.Replacement
	}
	if r.KeepHead == 0 && t.KeepHead != nil {
		r.KeepHead = *t.KeepHead
	}
	if r.KeepTail == 0 && t.KeepTail != nil {
		r.KeepTail = *t.KeepTail
	}
	if r.MaskGlyph == "" {
		r.MaskGlyph = t.MaskGlyph
	}
	if !r.PreserveDomain && t.PreserveDomain != nil {
		r.PreserveDomain = *t.PreserveDomain
	}
	if r.Salt == "" {
		r.Salt = t.Salt
	}
	if !r.FormatPreserving && t.FormatPreserving != nil {
		r.FormatPreserving = *t.FormatPreserving
	}
}

func parseScope(s string) (Scope, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(ScopeGlobal)) {
		return Global, nil
	}
	kind, name, ok := strings.Cut(s, ":")
	if !ok {
		return Scope{}, fmt.Errorf("bad scope %q: want global, dataset:<name> or field:<name>", s)
	}
	name = strings.TrimSpace(name)
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case string(ScopeDataset):
		return Dataset(name), nil
	case string(ScopeField):
		return Field(name), nil
	default:
		return Scope{}, fmt.Errorf("unknown scope kind %q", kind)
	}
}
