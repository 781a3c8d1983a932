package detect

import "strings"

// SchemaHintDetector matches structured-record field names against known
// sensitive-field vocabularies, independent of the value content. It only
// fires on units that carry a field path and always covers the whole field
// value. The moderate fixed confidence means any value-level detector that
// agrees on the span takes precedence during reconciliation.
type SchemaHintDetector struct {
	id    string
	vocab map[string]string // lowercase field-name fragment -> finding type
}

// defaultVocabulary maps field-name fragments to the finding type they hint
// at. Matching is substring-based over the lowercased final path segment.
var defaultVocabulary = map[string]string{
	"email":           TypeEmail,
	"e-mail":          TypeEmail,
	"e_mail":          TypeEmail,
	"phone":           TypePhone,
	"mobile":          TypePhone,
	"telephone":       TypePhone,
	"ssn":             TypeSSNUS,
	"social_security": TypeSSNUS,
	"nhs":             TypeNHSNumber,
	"card_number":     TypeCreditCard,
	"credit_card":     TypeCreditCard,
	"pan":             TypeCreditCard,
	"iban":            TypeIBAN,
	"password":        TypeSecret,
	"passwd":          TypeSecret,
	"secret":          TypeSecret,
	"api_key":         TypeSecret,
	"token":           TypeSecret,
	"ip_address":      TypeIPAddress,
}

// NewSchemaHintDetector creates a schema-hint detector. A nil vocabulary
// uses the built-in one.
func NewSchemaHintDetector(vocab map[string]string) *SchemaHintDetector {
	if vocab == nil {
		vocab = defaultVocabulary
	}
	normalized := make(map[string]string, len(vocab))
	for k, v := range vocab {
		normalized[strings.ToLower(k)] = v
	}
	return &SchemaHintDetector{id: "schema_hint", vocab: normalized}
}

func (d *SchemaHintDetector) ID() string   { return d.id }
func (d *SchemaHintDetector) Class() Class { return ClassSchema }

func (d *SchemaHintDetector) Detect(unit Unit) ([]Finding, error) {
	if unit.Field == "" || unit.Text == "" {
		return nil, nil
	}

	name := unit.Field
	if idx := strings.LastIndexAny(name, "./"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.ToLower(name)

	// Longest matching fragment wins so "credit_card" beats "card".
	// Equal-length ties break lexically so the result does not depend
	// on map iteration order.
	var bestFragment, bestType string
	for fragment, typ := range d.vocab {
		if !strings.Contains(name, fragment) {
			continue
		}
		if len(fragment) > len(bestFragment) ||
			(len(fragment) == len(bestFragment) && fragment < bestFragment) {
			bestFragment, bestType = fragment, typ
		}
	}
	if bestType == "" {
		return nil, nil
	}

	return []Finding{{
		Type:       bestType,
		Value:      unit.Text,
		Span:       Span{Start: 0, End: len(unit.Text)},
		Field:      unit.Field,
		Confidence: 0.5,
		Detector:   d.id,
		Class:      ClassSchema,
		Extras:     map[string]string{"matched_field": bestFragment},
	}}, nil
}
