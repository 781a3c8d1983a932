package detect

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/raaihank/data-sentinel/internal/validate"
)

// ChecksumDetector wraps a regex prefilter with a validator that upgrades or
// downgrades confidence: a candidate that passes its checksum is close to
// certain, one that fails stays as a low-confidence hint for policies that
// want aggressive coverage.
type ChecksumDetector struct {
	id       string
	typ      string
	pattern  *regexp.Regexp
	validate func(value string) bool
	annotate func(value string, f *Finding)

	validConfidence   float64
	invalidConfidence float64

	// keepInvalid controls whether failed candidates are emitted at all.
	keepInvalid bool
}

func (d *ChecksumDetector) ID() string   { return d.id }
func (d *ChecksumDetector) Class() Class { return ClassChecksum }

func (d *ChecksumDetector) Detect(unit Unit) ([]Finding, error) {
	locs := d.pattern.FindAllStringIndex(unit.Text, -1)
	if len(locs) == 0 {
		return nil, nil
	}

	var findings []Finding
	for _, loc := range locs {
		value := unit.Text[loc[0]:loc[1]]
		ok := d.validate(value)
		if !ok && !d.keepInvalid {
			continue
		}
		confidence := d.validConfidence
		if !ok {
			confidence = d.invalidConfidence
		}
		f := Finding{
			Type:       d.typ,
			Value:      value,
			Span:       Span{Start: loc[0], End: loc[1]},
			Field:      unit.Field,
			Confidence: confidence,
			Detector:   d.id,
			Class:      ClassChecksum,
		}
		if ok && d.annotate != nil {
			d.annotate(value, &f)
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// NewCreditCardDetector detects payment card PANs: digit runs of 13-19 with
// optional space/dash separators, Luhn-checked, brand inferred by the
// prefix/length table.
func NewCreditCardDetector() *ChecksumDetector {
	return &ChecksumDetector{
		id:      "credit_card",
		typ:     TypeCreditCard,
		pattern: regexp.MustCompile(`\b\d(?:[ -]?\d){12,18}\b`),
		validate: func(v string) bool {
			d := validate.DigitsOnly(v)
			return len(d) >= 13 && len(d) <= 19 && validate.Luhn(d)
		},
		annotate: func(v string, f *Finding) {
			if brand := validate.CardBrand(v); brand != "" {
				f.Extras = map[string]string{"brand": brand}
			}
		},
		validConfidence:   0.95,
		invalidConfidence: 0.25,
		keepInvalid:       true,
	}
}

// NewIBANDetector detects IBANs with the ISO 7064 mod-97 check. Candidates
// that fail the checksum are dropped outright: the bare shape is too common
// in identifiers to be worth a low-confidence hint.
func NewIBANDetector() *ChecksumDetector {
	return &ChecksumDetector{
		id:              "iban",
		typ:             TypeIBAN,
		pattern:         regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`),
		validate:        validate.IBAN,
		validConfidence: 0.97,
	}
}

// NewNHSDetector detects UK NHS numbers with the weighted mod-11 check.
func NewNHSDetector() *ChecksumDetector {
	return &ChecksumDetector{
		id:              "nhs_number",
		typ:             TypeNHSNumber,
		pattern:         regexp.MustCompile(`\b\d{3}[ -]?\d{3}[ -]?\d{4}\b`),
		validate:        validate.NHS,
		validConfidence: 0.9,
	}
}

// NewCustomChecksumDetector exposes the checksum variant for callers wiring
// their own national-identifier validators.
func NewCustomChecksumDetector(id, typ, pattern string, valid func(string) bool, confidence float64) (*ChecksumDetector, error) {
	if valid == nil {
		return nil, fmt.Errorf("detector %s: nil validator", id)
	}
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("detector %s: confidence %s out of [0,1]", id, strconv.FormatFloat(confidence, 'f', -1, 64))
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("detector %s: invalid pattern: %w", id, err)
	}
	return &ChecksumDetector{
		id:              id,
		typ:             typ,
		pattern:         re,
		validate:        valid,
		validConfidence: confidence,
	}, nil
}
