package detect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PatternDetector is the plain regex detector variant: every match of the
// pattern becomes a finding with a fixed confidence. More selective variants
// (checksum, entropy) build on top of it.
type PatternDetector struct {
	id         string
	typ        string
	pattern    *regexp.Regexp
	confidence float64

	// filter, when set, can veto or rescore a candidate match.
	filter func(value string) (float64, bool)
}

// NewPatternDetector compiles a regex detector. The pattern must be a valid
// Go regexp and confidence must lie in [0,1].
func NewPatternDetector(id, typ, pattern string, confidence float64) (*PatternDetector, error) {
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("detector %s: confidence %f out of [0,1]", id, confidence)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("detector %s: invalid pattern: %w", id, err)
	}
	return &PatternDetector{id: id, typ: typ, pattern: re, confidence: confidence}, nil
}

// MustPattern is the panicking variant used for the built-in table.
func MustPattern(id, typ, pattern string, confidence float64) *PatternDetector {
	d, err := NewPatternDetector(id, typ, pattern, confidence)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *PatternDetector) ID() string   { return d.id }
func (d *PatternDetector) Class() Class { return ClassRegex }

func (d *PatternDetector) Detect(unit Unit) ([]Finding, error) {
	locs := d.pattern.FindAllStringIndex(unit.Text, -1)
	if len(locs) == 0 {
		return nil, nil
	}

	findings := make([]Finding, 0, len(locs))
	for _, loc := range locs {
		value := unit.Text[loc[0]:loc[1]]
		confidence := d.confidence
		if d.filter != nil {
			rescored, ok := d.filter(value)
			if !ok {
				continue
			}
			confidence = rescored
		}
		findings = append(findings, Finding{
			Type:       d.typ,
			Value:      value,
			Span:       Span{Start: loc[0], End: loc[1]},
			Field:      unit.Field,
			Confidence: confidence,
			Detector:   d.id,
			Class:      ClassRegex,
		})
	}
	return findings, nil
}

// NewEmailDetector detects email addresses.
func NewEmailDetector() *PatternDetector {
	return MustPattern("email", TypeEmail,
		`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`, 0.85)
}

// NewPhoneDetector detects phone numbers in common US/international layouts.
// Bare digit runs also match card fragments; reconciliation prefers the
// checksum-validated card finding when both fire.
func NewPhoneDetector() *PatternDetector {
	return MustPattern("phone", TypePhone,
		`\+?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}`, 0.6)
}

// NewSSNDetector detects US Social Security Numbers in dashed form and
// rejects the never-issued ranges (000/666/9xx areas, 00 group, 0000 serial).
func NewSSNDetector() *PatternDetector {
	d := MustPattern("ssn_us", TypeSSNUS, `\b\d{3}-\d{2}-\d{4}\b`, 0.85)
	d.filter = func(value string) (float64, bool) {
		parts := strings.SplitN(value, "-", 3)
		area, _ := strconv.Atoi(parts[0])
		group, _ := strconv.Atoi(parts[1])
		serial, _ := strconv.Atoi(parts[2])
		if area == 0 || area == 666 || area >= 900 || group == 0 || serial == 0 {
			return 0, false
		}
		return 0.85, true
	}
	return d
}

// NewIPDetector detects IPv4 addresses with octet range validation.
func NewIPDetector() *PatternDetector {
	d := MustPattern("ip_address", TypeIPAddress, `\b(?:\d{1,3}\.){3}\d{1,3}\b`, 0.7)
	d.filter = func(value string) (float64, bool) {
		for _, oct := range strings.Split(value, ".") {
			n, err := strconv.Atoi(oct)
			if err != nil || n > 255 {
				return 0, false
			}
		}
		return 0.7, true
	}
	return d
}
