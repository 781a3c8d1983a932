package detect

import "fmt"

// Well-known finding types produced by the built-in detectors. The set is
// open ended: custom detectors may emit any type string.
const (
	TypeEmail      = "email"
	TypePhone      = "phone"
	TypeCreditCard = "credit_card"
	TypeIBAN       = "iban"
	TypeNHSNumber  = "nhs_number"
	TypeSSNUS      = "ssn_us"
	TypeIPAddress  = "ip_address"
	TypeSecret     = "high_entropy_token"
)

// Class ranks detector categories for overlap reconciliation. When two
// findings cover overlapping spans with identical confidence, the finding
// from the higher class wins. This is an explicit total order, not an
// artifact of registration order.
type Class int

const (
	ClassEntropy Class = iota + 1
	ClassSchema
	ClassRegex
	ClassChecksum
)

func (c Class) String() string {
	switch c {
	case ClassEntropy:
		return "entropy"
	case ClassSchema:
		return "schema"
	case ClassRegex:
		return "regex"
	case ClassChecksum:
		return "checksum"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Span is a half-open [Start, End) byte range inside the scanned unit.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Unit is the atom of detection: either a plain text fragment (Field empty)
// or the value of one structured-record field, in which case Field carries
// the field path and spans are relative to the field value.
type Unit struct {
	Field string `json:"field,omitempty"`
	Text  string `json:"text"`
}

// Finding is a detected span of potentially sensitive data. Findings are
// value types and never mutated after a detector returns them.
type Finding struct {
	// Type is the sensitive-data category, e.g. "email" or "credit_card".
	Type string `json:"type"`

	// Value is the exact matched substring.
	Value string `json:"value"`

	// Span locates the match inside the unit text.
	Span Span `json:"span"`

	// Field is the field path for structured units, "" for plain text.
	Field string `json:"field,omitempty"`

	// Confidence is always set explicitly by the producing detector.
	Confidence float64 `json:"confidence"`

	// Detector records provenance (the registry identifier).
	Detector string `json:"detector"`

	// Class is the producing detector's category, used for tie-breaking.
	Class Class `json:"-"`

	// Extras carries optional detector metadata (card brand, entropy score).
	Extras map[string]string `json:"extras,omitempty"`
}

// Detector is the extension point for recognizers. Implementations are
// constructed once, hold no mutable state afterwards, and must be safe for
// concurrent Detect calls.
type Detector interface {
	// ID returns the unique registry identifier.
	ID() string

	// Class returns the detector's reconciliation category.
	Class() Class

	// Detect scans one unit and returns zero or more findings. Spans must
	// stay inside the unit bounds and every finding must carry an explicit
	// confidence.
	Detect(unit Unit) ([]Finding, error)
}

// DetectorError records a detector failure during a registry run. Failures
// are isolated: the failing detector's findings are dropped while every
// other detector still contributes.
type DetectorError struct {
	Detector string
	Err      error
}

func (e DetectorError) Error() string {
	return fmt.Sprintf("detector %s: %v", e.Detector, e.Err)
}

func (e DetectorError) Unwrap() error { return e.Err }
