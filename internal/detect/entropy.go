package detect

import (
	"regexp"
	"strconv"

	"github.com/raaihank/data-sentinel/internal/validate"
)

const (
	defaultEntropyThreshold = 4.0
	defaultMinTokenLength   = 20
	maxTokenLength          = 200
)

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9+/=_-]{8,}`)

// EntropyDetector flags probable machine secrets: tokens whose Shannon
// entropy exceeds a threshold and whose length exceeds a minimum. It is the
// least specific detector class, so any typed finding over the same span
// wins reconciliation against it.
type EntropyDetector struct {
	id        string
	threshold float64
	minLength int
}

// NewEntropyDetector creates an entropy detector with the given threshold
// (bits per character) and minimum token length. Non-positive arguments fall
// back to the defaults (4.0 bits, 20 characters).
func NewEntropyDetector(threshold float64, minLength int) *EntropyDetector {
	if threshold <= 0 {
		threshold = defaultEntropyThreshold
	}
	if minLength <= 0 {
		minLength = defaultMinTokenLength
	}
	return &EntropyDetector{id: "high_entropy_token", threshold: threshold, minLength: minLength}
}

func (d *EntropyDetector) ID() string   { return d.id }
func (d *EntropyDetector) Class() Class { return ClassEntropy }

func (d *EntropyDetector) Detect(unit Unit) ([]Finding, error) {
	locs := tokenPattern.FindAllStringIndex(unit.Text, -1)
	if len(locs) == 0 {
		return nil, nil
	}

	var findings []Finding
	for _, loc := range locs {
		token := unit.Text[loc[0]:loc[1]]
		if len(token) < d.minLength || len(token) > maxTokenLength {
			continue
		}
		if !validate.LooksLikeSecret(token) {
			continue
		}
		entropy := validate.Shannon(token)
		if entropy < d.threshold {
			continue
		}
		findings = append(findings, Finding{
			Type:       TypeSecret,
			Value:      token,
			Span:       Span{Start: loc[0], End: loc[1]},
			Field:      unit.Field,
			Confidence: 0.6,
			Detector:   d.id,
			Class:      ClassEntropy,
			Extras: map[string]string{
				"entropy": strconv.FormatFloat(entropy, 'f', 2, 64),
			},
		})
	}
	return findings, nil
}
