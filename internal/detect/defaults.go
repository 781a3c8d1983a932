package detect

import "github.com/raaihank/data-sentinel/internal/logger"

// DefaultRegistry returns a registry preloaded with all built-in detectors:
// regex (email, phone, SSN, IPv4), checksum-validated (credit card, IBAN,
// NHS number), entropy and schema-hint.
func DefaultRegistry(log *logger.Logger) *Registry {
	r := NewRegistry(log)
	builtin := []Detector{
		NewEmailDetector(),
		NewPhoneDetector(),
		NewSSNDetector(),
		NewIPDetector(),
		NewCreditCardDetector(),
		NewIBANDetector(),
		NewNHSDetector(),
		NewEntropyDetector(0, 0),
		NewSchemaHintDetector(nil),
	}
	for _, d := range builtin {
		// Identifiers in the builtin table are unique by construction.
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}
