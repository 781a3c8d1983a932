package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/raaihank/data-sentinel/internal/detect"
)

// Built-in policy templates for common compliance regimes. They give users
// day-zero coverage without writing YAML first; a loaded policy document
// replaces them entirely.

func buildGDPR() (*Model, error) {
	return NewBuilder("gdpr").
		Description("EU GDPR template: masks direct identifiers, tokenizes financial numbers.").
		Mask([]string{detect.TypeEmail}, WithID("gdpr_mask_email"), PreserveDomain()).
		Mask([]string{detect.TypePhone}, WithID("gdpr_mask_phone"), Keep(0, 2)).
		Tokenize([]string{detect.TypeCreditCard}, WithID("gdpr_tokenize_pan"), WithSalt("gdpr::pan"), FormatPreserving()).
		Tokenize([]string{detect.TypeIBAN}, WithID("gdpr_tokenize_iban"), WithSalt("gdpr::iban")).
		Redact([]string{detect.TypeSecret}, WithID("gdpr_redact_secret"), WithReplacement("[GDPR-SECRET]")).
		Build()
}

func buildPCI() (*Model, error) {
	return NewBuilder("pci-dss").
		Description("PCI DSS defaults: PANs redacted, IBANs masked, secrets stripped, fail closed.").
		FailClosed(true).
		Redact([]string{detect.TypeCreditCard}, WithID("pci_redact_pan"), WithReplacement("[PCI-PAN]"), MinConfidence(0.5)).
		Mask([]string{detect.TypeIBAN}, WithID("pci_mask_iban"), Keep(4, 4)).
		Redact([]string{detect.TypeSecret}, WithID("pci_redact_secret"), WithReplacement("[PCI-SECRET]")).
		Build()
}

func buildHIPAA() (*Model, error) {
	return NewBuilder("hipaa").
		Description("HIPAA defaults: identifiers masked, SSNs and NHS numbers redacted, fail closed.").
		FailClosed(true).
		Mask([]string{detect.TypeEmail}, WithID("hipaa_mask_email"), PreserveDomain()).
		Mask([]string{detect.TypePhone}, WithID("hipaa_mask_phone"), Keep(0, 2)).
		Redact([]string{detect.TypeSSNUS}, WithID("hipaa_redact_ssn"), WithReplacement("[HIPAA-SSN]")).
		Redact([]string{detect.TypeNHSNumber}, WithID("hipaa_redact_nhs"), WithReplacement("[HIPAA-NHS]")).
		Redact([]string{detect.TypeSecret}, WithID("hipaa_redact_secret"), WithReplacement("[HIPAA-SECRET]")).
		Build()
}

var builtinFactories = map[string]func() (*Model, error){
	"gdpr":         buildGDPR,
	"gdpr-default": buildGDPR,
	"pci":          buildPCI,
	"pci-dss":      buildPCI,
	"hipaa":        buildHIPAA,
}

// Builtin returns a freshly built copy of a built-in policy. File-like
// identifiers such as "gdpr.yaml" are accepted for convenience.
func Builtin(name string) (*Model, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if idx := strings.LastIndexByte(key, '/'); idx >= 0 {
		key = key[idx+1:]
	}
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		key = strings.TrimSuffix(key, ext)
	}

	factory, ok := builtinFactories[key]
	if !ok {
		return nil, fmt.Errorf("unknown builtin policy %q", name)
	}
	return factory()
}

// IsBuiltin reports whether the identifier resolves to a built-in policy.
func IsBuiltin(name string) bool {
	_, err := Builtin(name)
	return err == nil
}

// BuiltinNames returns the canonical template names. Aliases are hidden.
func BuiltinNames() []string {
	names := []string{"gdpr", "hipaa", "pci"}
	sort.Strings(names)
	return names
}
