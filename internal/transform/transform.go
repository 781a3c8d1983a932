package transform

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/raaihank/data-sentinel/internal/detect"
	"github.com/raaihank/data-sentinel/internal/policy"
)

// ReasonMissingSalt marks a tokenize action demoted to redact because the
// rule carried no salt. The value must never pass through unmodified.
const ReasonMissingSalt = "tokenize-fallback-missing-salt"

// Replacement is the outcome of applying one resolved action to one
// finding. Reversible is false for every destructive action; tokenization
// counts as irreversible because no mapping vault is kept.
type Replacement struct {
	Output     string
	Action     policy.Action
	Reason     string
	Reversible bool
}

// Apply transforms the finding's value according to the resolved action.
// It is pure: audit emission is the caller's job. A tokenize rule without a
// salt falls back to redaction so the fail-closed guarantee holds even when
// the policy is misconfigured.
func Apply(f detect.Finding, res policy.ResolvedAction) Replacement {
	switch res.Kind {
	case policy.ActionAllow:
		return Replacement{Output: f.Value, Action: policy.ActionAllow, Reason: res.Reason, Reversible: true}
	case policy.ActionMask:
		return Replacement{Output: Mask(f.Value, res.Rule), Action: policy.ActionMask, Reason: res.Reason}
	case policy.ActionTokenize:
		if res.Rule == nil || res.Rule.Salt == "" {
			return Replacement{Output: Redact(f.Type, res.Rule), Action: policy.ActionRedact, Reason: ReasonMissingSalt}
		}
		return Replacement{Output: Token(f.Value, res.Rule), Action: policy.ActionTokenize, Reason: res.Reason}
	default:
		return Replacement{Output: Redact(f.Type, res.Rule), Action: policy.ActionRedact, Reason: res.Reason}
	}
}

// Redact returns the placeholder for a finding type, honoring a rule's
// replacement override.
func Redact(findingType string, rule *policy.Rule) string {
	if rule != nil && rule.Replacement != "" {
		return rule.Replacement
	}
	return fmt.Sprintf("[REDACTED:%s]", strings.ToUpper(findingType))
}

// Mask overwrites the value with the rule's glyph, keeping the configured
// head and tail. Output length always equals input length. A value shorter
// than head+tail is masked entirely rather than partially revealed. With
// PreserveDomain set, everything after the last "@" stays visible and only
// the local part is masked.
func Mask(value string, rule *policy.Rule) string {
	head, tail := 0, policy.DefaultKeepTail
	glyph := policy.DefaultMaskGlyph
	preserveDomain := false
	if rule != nil {
		head, tail = rule.KeepHead, rule.KeepTail
		if rule.MaskGlyph != "" {
			glyph = rule.MaskGlyph
		}
		preserveDomain = rule.PreserveDomain
	}

	if preserveDomain {
		if at := strings.LastIndexByte(value, '@'); at > 0 {
			return strings.Repeat(glyph, at) + value[at:]
		}
	}

	runes := []rune(value)
	if len(runes) <= head+tail {
		return strings.Repeat(glyph, len(runes))
	}
	var b strings.Builder
	b.WriteString(string(runes[:head]))
	b.WriteString(strings.Repeat(glyph, len(runes)-head-tail))
	b.WriteString(string(runes[len(runes)-tail:]))
	return b.String()
}

// Token derives a deterministic pseudonym from the value with
// HMAC-SHA256 keyed by the rule's salt. The plain form is "tok_" plus the
// first 32 hex digits of the digest. With FormatPreserving set the token
// instead mirrors the original's shape: digits map to digits, letters to
// letters of the same case, and separators stay where they were, so
// downstream format validation keeps passing.
func Token(value string, rule *policy.Rule) string {
	mac := hmac.New(sha256.New, []byte(rule.Salt))
	mac.Write([]byte(value))
	digest := mac.Sum(nil)

	if !rule.FormatPreserving {
		return "tok_" + hex.EncodeToString(digest)[:32]
	}

	out := []rune(value)
	j := 0
	for i, r := range out {
		b := digest[j%len(digest)]
		switch {
		case r >= '0' && r <= '9':
			out[i] = rune('0' + b%10)
		case r >= 'a' && r <= 'z':
			out[i] = rune('a' + b%26)
		case r >= 'A' && r <= 'Z':
			out[i] = rune('A' + b%26)
		default:
			continue
		}
		j++
	}
	return string(out)
}
