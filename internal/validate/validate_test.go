package validate

import (
	"math"
	"strings"
	"testing"
)

func TestLuhn(t *testing.T) {
	t.Run("ValidPAN", func(t *testing.T) {
		if !Luhn("4111111111111111") {
			t.Error("4111111111111111 should pass the Luhn check")
		}
	})

	t.Run("InvalidPAN", func(t *testing.T) {
		if Luhn("4111111111111112") {
			t.Error("4111111111111112 should fail the Luhn check")
		}
	})

	t.Run("SeparatorsIgnored", func(t *testing.T) {
		if !Luhn("4111-1111-1111-1111") {
			t.Error("separators should be stripped before checking")
		}
	})

	t.Run("TooShort", func(t *testing.T) {
		if Luhn("4111") {
			t.Error("strings under 12 digits should never validate")
		}
	})

	t.Run("NotANumber", func(t *testing.T) {
		if Luhn("not a card number") {
			t.Error("non-numeric input should fail, not panic")
		}
	})
}

func TestCardBrand(t *testing.T) {
	cases := []struct {
		pan  string
		want string
	}{
		{"4111111111111111", "VISA"},
		{"5500005555555559", "MASTERCARD"},
		{"2221000000000009", "MASTERCARD"},
		{"378282246310005", "AMEX"},
		{"3530111333300000", "JCB"},
		{"6011000990139424", "DISCOVER"},
		{"36700102000000", "DINERS_CLUB"},
		{"6200000000000005", "UNIONPAY"},
		{"", ""},
		{"99", ""},
	}
	for _, c := range cases {
		if got := CardBrand(c.pan); got != c.want {
			t.Errorf("CardBrand(%q) = %q, want %q", c.pan, got, c.want)
		}
	}
}

func TestIBAN(t *testing.T) {
	const valid = "GB29NWBK60161331926819"

	t.Run("Valid", func(t *testing.T) {
		if !IBAN(valid) {
			t.Errorf("%s should validate", valid)
		}
	})

	t.Run("SpacesAndCase", func(t *testing.T) {
		if !IBAN("gb29 nwbk 6016 1331 9268 19") {
			t.Error("spaces and lowercase should be normalized")
		}
	})

	t.Run("AnySingleDigitFlipFails", func(t *testing.T) {
		for i := 0; i < len(valid); i++ {
			c := valid[i]
			if c < '0' || c > '9' {
				continue
			}
			flipped := byte('0' + (int(c-'0')+1)%10)
			mutated := valid[:i] + string(flipped) + valid[i+1:]
			if IBAN(mutated) {
				t.Errorf("flipping digit at index %d (%s) should fail validation", i, mutated)
			}
		}
	})

	t.Run("WrongCountryLength", func(t *testing.T) {
		if IBAN("GB29NWBK6016133192681") {
			t.Error("GB IBANs must be 22 characters")
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		for _, s := range []string{"", "XX", "1234", strings.Repeat("A", 40)} {
			if IBAN(s) {
				t.Errorf("%q should not validate", s)
			}
		}
	})
}

func TestNHS(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		// 943 476 5919 is the published example NHS number.
		if !NHS("9434765919") {
			t.Error("9434765919 should validate")
		}
		if !NHS("943 476 5919") {
			t.Error("spacing should be tolerated")
		}
	})

	t.Run("BadCheckDigit", func(t *testing.T) {
		if NHS("9434765918") {
			t.Error("9434765918 should fail the mod-11 check")
		}
	})

	t.Run("WrongLength", func(t *testing.T) {
		if NHS("943476591") || NHS("94347659190") {
			t.Error("only 10-digit numbers can validate")
		}
	})
}

func TestShannon(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		if Shannon("") != 0 {
			t.Error("empty string has zero entropy")
		}
	})

	t.Run("SingleSymbol", func(t *testing.T) {
		if Shannon("aaaaaaaa") != 0 {
			t.Error("a single repeated symbol has zero entropy")
		}
	})

	t.Run("UniformDistribution", func(t *testing.T) {
		// Four equally frequent symbols carry exactly 2 bits each.
		got := Shannon("abcdabcd")
		if math.Abs(got-2.0) > 1e-9 {
			t.Errorf("expected 2.0 bits, got %f", got)
		}
	})

	t.Run("RandomLooking", func(t *testing.T) {
		if Shannon("8f4kZ2mQ9xL1vB7nC3jW") < 3.5 {
			t.Error("a random-looking token should score high")
		}
	})
}

func TestLooksLikeSecret(t *testing.T) {
	if LooksLikeSecret("short") {
		t.Error("short tokens are not secrets")
	}
	if !LooksLikeSecret("c2VjcmV0LXZhbHVlLWhlcmUtMTIzNA==") {
		t.Error("base64-shaped token should match")
	}
	if !LooksLikeSecret("deadbeefdeadbeefdeadbeef") {
		t.Error("hex-shaped token should match")
	}
	if LooksLikeSecret("this is just a sentence!") {
		t.Error("prose should not match")
	}
}
