// Package validate contains the pure checksum and scoring functions used by
// detectors to upgrade or downgrade the confidence of raw pattern matches.
// Every function here is stateless and never panics: malformed input simply
// fails validation.
package validate

import (
	"math"
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D+`)

// DigitsOnly strips all non-digit characters from a string.
func DigitsOnly(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// Luhn reports whether a string of digits passes the mod-10 weighted digit
// sum. Non-digit characters are stripped first. Strings shorter than 12
// digits never validate.
func Luhn(num string) bool {
	d := DigitsOnly(num)
	if len(d) < 12 {
		return false
	}
	total := 0
	alt := false
	for i := len(d) - 1; i >= 0; i-- {
		x := int(d[i] - '0')
		if alt {
			x *= 2
			if x > 9 {
				x -= 9
			}
		}
		total += x
		alt = !alt
	}
	return total%10 == 0
}

// CardBrand guesses the payment card brand from PAN digits by prefix and
// length. Returns "" when no common brand matches.
func CardBrand(pan string) string {
	d := DigitsOnly(pan)
	if len(d) < 2 {
		return ""
	}

	switch {
	case d[0] == '4' && (len(d) == 13 || len(d) == 16 || len(d) == 19):
		return "VISA"
	case twoDigit(d) >= 51 && twoDigit(d) <= 55 && len(d) == 16:
		return "MASTERCARD"
	case fourDigit(d) >= 2221 && fourDigit(d) <= 2720 && len(d) == 16:
		return "MASTERCARD"
	case (strings.HasPrefix(d, "34") || strings.HasPrefix(d, "37")) && len(d) == 15:
		return "AMEX"
	case strings.HasPrefix(d, "35") && len(d) == 16:
		return "JCB"
	case strings.HasPrefix(d, "6011") || strings.HasPrefix(d, "64") || strings.HasPrefix(d, "65"):
		return "DISCOVER"
	case d[:2] == "36" || d[:2] == "38" || (len(d) >= 4 && (d[:4] == "3000" || d[:4] == "3050" || d[:4] == "3095")):
		return "DINERS_CLUB"
	case strings.HasPrefix(d, "62"):
		return "UNIONPAY"
	case strings.HasPrefix(d, "50") || strings.HasPrefix(d, "56") || strings.HasPrefix(d, "57") ||
		strings.HasPrefix(d, "58") || strings.HasPrefix(d, "63") || strings.HasPrefix(d, "67"):
		return "MAESTRO"
	}
	return ""
}

func twoDigit(d string) int {
	if len(d) < 2 {
		return 0
	}
	return int(d[0]-'0')*10 + int(d[1]-'0')
}

func fourDigit(d string) int {
	n := 0
	if len(d) < 4 {
		return 0
	}
	for i := 0; i < 4; i++ {
		n = n*10 + int(d[i]-'0')
	}
	return n
}

var ibanShape = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)

// ibanLengths holds the expected total length for common country codes.
var ibanLengths = map[string]int{
	"GB": 22, "DE": 22, "FR": 27, "ES": 24, "IT": 27,
	"NL": 18, "BE": 16, "CH": 21, "IE": 22, "PL": 28,
}

// IBAN validates an IBAN using the ISO 7064 mod-97 check over the rearranged
// string. Spaces are tolerated, case is normalized.
func IBAN(iban string) bool {
	s := strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	if !ibanShape.MatchString(s) {
		return false
	}
	if want, ok := ibanLengths[s[:2]]; ok && len(s) != want {
		return false
	}

	// Move the first four characters to the end, then map letters to
	// numbers (A=10 .. Z=35) and take the running remainder mod 97.
	rearranged := s[4:] + s[:4]
	remainder := 0
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		if c >= 'A' && c <= 'Z' {
			n := int(c-'A') + 10
			remainder = (remainder*100 + n) % 97
		} else {
			remainder = (remainder*10 + int(c-'0')) % 97
		}
	}
	return remainder == 1
}

// NHS validates a UK NHS number using the weighted mod-11 checksum
// (weights 10..2 over the first nine digits). A computed check digit of 10
// means the number is invalid; 11 maps to 0.
func NHS(n string) bool {
	d := DigitsOnly(n)
	if len(d) != 10 {
		return false
	}
	total := 0
	for i := 0; i < 9; i++ {
		total += int(d[i]-'0') * (10 - i)
	}
	check := 11 - (total % 11)
	if check == 11 {
		check = 0
	}
	if check == 10 {
		return false
	}
	return check == int(d[9]-'0')
}

// Shannon returns the Shannon entropy in bits per character of s.
func Shannon(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	n := 0
	for _, r := range s {
		counts[r]++
		n++
	}
	h := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}

var (
	base64ish = regexp.MustCompile(`^[A-Za-z0-9+/=_-]+$`)
	hexish    = regexp.MustCompile(`^[0-9a-fA-F]+$`)
)

// LooksLikeSecret is a quick shape heuristic: base64/hex-ish alphabet plus a
// minimum length. It does not score entropy; see Shannon for that.
func LooksLikeSecret(token string) bool {
	if len(token) < 20 {
		return false
	}
	return base64ish.MatchString(token) || hexish.MatchString(token)
}
