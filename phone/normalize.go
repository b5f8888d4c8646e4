package phone

import (
	"strconv"
	"strings"
)

const countryCode = "55"

// NormalizeE164 reduces a raw digit run to a Brazilian E.164 number
// (+55 DDD subscriber). The second return value is false when the input
// cannot be a valid Brazilian number.
func NormalizeE164(raw string) (string, bool) {
	digits := onlyDigits(raw)
	if digits == "" {
		return "", false
	}

	digits = strings.TrimPrefix(digits, countryCode)

	// Trunk prefix.
	if (len(digits) == 11 || len(digits) == 12) && digits[0] == '0' {
		digits = digits[1:]
	}

	if len(digits) != 10 && len(digits) != 11 {
		return "", false
	}

	ddd, subscriber := digits[:2], digits[2:]
	if ddd[0] == '0' {
		return "", false
	}
	if n, err := strconv.Atoi(ddd); err != nil || n < 11 || n > 99 {
		return "", false
	}
	if len(subscriber) != 8 && len(subscriber) != 9 {
		return "", false
	}
	if subscriber[0] == '0' {
		return "", false
	}

	return "+" + countryCode + ddd + subscriber, true
}

// FormatPtBr renders a normalized number as +55 (DD) NNNNN-NNNN, or
// +55 (DD) NNNN-NNNN for 8-digit subscribers. Anything that is not a
// normalized Brazilian number is returned unchanged.
func FormatPtBr(e164 string) string {
	digits := onlyDigits(e164)
	if !strings.HasPrefix(digits, countryCode) || len(digits) < 12 {
		return e164
	}
	national := digits[len(countryCode):]
	ddd, subscriber := national[:2], national[2:]

	switch len(subscriber) {
	case 9:
		return "+55 (" + ddd + ") " + subscriber[:5] + "-" + subscriber[5:]
	case 8:
		return "+55 (" + ddd + ") " + subscriber[:4] + "-" + subscriber[4:]
	default:
		return e164
	}
}

// AreaCode returns the DDD of a normalized number, or "".
func AreaCode(e164 string) string {
	digits := onlyDigits(e164)
	if !strings.HasPrefix(digits, countryCode) || len(digits) < 12 {
		return ""
	}
	return digits[2:4]
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
