package identity

import (
	"strings"
	"unicode"
)

// NormalizePhone converts an unmasked phone number into E.164 form. Input may carry a
// parenthesised country prefix ("(+1)8085551234"), separators, or no country code at
// all, in which case defaultCountry is prepended. Masked or malformed input returns ok=false.
func NormalizePhone(raw, defaultCountry string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || Masked(raw) {
		return "", false
	}
	country, rest, explicit := splitCountry(raw)
	digits, ok := digitsOnly(rest)
	if !ok {
		return "", false
	}
	defaultCountry = strings.TrimPrefix(strings.TrimSpace(defaultCountry), "+")
	if !explicit {
		switch {
		case defaultCountry != "" && len(digits) == nationalLength(defaultCountry):
			country = defaultCountry
		case defaultCountry != "" && len(digits) == nationalLength(defaultCountry)+len(defaultCountry) && strings.HasPrefix(digits, defaultCountry):
			country = defaultCountry
			digits = digits[len(defaultCountry):]
		default:
			return "", false
		}
	}
	full := country + digits
	// E.164 caps the number at 15 digits; below 8 is never a dialable subscriber.
	if country == "" || len(full) < 8 || len(full) > 15 {
		return "", false
	}
	return "+" + full, true
}

// splitCountry strips a "(+1)" or "+1 " style prefix. explicit is false when the
// number carries no country code and the caller must apply the default.
func splitCountry(raw string) (country, rest string, explicit bool) {
	if strings.HasPrefix(raw, "(") {
		end := strings.Index(raw, ")")
		if end < 0 {
			return "", raw, false
		}
		inner := strings.TrimSpace(raw[1:end])
		if !strings.HasPrefix(inner, "+") {
			// "(808) 555-1234": parenthesised area code, not a country prefix.
			return "", raw, false
		}
		code := inner[1:]
		if !allDigits(code) || len(code) > 3 {
			return "", raw, false
		}
		return code, raw[end+1:], true
	}
	if strings.HasPrefix(raw, "+") {
		digits, ok := digitsOnly(raw[1:])
		if !ok {
			return "", raw, false
		}
		code := leadingCountryCode(digits)
		return code, digits[len(code):], code != ""
	}
	return "", raw, false
}

// leadingCountryCode resolves the calling code at the start of an international
// number. Only NANP ("1") is distinguished; other codes take the first two digits.
func leadingCountryCode(digits string) string {
	switch {
	case digits == "":
		return ""
	case digits[0] == '1':
		return "1"
	case len(digits) >= 2:
		return digits[:2]
	default:
		return ""
	}
}

// nationalLength returns the subscriber number length used to decide whether a
// number without an explicit country code is national.
func nationalLength(country string) int {
	switch country {
	case "1":
		return 10
	case "44", "49", "81", "82", "86":
		return 10
	default:
		return 9
	}
}

// digitsOnly strips separators and reports false on any other character.
func digitsOnly(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", false
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return s != ""
}

// PhoneKey derives the digit key persisted alongside a stored phone so masked and
// unmasked values can be compared with a single LIKE query. Mask placeholders are
// kept as '*'; every other non-digit is dropped.
//
//	"+18085551250"   -> "18085551250"
//	"(+1)808*****50" -> "1808*****50"
func PhoneKey(stored string) string {
	var b strings.Builder
	for _, r := range stored {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune(maskRunes, r):
			b.WriteByte('*')
		}
	}
	return b.String()
}

// PhonePattern is the visible skeleton of a masked phone number.
type PhonePattern struct {
	CountryCode string
	Leading     string
	Hidden      int
	Trailing    string
}

// ParseMaskedPhone extracts the visible fragments from a masked phone such as
// "(+1)808*****50". It returns ok=false when the value is not masked, has more
// than one hidden run, or leaves no visible digits to anchor a lookup.
func ParseMaskedPhone(raw string) (PhonePattern, bool) {
	raw = strings.TrimSpace(raw)
	if !Masked(raw) {
		return PhonePattern{}, false
	}
	var p PhonePattern
	rest := raw
	if strings.HasPrefix(rest, "(") {
		end := strings.Index(rest, ")")
		if end < 0 {
			return PhonePattern{}, false
		}
		code := strings.TrimPrefix(strings.TrimSpace(rest[1:end]), "+")
		if !allDigits(code) {
			return PhonePattern{}, false
		}
		p.CountryCode = code
		rest = rest[end+1:]
	} else {
		rest = strings.TrimPrefix(rest, "+")
	}

	const (
		leading = iota
		hidden
		trailing
	)
	state := leading
	var lead, trail strings.Builder
	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9':
			if state == hidden {
				state = trailing
			}
			if state == leading {
				lead.WriteRune(r)
			} else {
				trail.WriteRune(r)
			}
		case strings.ContainsRune(maskRunes, r):
			if state == trailing {
				return PhonePattern{}, false
			}
			state = hidden
			p.Hidden++
		case r == ' ' || r == '-' || r == '.':
		default:
			return PhonePattern{}, false
		}
	}
	p.Leading = lead.String()
	p.Trailing = trail.String()
	if p.Hidden == 0 || p.Leading+p.Trailing == "" {
		return PhonePattern{}, false
	}
	return p, true
}

// LikePattern renders the pattern as a SQL LIKE expression over PhoneKey values.
// Each hidden digit becomes '_', so the pattern matches both unmasked stored
// numbers and stored masks of the same shape.
func (p PhonePattern) LikePattern() string {
	return p.CountryCode + p.Leading + strings.Repeat("_", p.Hidden) + p.Trailing
}

// Matches reports whether a stored phone key fits the pattern, mirroring LikePattern.
func (p PhonePattern) Matches(key string) bool {
	want := p.LikePattern()
	if len(key) != len(want) {
		return false
	}
	for i := 0; i < len(want); i++ {
		if want[i] != '_' && want[i] != key[i] {
			return false
		}
	}
	return true
}
