package identity

import "strings"

// maskRunes are the redaction placeholders marketplaces use in place of hidden characters.
const maskRunes = "*•●＊"

// Masked reports whether s contains a redaction placeholder. Empty values are
// not masked; callers check emptiness separately.
func Masked(s string) bool {
	return strings.ContainsAny(s, maskRunes)
}

// Usable reports whether s is present and unmasked, i.e. safe to trust.
func Usable(s string) bool {
	return strings.TrimSpace(s) != "" && !Masked(s)
}
