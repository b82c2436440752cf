package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// fold applies NFKC compatibility normalization and Unicode case folding so that
// full-width or differently cased input yields the same key.
func fold(s string) string {
	return folder.String(norm.NFKC.String(s))
}

// collapse trims s and replaces internal whitespace runs with a single space.
func collapse(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// SplitName splits a recipient display name into first name and remainder.
// "Jane  Doe Smith" yields ("Jane", "Doe Smith").
func SplitName(full string) (first, last string) {
	fields := strings.FieldsFunc(full, unicode.IsSpace)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

// NameKey returns the normalized lookup key for a first and last name pair.
func NameKey(first, last string) string {
	return fold(collapse(first + " " + last))
}

// HandleKey returns the case-insensitive key for a marketplace handle. A leading
// '@' and surrounding whitespace are ignored.
func HandleKey(handle string) string {
	handle = strings.TrimSpace(handle)
	handle = strings.TrimPrefix(handle, "@")
	return fold(strings.TrimSpace(handle))
}
