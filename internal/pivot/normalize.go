package pivot

import "regexp"

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	unsafeCharPattern = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// IsValidIdentifier reports whether s is already a safe ASCII identifier.
func IsValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Normalize makes an arbitrary label safe for use as an output column key.
// Valid identifiers pass through unchanged; every other character becomes
// an underscore.
func Normalize(s string) string {
	if IsValidIdentifier(s) {
		return s
	}
	return unsafeCharPattern.ReplaceAllString(s, "_")
}
