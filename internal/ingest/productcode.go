package ingest

import "regexp"

var productCodePattern = regexp.MustCompile(`(\d{7})\s*-`)

// ExtractProductCode returns the 7-digit product code that precedes a hyphen
// in labels such as "4003018 - Alcantarillados construidos", or "" when the
// label carries none.
func ExtractProductCode(label string) string {
	m := productCodePattern.FindStringSubmatch(label)
	if m == nil {
		return ""
	}
	return m[1]
}
