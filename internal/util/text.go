package util

import "strings"

// SanitizeText drops invalid UTF-8 sequences and NUL bytes. Cell values
// extracted from converted spreadsheets occasionally carry both.
func SanitizeText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}
