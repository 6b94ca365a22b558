package services

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// textPolicy strips all HTML from clerk-entered free text (reference, detail,
// movement notes). These fields are plain text by contract.
var textPolicy = bluemonday.StrictPolicy()

// SanitizeText removes any markup from a free-text input field and trims
// surrounding whitespace.
func SanitizeText(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}
