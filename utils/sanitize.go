package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(input))
}

// StripTags removes every tag, for single-line fields such as titles.
func StripTags(input string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(input))
}
