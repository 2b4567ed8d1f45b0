package sources

import "strings"

// Length bounds applied to every candidate regardless of configured filters.
const (
	minContentLength = 5
	maxContentLength = 2000
)

// keepContent reports whether content passes the base length gate and every
// configured filter. Unknown filter names are ignored.
func keepContent(content string, filters []string) bool {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < minContentLength || len(trimmed) > maxContentLength {
		return false
	}

	for _, f := range filters {
		switch f {
		case "no_empty":
			if trimmed == "" {
				return false
			}
		case "no_short":
			if len(trimmed) < 20 {
				return false
			}
		case "no_long":
			if len(trimmed) > 500 {
				return false
			}
		case "no_url":
			if strings.Contains(trimmed, "http://") || strings.Contains(trimmed, "https://") {
				return false
			}
		case "no_email":
			if strings.Contains(trimmed, "@") && strings.Contains(trimmed, ".") {
				return false
			}
		}
	}

	return true
}
