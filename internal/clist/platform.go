package clist

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// knownPlatforms maps a substring of a resource name to its display label
var knownPlatforms = []struct {
	needle string
	label  string
}{
	{needle: "codechef", label: "CodeChef"},
	{needle: "codeforces", label: "Codeforces"},
	{needle: "leetcode", label: "LeetCode"},
}

// NormalizePlatform turns a resource name such as "codeforces.com" into a display label.
// Unknown names lose their scheme, "www." prefix and ".com" suffix and are capitalized.
func NormalizePlatform(resourceName string) string {
	raw := strings.ToLower(strings.TrimSpace(resourceName))
	if raw == "" || raw == strings.ToLower(notAvailable) {
		return "Unknown"
	}

	for _, p := range knownPlatforms {
		if strings.Contains(raw, p.needle) {
			return p.label
		}
	}

	cleaned := strings.TrimPrefix(raw, "https://")
	cleaned = strings.TrimPrefix(cleaned, "http://")
	cleaned = strings.TrimPrefix(cleaned, "www.")
	cleaned = strings.TrimSuffix(cleaned, "/")
	cleaned = strings.TrimSuffix(cleaned, ".com")
	if cleaned == "" {
		return "Unknown"
	}

	first, size := utf8.DecodeRuneInString(cleaned)
	return string(unicode.ToUpper(first)) + cleaned[size:]
}
