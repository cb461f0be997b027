package util

import "strings"

const ellipsis = "..."

// Preview collapses runs of whitespace to single spaces and truncates the
// result to at most maxRunes runes, ending in "..." when shortened. It is
// UTF-8 safe and prefers to cut at a word boundary in the final quarter.
func Preview(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= len(ellipsis) {
		return ellipsis[:maxRunes]
	}

	cut := maxRunes - len(ellipsis)
	for i := cut; i > cut*3/4; i-- {
		if runes[i] == ' ' {
			cut = i
			break
		}
	}
	return strings.TrimRight(string(runes[:cut]), " ") + ellipsis
}
