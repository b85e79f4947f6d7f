package dispatch

import (
	"strings"
	"unicode"
)

// splitFields splits s on runs of whitespace into at most maxsplit+1
// fields. The last field keeps its inner whitespace. A negative maxsplit
// means no limit.
func splitFields(s string, maxsplit int) []string {
	var out []string
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return out
		}
		if maxsplit >= 0 && len(out) == maxsplit {
			return append(out, s)
		}
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			return append(out, s)
		}
		out = append(out, s[:end])
		s = s[end:]
	}
}
