package grading

import "unicode"

// compact lower-cases s and drops every whitespace rune, so " Pa ris " and
// "paris" compare equal.
func compact(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}
