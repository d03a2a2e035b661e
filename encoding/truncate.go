package encoding

import "github.com/rivo/uniseg"

// Truncate returns the longest prefix of s, in whole grapheme clusters, whose
// byte length is at most n, followed by suffix appended if any truncation
// occurred. It never returns a string longer than n+len(suffix) bytes worth
// of the suffix, and it never splits a grapheme cluster.
func Truncate(s string, n int, suffix string) string {
	if len(s) <= n {
		return s
	}
	gr := uniseg.NewGraphemes(s)
	end := 0
	for gr.Next() {
		start, stop := gr.Positions()
		_ = start
		if stop > n {
			break
		}
		end = stop
	}
	return s[:end] + suffix
}

// TruncateBytes truncates s to fit within n bytes INCLUDING the byte length
// of suffix, again never splitting a grapheme cluster. If even an empty
// truncation plus suffix would not fit, returns suffix truncated the same way
// with no further suffix.
func TruncateBytes(s string, n int, suffix string) string {
	budget := n - len(suffix)
	if budget < 0 {
		return Truncate(suffix, n, "")
	}
	if len(s) <= budget {
		return s
	}
	gr := uniseg.NewGraphemes(s)
	end := 0
	for gr.Next() {
		_, stop := gr.Positions()
		if stop > budget {
			break
		}
		end = stop
	}
	return s[:end] + suffix
}

// GraphemeCount returns the number of grapheme clusters in s.
func GraphemeCount(s string) int {
	return uniseg.GraphemeClusterCount(s)
}
