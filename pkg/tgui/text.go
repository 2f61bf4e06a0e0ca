package tgui

import "unicode/utf8"

// TruncRunes returns s truncated to at most n runes, appending "…" when
// anything was cut. Note the ellipsis itself is one extra rune; callers
// clamping to a Telegram limit pass limit-1 (see ClampMessage).
func TruncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	// One pass: remember where the n-th rune ends, and only cut once an
	// (n+1)-th rune proves the string is actually longer.
	seen := 0
	end := 0
	for i, r := range s {
		seen++
		if seen == n {
			end = i + utf8.RuneLen(r)
			continue
		}
		if seen > n {
			if end <= 0 {
				end = i
			}
			return s[:end] + "…"
		}
	}
	return s
}
