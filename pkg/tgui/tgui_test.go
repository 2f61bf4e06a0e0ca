package tgui

import (
	"strings"
	"testing"
)

func TestEscAndWrap(t *testing.T) {
	if got := B("a<b>&c").String(); got != "<b>a&lt;b&gt;&amp;c</b>" {
		t.Fatalf("unexpected B output: %q", got)
	}
	if got := Pre("x < y").String(); got != "<pre><code>x &lt; y</code></pre>" {
		t.Fatalf("unexpected Pre output: %q", got)
	}
}

func TestJoinHSkipsBlank(t *testing.T) {
	got := JoinH("\n", B("head"), Esc(""), H("  "), Esc("tail")).String()
	if got != "<b>head</b>\ntail" {
		t.Fatalf("unexpected join: %q", got)
	}
}

func TestTruncRunes(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hell…"},
		{"héllö", 4, "héll…"},
		{"hello", 0, ""},
	}
	for _, c := range cases {
		if got := TruncRunes(c.in, c.n); got != c.want {
			t.Fatalf("TruncRunes(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestClampStaysWithinLimits(t *testing.T) {
	long := strings.Repeat("яж", 5000)

	if n := runeLen(ClampMessage(long)); n > MaxMessageRunes {
		t.Fatalf("clamped message has %d runes, limit %d", n, MaxMessageRunes)
	}
	if n := runeLen(ClampCaption(long)); n > MaxCaptionRunes {
		t.Fatalf("clamped caption has %d runes, limit %d", n, MaxCaptionRunes)
	}
	if !CaptionFits("short") {
		t.Fatalf("short caption should fit")
	}
	if CaptionFits(long) {
		t.Fatalf("long caption should not fit")
	}
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
