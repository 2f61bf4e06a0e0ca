package tgui

const (
	// MaxMessageRunes is Telegram's sendMessage text limit.
	MaxMessageRunes = 4096

	// MaxCaptionRunes is Telegram's media caption limit (photos, documents, albums).
	MaxCaptionRunes = 1024

	// MaxAlbumSize is the largest media group Telegram accepts per sendMediaGroup call.
	MaxAlbumSize = 10
)

// ClampMessage truncates s to fit sendMessage.
// TruncRunes appends the ellipsis after the cut, so clamp one rune short.
func ClampMessage(s string) string { return TruncRunes(s, MaxMessageRunes-1) }

// ClampCaption truncates s to fit a media caption.
func ClampCaption(s string) string { return TruncRunes(s, MaxCaptionRunes-1) }

// CaptionFits reports whether s can be used as a media caption unmodified.
func CaptionFits(s string) bool { return runeCount(s) <= MaxCaptionRunes }

func runeCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
