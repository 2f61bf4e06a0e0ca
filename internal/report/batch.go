package report

import (
	"path/filepath"
	"strings"

	"calcnotify/pkg/tgui"
)

// Batches is the delivery plan for one report's attachments:
// photo albums of at most tgui.MaxAlbumSize images each, and the
// remaining files as individual document uploads.
type Batches struct {
	Albums    [][]string
	Documents []string
}

// Empty reports whether there is nothing to upload.
func (b Batches) Empty() bool { return len(b.Albums) == 0 && len(b.Documents) == 0 }

// photoExts are the formats Telegram accepts inside a photo media group.
// Anything else rides along as a document.
var photoExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// IsPhoto reports whether path can be a media-group photo, by extension.
func IsPhoto(path string) bool {
	return photoExts[strings.ToLower(filepath.Ext(path))]
}

// Partition splits staged attachments into Telegram-compliant batches.
//
// Order is preserved: images keep their given order across album chunks,
// and non-photo "images" (e.g. an SVG handed in as an image path) are
// demoted to documents ahead of the explicit files.
func Partition(images, files []string) Batches {
	var b Batches

	var photos []string
	for _, p := range images {
		if p == "" {
			continue
		}
		if IsPhoto(p) {
			photos = append(photos, p)
		} else {
			b.Documents = append(b.Documents, p)
		}
	}

	for len(photos) > 0 {
		n := len(photos)
		if n > tgui.MaxAlbumSize {
			n = tgui.MaxAlbumSize
		}
		b.Albums = append(b.Albums, photos[:n])
		photos = photos[n:]
	}

	for _, p := range files {
		if p == "" {
			continue
		}
		b.Documents = append(b.Documents, p)
	}
	return b
}
