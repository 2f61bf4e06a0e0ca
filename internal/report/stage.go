// Package report stages report bundles on disk and partitions their
// attachments into Telegram-compliant batches.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Meta is persisted next to every staged report as meta.json.
type Meta struct {
	Title string    `json:"title"`
	Text  string    `json:"text"`
	TS    time.Time `json:"ts"`
}

// SanitizeName maps a notifier name onto something safe to use as a
// directory component. Alphanumerics, underscore, dash and space pass
// through; everything else becomes an underscore.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '_' || r == '-' || r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.TrimSpace(b.String())
}

// NewFolder creates a fresh staging folder under root.
// The name carries a UTC timestamp for humans and a short random suffix so
// two reports within the same second never collide.
func NewFolder(root string) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	ts := time.Now().UTC().Format("20060102T150405Z")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	path := filepath.Join(root, fmt.Sprintf("report_%s_%s", ts, suffix))
	if err := os.Mkdir(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// WriteMeta writes meta.json into the staged folder.
func WriteMeta(folder string, m Meta) error {
	if m.TS.IsZero() {
		m.TS = time.Now().UTC()
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(folder, "meta.json"), b, 0o644)
}

// ReadMeta loads meta.json from a folder. A missing file is not an error;
// it returns a zero Meta so inbox drops without metadata still deliver.
func ReadMeta(folder string) (Meta, error) {
	b, err := os.ReadFile(filepath.Join(folder, "meta.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, nil
		}
		return Meta{}, err
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, fmt.Errorf("meta.json: %w", err)
	}
	return m, nil
}

// SaveFigure renders one figure into the staged folder as figure_<idx>.png.
func SaveFigure(folder string, idx int, render func(io.Writer) error) (string, error) {
	path := filepath.Join(folder, fmt.Sprintf("figure_%d.png", idx))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := render(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// CopyIn copies an attachment into the staged folder, keeping its base name.
// Missing sources are skipped (returned path is empty), matching the
// fire-and-forget nature of report attachments.
func CopyIn(folder, src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer in.Close()

	dst := filepath.Join(folder, filepath.Base(src))
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return dst, nil
}
