package report

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Heat Sim 2", "Heat Sim 2"},
		{"run/42:final", "run_42_final"},
		{"  padded  ", "padded"},
		{"påverkan", "påverkan"},
		{"***", "___"},
	}
	for _, c := range cases {
		if got := SanitizeName(c.in); got != c.want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNewFolderUnique(t *testing.T) {
	root := t.TempDir()
	a, err := NewFolder(root)
	if err != nil {
		t.Fatalf("NewFolder: %v", err)
	}
	b, err := NewFolder(root)
	if err != nil {
		t.Fatalf("NewFolder: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct folders, got %q twice", a)
	}
	if !strings.HasPrefix(filepath.Base(a), "report_") {
		t.Fatalf("unexpected folder name %q", filepath.Base(a))
	}
	if fi, err := os.Stat(a); err != nil || !fi.IsDir() {
		t.Fatalf("folder not created: %v", err)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	folder := t.TempDir()
	if err := WriteMeta(folder, Meta{Title: "Run 7", Text: "converged"}); err != nil {
		t.Fatalf("WriteMeta: %v", err)
	}
	m, err := ReadMeta(folder)
	if err != nil {
		t.Fatalf("ReadMeta: %v", err)
	}
	if m.Title != "Run 7" || m.Text != "converged" {
		t.Fatalf("unexpected meta: %+v", m)
	}
	if m.TS.IsZero() {
		t.Fatalf("expected timestamp to be filled in")
	}
}

func TestReadMetaMissingIsZero(t *testing.T) {
	m, err := ReadMeta(t.TempDir())
	if err != nil {
		t.Fatalf("ReadMeta: %v", err)
	}
	if m.Title != "" || m.Text != "" {
		t.Fatalf("expected zero meta, got %+v", m)
	}
}

func TestSaveFigureCleansUpOnError(t *testing.T) {
	folder := t.TempDir()
	boom := errors.New("render broke")
	_, err := SaveFigure(folder, 0, func(io.Writer) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected render error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(folder, "figure_0.png")); !os.IsNotExist(err) {
		t.Fatalf("partial figure file left behind")
	}
}

func TestSaveFigureWritesFile(t *testing.T) {
	folder := t.TempDir()
	p, err := SaveFigure(folder, 3, func(w io.Writer) error {
		_, err := w.Write([]byte("png-bytes"))
		return err
	})
	if err != nil {
		t.Fatalf("SaveFigure: %v", err)
	}
	if filepath.Base(p) != "figure_3.png" {
		t.Fatalf("unexpected figure name %q", p)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "png-bytes" {
		t.Fatalf("unexpected figure content %q (%v)", b, err)
	}
}

func TestCopyIn(t *testing.T) {
	srcDir := t.TempDir()
	folder := t.TempDir()

	src := filepath.Join(srcDir, "results.csv")
	if err := os.WriteFile(src, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	dst, err := CopyIn(folder, src)
	if err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	if filepath.Base(dst) != "results.csv" {
		t.Fatalf("unexpected dst %q", dst)
	}
	b, err := os.ReadFile(dst)
	if err != nil || string(b) != "a,b\n1,2\n" {
		t.Fatalf("copy mismatch: %q (%v)", b, err)
	}

	// Missing sources are skipped, not errors.
	dst, err = CopyIn(folder, filepath.Join(srcDir, "nope.csv"))
	if err != nil {
		t.Fatalf("missing source should not error: %v", err)
	}
	if dst != "" {
		t.Fatalf("expected empty dst for missing source, got %q", dst)
	}
}
