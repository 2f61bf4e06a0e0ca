package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"calcnotify/internal/report"
	"calcnotify/pkg/logx"
)

func TestBundleFromDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run_42")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := report.WriteMeta(dir, report.Meta{Title: "Run 42", Text: "done"}); err != nil {
		t.Fatalf("WriteMeta: %v", err)
	}
	for _, name := range []string{"plot.png", "photo.jpg", "results.csv", ".hidden"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	rep, err := bundleFromDir(dir)
	if err != nil {
		t.Fatalf("bundleFromDir: %v", err)
	}
	if rep.Title != "Run 42" || rep.Text != "done" {
		t.Fatalf("meta not applied: %+v", rep)
	}
	if len(rep.ImagePaths) != 2 {
		t.Fatalf("expected 2 images, got %v", rep.ImagePaths)
	}
	if len(rep.Files) != 1 || filepath.Base(rep.Files[0]) != "results.csv" {
		t.Fatalf("expected results.csv as file, got %v", rep.Files)
	}
}

func TestBundleFromDirWithoutMeta(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "overnight_batch")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	rep, err := bundleFromDir(dir)
	if err != nil {
		t.Fatalf("bundleFromDir: %v", err)
	}
	if rep.Title != "overnight_batch" {
		t.Fatalf("expected folder name as title, got %q", rep.Title)
	}
}

func TestBundleFromFile(t *testing.T) {
	rep := bundleFromFile("/drop/final_plot.png")
	if len(rep.ImagePaths) != 1 || len(rep.Files) != 0 {
		t.Fatalf("png should be an image: %+v", rep)
	}
	rep = bundleFromFile("/drop/summary.txt")
	if len(rep.Files) != 1 || len(rep.ImagePaths) != 0 {
		t.Fatalf("txt should be a file: %+v", rep)
	}
	if rep.Title != "summary.txt" {
		t.Fatalf("expected file name as title, got %q", rep.Title)
	}
}

func TestSkipEntry(t *testing.T) {
	for _, name := range []string{"", sentDir, ".DS_Store", ".partial"} {
		if !skipEntry(name) {
			t.Fatalf("expected %q to be skipped", name)
		}
	}
	if skipEntry("run_42") {
		t.Fatalf("regular entries must not be skipped")
	}
}

func TestSweepDirRespectsPrefixAndAge(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-48 * time.Hour)

	mk := func(name string) string {
		p := filepath.Join(dir, name)
		if err := os.Mkdir(p, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
		return p
	}
	oldReport := mk("report_old")
	freshReport := mk("report_fresh")
	db := filepath.Join(dir, "history.db")
	if err := os.WriteFile(db, []byte("db"), 0o644); err != nil {
		t.Fatalf("write db: %v", err)
	}
	for _, p := range []string{oldReport, db} {
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := sweepDir(dir, "report_", time.Now().Add(-24*time.Hour), logx.Nop())
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(oldReport); !os.IsNotExist(err) {
		t.Fatalf("old report folder should be gone")
	}
	if _, err := os.Stat(freshReport); err != nil {
		t.Fatalf("fresh report folder should survive: %v", err)
	}
	// The database never matches the prefix, old or not.
	if _, err := os.Stat(db); err != nil {
		t.Fatalf("history.db should survive: %v", err)
	}
}

func TestSweepDirMissingIsQuiet(t *testing.T) {
	if removed := sweepDir(filepath.Join(t.TempDir(), "nope"), "", time.Now(), logx.Nop()); removed != 0 {
		t.Fatalf("expected 0 removals, got %d", removed)
	}
}
