package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLDefaults(t *testing.T) {
	path := writeConfig(t, "c.yaml", `
name: Heat Sim
telegram:
  enabled: true
  token: "123:abc"
  chat_id: -100200300
`)
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "Heat Sim" {
		t.Fatalf("unexpected name %q", cfg.Name)
	}
	if cfg.KeepLast != defaultKeepLast {
		t.Fatalf("keep_last default not applied: %d", cfg.KeepLast)
	}
	if cfg.HistoryDir != defaultHistoryDir {
		t.Fatalf("history_dir default not applied: %q", cfg.HistoryDir)
	}
	if cfg.Telegram.RatePerSec != defaultRatePerSec {
		t.Fatalf("rate default not applied: %d", cfg.Telegram.RatePerSec)
	}
	if !cfg.Telegram.PDFEnabled() {
		t.Fatalf("attach_pdf should default to true")
	}
	if !cfg.Logging.ConsoleEnabled() {
		t.Fatalf("console should default to true")
	}
	if got := m.Get(); got == nil || got.Name != "Heat Sim" {
		t.Fatalf("Get did not return committed config")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "c.yaml", `
name: x
chat: 42
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatalf("expected unknown-field error")
	}
}

func TestLoadRejectsMissingToken(t *testing.T) {
	path := writeConfig(t, "c.json", `{"telegram": {"enabled": true, "chat_id": 5}}`)
	_, err := NewManager(path).Load()
	if err == nil || !strings.Contains(err.Error(), "telegram.token") {
		t.Fatalf("expected token validation error, got %v", err)
	}
}

func TestLoadJSONTrailingData(t *testing.T) {
	path := writeConfig(t, "c.json", `{"name": "a"}{"name": "b"}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatalf("expected trailing-data error")
	}
}

func TestAttachPDFExplicitFalse(t *testing.T) {
	path := writeConfig(t, "c.yaml", `
telegram:
  attach_pdf: false
`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.PDFEnabled() {
		t.Fatalf("attach_pdf: false not honored")
	}
}

func TestWatchDurations(t *testing.T) {
	w := WatchConfig{SettleDelay: "5s", RetentionMaxAge: "48h"}
	if d, err := w.Settle(); err != nil || d != 5*time.Second {
		t.Fatalf("Settle = %v, %v", d, err)
	}
	if d, err := w.MaxAge(); err != nil || d != 48*time.Hour {
		t.Fatalf("MaxAge = %v, %v", d, err)
	}

	w = WatchConfig{}
	if d, err := w.Settle(); err != nil || d != defaultSettleDelay {
		t.Fatalf("default Settle = %v, %v", d, err)
	}
	if w.Spec() != defaultRetentionSpec {
		t.Fatalf("default Spec = %q", w.Spec())
	}

	w = WatchConfig{SettleDelay: "banana"}
	if _, err := w.Settle(); err == nil {
		t.Fatalf("expected duration parse error")
	}
}
