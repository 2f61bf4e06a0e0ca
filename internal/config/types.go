package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the on-disk configuration (YAML or JSON).
// Unknown fields are rejected; see Parse.
type Config struct {
	// Name labels every report sent by this process.
	Name string `json:"name"`

	// Debug makes internal notifier faults fatal instead of logged-only.
	Debug bool `json:"debug"`

	// HistoryDir is the root under which per-name report folders are staged.
	HistoryDir string `json:"history_dir"`

	// KeepLast is how many reports stay in the chat (older ones are deleted).
	KeepLast int `json:"keep_last"`

	// DisableUptime drops the uptime line from report captions.
	DisableUptime bool `json:"disable_uptime"`

	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Watch    WatchConfig    `json:"watch"`
}

type TelegramConfig struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token"`
	ChatID     int64  `json:"chat_id"`
	RatePerSec int    `json:"rate_per_sec"`

	// AttachPDF controls whether the generated summary PDF is sent as a
	// document. Defaults to true when omitted.
	AttachPDF *bool `json:"attach_pdf"`
}

type LoggingConfig struct {
	Level string `json:"level"`

	// Console defaults to true when omitted.
	Console *bool       `json:"console"`
	File    LogFileSink `json:"file"`
}

type LogFileSink struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type WatchConfig struct {
	// InboxDir is the directory the watch daemon observes for dropped
	// report folders and loose files.
	InboxDir string `json:"inbox_dir"`

	// SettleDelay is how long an inbox entry must stay quiet before it is
	// picked up (guards against half-written drops). Duration string.
	SettleDelay string `json:"settle_delay"`

	// RetentionSpec is a cron spec for the on-disk retention sweep.
	RetentionSpec string `json:"retention_spec"`

	// RetentionMaxAge deletes staged report folders older than this. Duration string.
	RetentionMaxAge string `json:"retention_max_age"`
}

const (
	defaultHistoryDir      = "./calcnotify_history"
	defaultKeepLast        = 3
	defaultRatePerSec      = 3
	defaultSettleDelay     = 2 * time.Second
	defaultRetentionSpec   = "0 3 * * *"
	defaultRetentionMaxAge = 30 * 24 * time.Hour
)

// Normalize fills defaults in place. Called by Load after a successful parse.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = "Calculation"
	}
	if strings.TrimSpace(c.HistoryDir) == "" {
		c.HistoryDir = defaultHistoryDir
	}
	if c.KeepLast < 1 {
		c.KeepLast = defaultKeepLast
	}
	if c.Telegram.RatePerSec <= 0 {
		c.Telegram.RatePerSec = defaultRatePerSec
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate rejects configs that cannot work. It does not mutate.
func (c *Config) Validate() error {
	if c.Telegram.Enabled {
		if strings.TrimSpace(c.Telegram.Token) == "" {
			return errors.New("telegram.token is required when telegram.enabled")
		}
		if c.Telegram.ChatID == 0 {
			return errors.New("telegram.chat_id is required when telegram.enabled")
		}
	}
	if c.Logging.File.Enabled && strings.TrimSpace(c.Logging.File.Path) == "" {
		return errors.New("logging.file.path is required when logging.file.enabled")
	}
	if _, err := c.Watch.Settle(); err != nil {
		return err
	}
	if _, err := c.Watch.MaxAge(); err != nil {
		return err
	}
	return nil
}

// ConsoleEnabled resolves the console default (on unless explicitly disabled).
func (c LoggingConfig) ConsoleEnabled() bool {
	return c.Console == nil || *c.Console
}

// PDFEnabled resolves the attach_pdf default (on unless explicitly disabled).
func (c TelegramConfig) PDFEnabled() bool {
	return c.AttachPDF == nil || *c.AttachPDF
}

// Settle returns the parsed settle delay with its default applied.
func (w WatchConfig) Settle() (time.Duration, error) {
	return ParseDurationOrDefault("watch.settle_delay", w.SettleDelay, defaultSettleDelay)
}

// MaxAge returns the parsed retention age with its default applied.
func (w WatchConfig) MaxAge() (time.Duration, error) {
	return ParseDurationOrDefault("watch.retention_max_age", w.RetentionMaxAge, defaultRetentionMaxAge)
}

// Spec returns the retention cron spec with its default applied.
func (w WatchConfig) Spec() string {
	if strings.TrimSpace(w.RetentionSpec) == "" {
		return defaultRetentionSpec
	}
	return strings.TrimSpace(w.RetentionSpec)
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
