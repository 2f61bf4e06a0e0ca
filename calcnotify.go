// Package calcnotify posts calculation reports to a Telegram chat.
//
// A report is a title, text, optional figures and optional files. Images go
// out as media groups (Telegram allows at most 10 photos per group), other
// files as individual documents, and a generated PDF summary can ride along.
// The chat is kept tidy: only the last KeepLast reports survive, older ones
// are deleted.
package calcnotify

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"calcnotify/internal/history"
	"calcnotify/internal/report"
	"calcnotify/internal/telegram"
	"calcnotify/pkg/logx"
)

var (
	// ErrStopped is returned by Publish after Close.
	ErrStopped = errors.New("notifier stopped")
)

// Sender delivers to the chat. It is satisfied by the built-in Telegram
// client; tests and custom transports can provide their own.
type Sender interface {
	SendMessage(ctx context.Context, html string) (int, error)
	SendPhoto(ctx context.Context, path string, captionHTML string) (int, error)
	SendAlbum(ctx context.Context, paths []string, captionHTML string) ([]int, error)
	SendDocument(ctx context.Context, path string, captionHTML string) (int, error)
	DeleteMessage(ctx context.Context, messageID int) error
}

// TelegramConfig configures the built-in sender. Leave Config.Telegram nil
// (and Config.Sender nil) to run with sending disabled: reports are still
// staged and recorded on disk.
type TelegramConfig struct {
	Token      string
	ChatID     int64
	RatePerSec int
}

type Config struct {
	// Name labels reports from this notifier; it heads every caption and
	// namespaces the on-disk history. Empty means "Calculation".
	Name string

	// HistoryDir is the root for staged report folders and the history
	// database. Empty means "./calcnotify_history".
	HistoryDir string

	// KeepLast is how many reports remain in the chat. Minimum 1.
	KeepLast int

	// SkipPDF disables the PDF summary document.
	SkipPDF bool

	// DisableUptime drops the uptime line from captions.
	DisableUptime bool

	// Debug makes internal notifier faults panic instead of being logged
	// and swallowed. User errors (bad figures, bad paths) are never fatal.
	Debug bool

	// Telegram enables the built-in sender. Ignored when Sender is set.
	Telegram *TelegramConfig

	// Sender overrides the transport entirely.
	Sender Sender

	// Log defaults to a console logger at info level.
	Log logx.Logger
}

// Notifier is bound to one chat and one name. Safe for concurrent use;
// deliveries run in the background and are drained by Close.
type Notifier struct {
	cfg   Config
	name  string // display name
	dir   string // per-name history dir
	log   logx.Logger
	send  Sender
	store history.Store
	start time.Time

	mu        sync.Mutex
	accepting bool
	wg        sync.WaitGroup
}

func New(cfg Config) (*Notifier, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "Calculation"
	}
	if cfg.HistoryDir == "" {
		cfg.HistoryDir = "./calcnotify_history"
	}
	if cfg.KeepLast < 1 {
		cfg.KeepLast = 1
	}

	log := cfg.Log
	if log.IsZero() {
		log = logx.NewConsole("info")
	}
	log = log.With(logx.String("notifier", name))

	dirName := report.SanitizeName(name)
	if dirName == "" {
		dirName = "Calculation"
	}
	dir := filepath.Join(cfg.HistoryDir, dirName)

	store, err := history.Open(history.Config{
		Path:        filepath.Join(dir, "history.db"),
		BusyTimeout: 5 * time.Second,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	send := cfg.Sender
	if send == nil && cfg.Telegram != nil {
		tc, err := telegram.New(telegram.Config{
			Token:      cfg.Telegram.Token,
			ChatID:     cfg.Telegram.ChatID,
			RatePerSec: cfg.Telegram.RatePerSec,
		}, log)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("telegram client: %w", err)
		}
		send = tc
	}

	return &Notifier{
		cfg:       cfg,
		name:      name,
		dir:       dir,
		log:       log,
		send:      send,
		store:     store,
		start:     time.Now(),
		accepting: true,
	}, nil
}

// Name returns the display name.
func (n *Notifier) Name() string { return n.name }

// SetKeepLast changes the pruning depth at runtime (config hot-reload).
func (n *Notifier) SetKeepLast(keep int) {
	if keep < 1 {
		keep = 1
	}
	n.mu.Lock()
	n.cfg.KeepLast = keep
	n.mu.Unlock()
}

func (n *Notifier) keepLast() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cfg.KeepLast
}

// Dir returns the per-name history directory.
func (n *Notifier) Dir() string { return n.dir }

// Sending reports whether a transport is configured.
func (n *Notifier) Sending() bool { return n.send != nil }

// Close stops accepting reports, waits for in-flight deliveries (bounded by
// ctx) and closes the history store.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	wasAccepting := n.accepting
	n.accepting = false
	n.mu.Unlock()

	if !wasAccepting {
		return nil
	}

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		n.log.Warn("close cancelled with deliveries in flight", logx.Err(ctx.Err()))
		return errors.Join(ctx.Err(), n.store.Close())
	}
	return n.store.Close()
}

func (n *Notifier) uptimeLine() string {
	if n.cfg.DisableUptime {
		return ""
	}
	return "Uptime: " + formatUptime(time.Since(n.start))
}

// formatUptime renders an elapsed duration the way humans read it:
// "2 days 3 h 4 min" rather than "51h4m0s". Seconds only show up when
// nothing bigger is worth mentioning alongside them.
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	if days == 1 {
		parts = append(parts, "1 day")
	} else if days > 1 {
		parts = append(parts, fmt.Sprintf("%d days", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d h", hours))
	}
	if minutes > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%d min", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d sec", seconds))
	}
	return strings.Join(parts, " ")
}
