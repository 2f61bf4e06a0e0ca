// Package watch is the inbox daemon: it observes a drop directory and
// publishes everything that lands there. A calculation that cannot link
// this module can still report by writing a folder with images, files and
// an optional meta.json into the inbox.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"calcnotify"
	"calcnotify/internal/report"
	"calcnotify/pkg/logx"
)

// sentDir is where processed inbox entries are parked, inside the inbox so
// the move is always same-filesystem.
const sentDir = ".sent"

// rescanEvery backs up fsnotify: a periodic sweep picks up anything whose
// events were missed (overflow, watcher restart, drops before startup).
const rescanEvery = time.Minute

type Config struct {
	InboxDir    string
	SettleDelay time.Duration

	// RetentionSpec is a cron expression for the on-disk sweep.
	RetentionSpec string
	// RetentionMaxAge is how old a staged report folder may get.
	RetentionMaxAge time.Duration
}

type Daemon struct {
	cfg Config
	n   *calcnotify.Notifier
	log logx.Logger

	// timersMu guards the per-entry settle timers and the closed flag.
	timersMu sync.Mutex
	timers   map[string]*time.Timer
	closed   bool

	wg sync.WaitGroup
}

func New(cfg Config, n *calcnotify.Notifier, log logx.Logger) (*Daemon, error) {
	if strings.TrimSpace(cfg.InboxDir) == "" {
		return nil, errEmptyInbox
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	if err := os.MkdirAll(filepath.Join(cfg.InboxDir, sentDir), 0o755); err != nil {
		return nil, err
	}
	return &Daemon{
		cfg:    cfg,
		n:      n,
		log:    log,
		timers: map[string]*time.Timer{},
	}, nil
}

// Run blocks until ctx is done. It announces readiness to systemd, starts
// the retention schedule and then watches the inbox.
func (d *Daemon) Run(ctx context.Context) error {
	notifyReady(d.log)
	stopWatchdog := startWatchdog(ctx, d.log)
	defer stopWatchdog()

	stopCron, err := d.startRetention(ctx)
	if err != nil {
		return err
	}
	defer stopCron()

	// Catch up on anything dropped before we started.
	d.rescan(ctx)

	err = d.watchInbox(ctx)

	// Disarm pending settle timers, then let in-flight publishes finish.
	d.timersMu.Lock()
	d.closed = true
	for _, t := range d.timers {
		t.Stop()
	}
	d.timersMu.Unlock()
	d.wg.Wait()
	return err
}

func (d *Daemon) watchInbox(ctx context.Context) error {
	ticker := time.NewTicker(rescanEvery)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		w, err := fsnotify.NewWatcher()
		if err == nil {
			err = w.Add(d.cfg.InboxDir)
			if err != nil {
				_ = w.Close()
			}
		}
		if err != nil {
			d.log.Warn("inbox watch init failed", logx.Err(err), logx.String("dir", d.cfg.InboxDir))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
				continue
			}
		}
		d.log.Info("inbox watch started", logx.String("dir", d.cfg.InboxDir))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return nil
			case <-ticker.C:
				d.rescan(ctx)
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					d.touch(ctx, ev.Name)
				}
			case werr, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if werr != nil {
					d.log.Warn("inbox watch error", logx.Err(werr))
				}
			}
		}

		_ = w.Close()
		d.log.Warn("inbox watcher stopped; restarting")
	}
}

// touch (re)arms the settle timer for an inbox entry. The entry is only
// processed once it has been quiet for the settle delay, which protects
// against picking up half-written drops.
func (d *Daemon) touch(ctx context.Context, path string) {
	name := filepath.Base(path)
	if skipEntry(name) {
		return
	}
	entry := filepath.Join(d.cfg.InboxDir, name)

	d.timersMu.Lock()
	defer d.timersMu.Unlock()
	if d.closed {
		return
	}
	if t, ok := d.timers[name]; ok {
		t.Stop()
	}
	d.timers[name] = time.AfterFunc(d.cfg.SettleDelay, func() {
		d.timersMu.Lock()
		delete(d.timers, name)
		if d.closed {
			d.timersMu.Unlock()
			return
		}
		d.wg.Add(1)
		d.timersMu.Unlock()
		defer d.wg.Done()

		d.process(ctx, entry)
	})
}

// rescan arms settle timers for every present entry. Entries already being
// timed just get their timer refreshed.
func (d *Daemon) rescan(ctx context.Context) {
	entries, err := os.ReadDir(d.cfg.InboxDir)
	if err != nil {
		d.log.Warn("inbox rescan failed", logx.Err(err))
		return
	}
	for _, e := range entries {
		if skipEntry(e.Name()) {
			continue
		}
		d.touch(ctx, e.Name())
	}
}

func skipEntry(name string) bool {
	return name == "" || name == sentDir || strings.HasPrefix(name, ".")
}

// process publishes one settled inbox entry and parks it under .sent.
func (d *Daemon) process(ctx context.Context, entry string) {
	if ctx.Err() != nil {
		return
	}
	fi, err := os.Stat(entry)
	if err != nil {
		// Raced with manual cleanup or a previous process call.
		return
	}

	var rep calcnotify.Report
	if fi.IsDir() {
		rep, err = bundleFromDir(entry)
		if err != nil {
			d.log.Warn("inbox entry unreadable", logx.String("entry", entry), logx.Err(err))
			return
		}
	} else {
		rep = bundleFromFile(entry)
	}

	folder, err := d.n.Publish(ctx, rep)
	if err != nil {
		d.log.Error("inbox publish failed", logx.String("entry", entry), logx.Err(err))
		return
	}
	d.log.Info("inbox entry published",
		logx.String("entry", filepath.Base(entry)),
		logx.String("folder", filepath.Base(folder)),
	)

	parked := filepath.Join(d.cfg.InboxDir, sentDir, filepath.Base(entry))
	// A name collision with an earlier drop gets a timestamp suffix.
	if _, err := os.Stat(parked); err == nil {
		parked += "." + time.Now().UTC().Format("20060102T150405Z")
	}
	if err := os.Rename(entry, parked); err != nil {
		d.log.Warn("inbox entry park failed", logx.String("entry", entry), logx.Err(err))
	}
}

// bundleFromDir turns a dropped folder into a Report: meta.json supplies
// title/text when present, photos become images, the rest become files.
func bundleFromDir(dir string) (calcnotify.Report, error) {
	meta, err := report.ReadMeta(dir)
	if err != nil {
		return calcnotify.Report{}, err
	}
	rep := calcnotify.Report{Title: meta.Title, Text: meta.Text}
	if rep.Title == "" {
		rep.Title = filepath.Base(dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return calcnotify.Report{}, err
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == "meta.json" || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if report.IsPhoto(p) {
			rep.ImagePaths = append(rep.ImagePaths, p)
		} else {
			rep.Files = append(rep.Files, p)
		}
	}
	return rep, nil
}

// bundleFromFile wraps a loose dropped file as a single-attachment report.
func bundleFromFile(path string) calcnotify.Report {
	rep := calcnotify.Report{Title: filepath.Base(path)}
	if report.IsPhoto(path) {
		rep.ImagePaths = []string{path}
	} else {
		rep.Files = []string{path}
	}
	return rep
}
