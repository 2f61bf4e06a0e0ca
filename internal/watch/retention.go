package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"calcnotify/pkg/logx"
)

var errEmptyInbox = errors.New("watch: inbox dir is empty")

// startRetention schedules the on-disk sweep. Chat pruning happens on every
// delivery already; this only reclaims staged folders from disk.
func (d *Daemon) startRetention(ctx context.Context) (stop func(), err error) {
	if d.cfg.RetentionMaxAge <= 0 {
		return func() {}, nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))
	_, err = c.AddFunc(d.cfg.RetentionSpec, func() {
		d.sweep(ctx)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	d.log.Info("retention sweep scheduled",
		logx.String("spec", d.cfg.RetentionSpec),
		logx.Duration("max_age", d.cfg.RetentionMaxAge),
	)
	return func() {
		sctx := c.Stop()
		// Wait briefly for a running sweep; it is pure filesystem work.
		select {
		case <-sctx.Done():
		case <-time.After(5 * time.Second):
		}
	}, nil
}

// sweep deletes staged report folders older than the retention age, plus
// parked inbox entries of the same vintage.
func (d *Daemon) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-d.cfg.RetentionMaxAge)
	removed := 0
	removed += sweepDir(d.n.Dir(), "report_", cutoff, d.log)
	removed += sweepDir(filepath.Join(d.cfg.InboxDir, sentDir), "", cutoff, d.log)
	if removed > 0 {
		d.log.Info("retention sweep done", logx.Int("removed", removed))
	}
}

// sweepDir removes entries under dir older than cutoff. When prefix is
// non-empty only matching names are considered, so the sweep can never eat
// the history database sitting next to the report folders.
func sweepDir(dir, prefix string, cutoff time.Time, log logx.Logger) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("retention scan failed", logx.String("dir", dir), logx.Err(err))
		}
		return 0
	}
	removed := 0
	for _, e := range entries {
		if prefix != "" && !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			log.Warn("retention remove failed", logx.String("path", p), logx.Err(err))
			continue
		}
		removed++
	}
	return removed
}
