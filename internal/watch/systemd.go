package watch

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"calcnotify/pkg/logx"
)

// notifyReady tells systemd the daemon is up. A no-op outside systemd
// (SdNotify returns false, nil when NOTIFY_SOCKET is unset).
func notifyReady(log logx.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.Warn("sd_notify failed", logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify: ready")
	}
}

// startWatchdog feeds the systemd watchdog at half its configured interval.
// Returns a stop func; both are no-ops when no watchdog is configured.
func startWatchdog(ctx context.Context, log logx.Logger) (stop func()) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return func() {}
	}

	wctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-wctx.Done():
				return
			case <-t.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
	log.Debug("systemd watchdog enabled", logx.Duration("interval", interval))
	return func() {
		cancel()
		<-done
	}
}
