// Package history persists which Telegram messages belong to which report,
// so old reports can be pruned from the chat even across process restarts.
package history

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("history store disabled")

// Record describes one delivered report.
type Record struct {
	ID         int64
	Name       string
	Folder     string
	MessageIDs []int
	CreatedAt  time.Time
}

type Config struct {
	// Path of the sqlite database file.
	Path string

	BusyTimeout time.Duration
}

type Store interface {
	// Push appends a delivered report. The per-name record count is capped;
	// overflow rows beyond the cap are dropped silently (their chat messages
	// were already deleted by keep-last pruning long before the cap bites).
	Push(ctx context.Context, r Record) error

	// PruneKeepLast removes records beyond the newest keep for this name and
	// returns the popped records oldest-first, so the caller can delete their
	// chat messages.
	PruneKeepLast(ctx context.Context, name string, keep int) ([]Record, error)

	// Recent returns up to limit records for this name, newest first.
	Recent(ctx context.Context, name string, limit int) ([]Record, error)

	// RecordSystemError tracks a message ID used for an internal-error notice.
	RecordSystemError(ctx context.Context, messageID int) error

	Close() error
}
