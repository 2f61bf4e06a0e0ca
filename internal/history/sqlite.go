package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"calcnotify/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// maxRecordsPerName bounds the table even if keep-last pruning never runs
// (e.g. a notifier that only ever pushes with sending disabled).
const maxRecordsPerName = 200

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func Open(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	st.log.Debug("history store opened", logx.String("path", cfg.Path))
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Push(ctx context.Context, r Record) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	ids, err := json.Marshal(r.MessageIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports(name, folder, msg_ids, created_at) VALUES(?,?,?,?)`,
		r.Name, r.Folder, string(ids), r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return err
	}
	// Enforce the hard cap. Rows dropped here are beyond any sane keep_last,
	// so no caller needs their message IDs back.
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM reports WHERE name = ? AND id NOT IN (
		   SELECT id FROM reports WHERE name = ? ORDER BY created_at DESC, id DESC LIMIT ?
		 )`,
		r.Name, r.Name, maxRecordsPerName,
	)
	return err
}

func (s *sqliteStore) PruneKeepLast(ctx context.Context, name string, keep int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if keep < 1 {
		keep = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, name, folder, msg_ids, created_at FROM reports
		 WHERE name = ? AND id NOT IN (
		   SELECT id FROM reports WHERE name = ? ORDER BY created_at DESC, id DESC LIMIT ?
		 )
		 ORDER BY created_at ASC, id ASC`,
		name, name, keep,
	)
	if err != nil {
		return nil, err
	}
	popped, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(popped) == 0 {
		return nil, tx.Commit()
	}

	for _, r := range popped {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, r.ID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return popped, nil
}

func (s *sqliteStore) Recent(ctx context.Context, name string, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = maxRecordsPerName
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, folder, msg_ids, created_at FROM reports
		 WHERE name = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		name, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (s *sqliteStore) RecordSystemError(ctx context.Context, messageID int) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO system_errors(message_id, created_at) VALUES(?,?)`,
		messageID, time.Now().UnixMilli(),
	)
	return err
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var (
			r   Record
			ids string
			ms  int64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Folder, &ids, &ms); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ids), &r.MessageIDs); err != nil {
			// A corrupt row should not wedge pruning forever; skip its IDs.
			r.MessageIDs = nil
		}
		r.CreatedAt = time.UnixMilli(ms)
		out = append(out, r)
	}
	return out, rows.Err()
}
