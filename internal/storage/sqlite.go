package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "coinpulse/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsSQL string

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// The daemon and the CLI may share the file; keep one writer per process.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(context.Background(), migrationsSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LastRun(ctx context.Context, job string, loc *time.Location) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT last_run_date FROM job_state WHERE job = ?`, job).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	d, err := parseDate(raw, loc)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("job_state %s: %w", job, err)
	}
	return d, true, nil
}

func (s *sqliteStore) SetLastRun(ctx context.Context, job string, date time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_state(job, last_run_date, updated_at) VALUES(?,?,?)
		 ON CONFLICT(job) DO UPDATE SET last_run_date = excluded.last_run_date, updated_at = excluded.updated_at`,
		job, date.Format(DateLayout), time.Now().Format(time.RFC3339Nano))
	return err
}

func (s *sqliteStore) ClearLastRun(ctx context.Context, job string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM job_state WHERE job = ?`, job)
	return err
}

func (s *sqliteStore) AppendRun(ctx context.Context, r RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_runs(id, job, source, forced, started_at, took_ms, ok, err) VALUES(?,?,?,?,?,?,?,?)`,
		r.ID, r.Job, r.Trigger, boolInt(r.Force), r.StartedAt.UTC().Format(runTimeLayout), r.Took.Milliseconds(), boolInt(r.OK), nullStr(r.Error))
	return err
}

func (s *sqliteStore) RecentRuns(ctx context.Context, job string, n int) ([]RunRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job, source, forced, started_at, took_ms, ok, err FROM job_runs
		 WHERE job = ? ORDER BY started_at DESC LIMIT ?`, job, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r       RunRecord
			forced  int64
			ok      int64
			started string
			tookMS  int64
			errStr  sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Job, &r.Trigger, &forced, &started, &tookMS, &ok, &errStr); err != nil {
			return nil, err
		}
		r.Force = forced != 0
		r.OK = ok != 0
		r.StartedAt, _ = time.Parse(runTimeLayout, started)
		r.Took = time.Duration(tookMS) * time.Millisecond
		r.Error = errStr.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// runTimeLayout is fixed-width UTC so ORDER BY started_at sorts chronologically.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z"

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
