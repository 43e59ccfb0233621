// Package history implements the optional run-history sink backed by
// SQLite, grounded on the internal/history/sqlite sink. It implements
// runner.Recorder so the Runner can log the outcome of every job run it
// executes (ran or failed) without depending on sqlite directly.
package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cronburgundy/cronburgundy/internal/runner"
)

// Sink writes completed invocations to a SQLite database.
type Sink struct {
	db *sql.DB
}

// Open creates or opens the history database. DSN accepts the same
// shapes as internal/history/sqlite: "sqlite:///path/to/file.db",
// "/path/to/file.db", or ":memory:".
func Open(dsn string) (*Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("history: empty sqlite DSN")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &Sink{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS job_runs(
		qid TEXT NOT NULL,
		outcome TEXT NOT NULL,
		started TIMESTAMP NOT NULL,
		finished TIMESTAMP NOT NULL,
		error TEXT
	);`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

// Record implements runner.Recorder.
func (s *Sink) Record(qid string, outcome runner.Outcome, started, finished time.Time, errText string) {
	var errCol any
	if errText != "" {
		errCol = errText
	}
	_, _ = s.db.ExecContext(context.Background(), `
		INSERT INTO job_runs(qid, outcome, started, finished, error)
		VALUES(?, ?, ?, ?, ?);`,
		qid, string(outcome), started.UTC(), finished.UTC(), errCol)
}

// Run is one recorded invocation.
type Run struct {
	Qid string
	Outcome string
	Started time.Time
	Finished time.Time
	Error string
}

// Recent returns the most recent runs for qid, newest first, up to
// limit rows. Backs "logs history", distinct from the raw per-job log
// files "logs view"/"logs list" read: this is outcome/timing metadata,
// not log output.
func (s *Sink) Recent(qid string, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT qid, outcome, started, finished, error
		FROM job_runs WHERE qid = ?
		ORDER BY started DESC LIMIT ?;`, qid, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var r Run
		var errCol sql.NullString
		if err := rows.Scan(&r.Qid, &r.Outcome, &r.Started, &r.Finished, &errCol); err != nil {
			return nil, err
		}
		r.Error = errCol.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Sink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
