package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charliek/eventlook/internal/domain"

	_ "modernc.org/sqlite"
)

const sqliteDriver = "sqlite"

const createEventsTableSQL = `CREATE TABLE IF NOT EXISTS events (
	record_id INTEGER NOT NULL,
	time_created TEXT NOT NULL,
	time_unix_nano INTEGER NOT NULL,
	level INTEGER NOT NULL,
	event_id INTEGER NOT NULL,
	provider TEXT NOT NULL DEFAULT '',
	computer TEXT NOT NULL DEFAULT '',
	channel TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	data TEXT NOT NULL DEFAULT '[]'
)`

const createEventsIndexSQL = `CREATE INDEX IF NOT EXISTS idx_events_time ON events(time_unix_nano, record_id)`

const insertEventSQL = `INSERT INTO events
	(record_id, time_created, time_unix_nano, level, event_id, provider, computer, channel, message, data)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// isSQLitePath returns true for archive extensions stored as SQLite databases
func isSQLitePath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".db") ||
		strings.HasSuffix(lower, ".sqlite") ||
		strings.HasSuffix(lower, ".sqlite3")
}

// openSQLiteDB opens an existing archive read-only
func openSQLiteDB(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, domain.ClassifyFSError(err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.ClassifyFSError(err)
	}
	f.Close()

	conn, err := sql.Open(sqliteDriver, "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: opening archive: %v", domain.ErrProviderFault, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: connecting to archive: %v", domain.ErrProviderFault, err)
	}
	return conn, nil
}

// probeSQLite checks the archive has an events table
func probeSQLite(path string) error {
	conn, err := openSQLiteDB(path)
	if err != nil {
		return err
	}
	defer conn.Close()

	var count int
	err = conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='events'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("%w: reading archive schema: %v", domain.ErrProviderFault, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s has no events table", domain.ErrProviderFault, path)
	}
	return nil
}

// sqliteReader iterates query rows from a SQLite archive
type sqliteReader struct {
	conn *sql.DB
	rows *sql.Rows
}

func openSQLite(ctx context.Context, path string, q Query) (Reader, error) {
	conn, err := openSQLiteDB(path)
	if err != nil {
		return nil, err
	}

	query, args := buildRangeQuery(q)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: querying archive: %v", domain.ErrProviderFault, err)
	}
	return &sqliteReader{conn: conn, rows: rows}, nil
}

// buildRangeQuery pushes the range and direction of q into SQL
func buildRangeQuery(q Query) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`SELECT record_id, time_created, level, event_id, provider, computer, channel, message, data FROM events`)

	var conds []string
	var args []interface{}
	if !q.From.IsZero() {
		conds = append(conds, "time_unix_nano > ?")
		args = append(args, q.From.UnixNano())
	}
	if !q.To.IsZero() {
		conds = append(conds, "time_unix_nano <= ?")
		args = append(args, q.To.UnixNano())
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if q.Reverse {
		sb.WriteString(" ORDER BY time_unix_nano DESC, record_id DESC")
	} else {
		sb.WriteString(" ORDER BY time_unix_nano ASC, record_id ASC")
	}
	return sb.String(), args
}

func (r *sqliteReader) Next() (*Record, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: reading archive: %v", domain.ErrProviderFault, err)
		}
		return nil, io.EOF
	}

	var rec Record
	var data string
	if err := r.rows.Scan(&rec.RecordID, &rec.TimeCreated, &rec.Level, &rec.EventID,
		&rec.Provider, &rec.Computer, &rec.Channel, &rec.Message, &data); err != nil {
		return nil, fmt.Errorf("%w: scanning archive row: %v", domain.ErrProviderFault, err)
	}
	if data != "" && data != "[]" {
		if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
			return nil, fmt.Errorf("%w: record %d: data column: %v", domain.ErrProviderFault, rec.RecordID, err)
		}
	}
	return &rec, nil
}

func (r *sqliteReader) Close() error {
	r.rows.Close()
	return r.conn.Close()
}

// sqliteWriter creates a SQLite archive and inserts records in one transaction
type sqliteWriter struct {
	conn *sql.DB
	tx   *sql.Tx
	stmt *sql.Stmt
}

func createSQLite(path string) (*sqliteWriter, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, domain.ClassifyFSError(err)
	}

	conn, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	if _, err := conn.Exec(createEventsTableSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating events table: %w", err)
	}
	if _, err := conn.Exec(createEventsIndexSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating events index: %w", err)
	}

	tx, err := conn.Begin()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	stmt, err := tx.Prepare(insertEventSQL)
	if err != nil {
		tx.Rollback()
		conn.Close()
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	return &sqliteWriter{conn: conn, tx: tx, stmt: stmt}, nil
}

func (w *sqliteWriter) Write(rec Record) error {
	t, err := rec.Time()
	if err != nil {
		return fmt.Errorf("record %d: invalid time_created %q", rec.RecordID, rec.TimeCreated)
	}
	data := "[]"
	if len(rec.Data) > 0 {
		b, err := json.Marshal(rec.Data)
		if err != nil {
			return fmt.Errorf("record %d: encoding data: %w", rec.RecordID, err)
		}
		data = string(b)
	}
	_, err = w.stmt.Exec(rec.RecordID, t.Format(time.RFC3339Nano), t.UnixNano(), rec.Level, rec.EventID,
		rec.Provider, rec.Computer, rec.Channel, rec.Message, data)
	if err != nil {
		return fmt.Errorf("inserting record %d: %w", rec.RecordID, err)
	}
	return nil
}

func (w *sqliteWriter) Close() error {
	w.stmt.Close()
	if err := w.tx.Commit(); err != nil {
		w.conn.Close()
		return fmt.Errorf("committing archive: %w", err)
	}
	return w.conn.Close()
}
