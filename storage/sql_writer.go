package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"chart-collector/metrics"
	"chart-collector/models"
	"chart-collector/utils"
)

const batchSize = 50

// dialect captures the SQL differences between the supported databases.
type dialect struct {
	name        string
	driver      string
	serial      string
	timestamp   string
	placeholder func(n int) string
}

var (
	postgresDialect = dialect{
		name:        "postgres",
		driver:      "postgres",
		serial:      "SERIAL PRIMARY KEY",
		timestamp:   "TIMESTAMPTZ NOT NULL DEFAULT NOW()",
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}
	sqliteDialect = dialect{
		name:        "sqlite",
		driver:      "sqlite3",
		serial:      "INTEGER PRIMARY KEY AUTOINCREMENT",
		timestamp:   "DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP",
		placeholder: func(int) string { return "?" },
	}
)

// SQLWriter upserts chart entries into one relational table per source.
type SQLWriter struct {
	db      *sql.DB
	dialect dialect
	logger  *utils.Logger
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use SQLWriter.
func NewPostgresWriter(dsn string, logger *utils.Logger) (*SQLWriter, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	return newSQLWriter(db, postgresDialect, logger)
}

// NewSQLiteWriter opens (creating if needed) a SQLite database file.
// path may be ":memory:".
func NewSQLiteWriter(path string, logger *utils.Logger) (*SQLWriter, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}

	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// a single connection keeps :memory: databases shared and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL mode: %w", err)
	}

	return newSQLWriter(db, sqliteDialect, logger)
}

func newSQLWriter(db *sql.DB, d dialect, logger *utils.Logger) (*SQLWriter, error) {
	w := &SQLWriter{db: db, dialect: d, logger: logger}
	if err := w.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", d.name, err)
	}
	return w, nil
}

func (w *SQLWriter) migrate() error {
	for _, t := range tables {
		if _, err := w.db.Exec(w.createTableSQL(t)); err != nil {
			return fmt.Errorf("create %s: %w", t.Name, err)
		}
		idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)",
			t.Name, t.DateColumn, t.Name, t.DateColumn)
		if _, err := w.db.Exec(idx); err != nil {
			return fmt.Errorf("index %s: %w", t.Name, err)
		}
	}
	return nil
}

func (w *SQLWriter) createTableSQL(t *Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n\tid %s", t.Name, w.dialect.serial)
	for _, c := range t.Columns {
		typ := "TEXT NOT NULL DEFAULT ''"
		switch c.Type {
		case Integer:
			typ = "BIGINT NOT NULL DEFAULT 0"
		case Real:
			typ = "DOUBLE PRECISION NOT NULL DEFAULT 0"
		}
		fmt.Fprintf(&b, ",\n\t%s %s", c.Name, typ)
	}
	fmt.Fprintf(&b, ",\n\t%s DATE NOT NULL", t.DateColumn)
	fmt.Fprintf(&b, ",\n\tcollected_at %s", w.dialect.timestamp)
	fmt.Fprintf(&b, ",\n\tUNIQUE (%s, %s)\n)", strings.Join(t.Key, ", "), t.DateColumn)
	return b.String()
}

// Write upserts rows for day in batches, one transaction per batch. A
// failing batch is rolled back and logged; earlier batches stay committed.
func (w *SQLWriter) Write(t *Table, rows []models.ChartEntry, day time.Time) bool {
	if len(rows) == 0 {
		w.logger.Warn("[%s] %s: nothing to write for %s", w.dialect.name, t.Name, day.Format(dateLayout))
		return true
	}

	rows = dedupeLast(t, rows)
	ctx := context.Background()
	ok := true
	written := 0

	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := w.upsertBatch(ctx, t, rows[i:end], day); err != nil {
			w.logger.Error("[%s] %s: batch %d-%d rolled back: %v", w.dialect.name, t.Name, i+1, end, err)
			ok = false
			continue
		}
		written += end - i
	}

	metrics.RowsWritten.WithLabelValues(t.Source, w.dialect.name).Add(float64(written))
	w.logger.Info("[%s] Stored %d/%d %s rows for %s", w.dialect.name, written, len(rows), t.Name, day.Format(dateLayout))
	return ok
}

func (w *SQLWriter) upsertBatch(ctx context.Context, t *Table, batch []models.ChartEntry, day time.Time) (err error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args := w.upsertSQL(t, batch, day)
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (w *SQLWriter) upsertSQL(t *Table, batch []models.ChartEntry, day time.Time) (string, []any) {
	cols := t.Header()
	width := len(cols)
	date := day.Format(dateLayout)

	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*width)
	n := 0
	for _, e := range batch {
		ph := make([]string, width)
		for j := range ph {
			n++
			ph[j] = w.dialect.placeholder(n)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs, t.Values(e)...)
		valueArgs = append(valueArgs, date)
	}

	var updates []string
	for _, c := range t.Columns {
		if !t.isKey(c.Name) {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", c.Name, c.Name))
		}
	}
	updates = append(updates, "collected_at = CURRENT_TIMESTAMP")

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s, %s) DO UPDATE SET %s`,
		t.Name, strings.Join(cols, ", "), strings.Join(valueStrings, ","),
		strings.Join(t.Key, ", "), t.DateColumn, strings.Join(updates, ", "))
	return query, valueArgs
}

// dedupeLast keeps the last occurrence of every natural key; a single
// upsert statement may not touch the same row twice.
func dedupeLast(t *Table, rows []models.ChartEntry) []models.ChartEntry {
	seen := utils.NewKeySet()
	out := make([]models.ChartEntry, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		if seen.Add(t.KeyOf(rows[i])) {
			out = append(out, rows[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Count returns the number of stored rows for t on day.
func (w *SQLWriter) Count(ctx context.Context, t *Table, day time.Time) (int, error) {
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s", t.Name, t.DateColumn, w.dialect.placeholder(1))
	var n int
	if err := w.db.QueryRowContext(ctx, q, day.Format(dateLayout)).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: count %s: %w", w.dialect.name, t.Name, err)
	}
	return n, nil
}

// Rows returns the stored data columns for t on day ordered by chart
// position (or the key when the table has none), each value rendered as text.
func (w *SQLWriter) Rows(ctx context.Context, t *Table, day time.Time) ([][]string, error) {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s ORDER BY %s",
		strings.Join(names, ", "), t.Name, t.DateColumn, w.dialect.placeholder(1), t.orderColumn())

	rows, err := w.db.QueryContext(ctx, q, day.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("%s: fetch %s: %w", w.dialect.name, t.Name, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		vals := make([]sql.NullString, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", w.dialect.name, err)
		}
		rec := make([]string, len(vals))
		for i, v := range vals {
			rec[i] = v.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Latest returns up to limit entries from the most recent date stored in t.
func (w *SQLWriter) Latest(ctx context.Context, t *Table, limit int) ([]models.ChartEntry, error) {
	dates, err := w.Dates(ctx, t, 1)
	if err != nil || len(dates) == 0 {
		return nil, err
	}
	day, err := time.Parse(dateLayout, dates[0])
	if err != nil {
		return nil, err
	}
	rows, err := w.Rows(ctx, t, day)
	if err != nil {
		return nil, err
	}
	out := make([]models.ChartEntry, 0, len(rows))
	for _, rec := range rows {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, t.entryFromRecord(rec))
	}
	return out, nil
}

// Dates returns the distinct dates stored in t, most recent first.
func (w *SQLWriter) Dates(ctx context.Context, t *Table, limit int) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT %s FROM %s ORDER BY %s DESC LIMIT %d", t.DateColumn, t.Name, t.DateColumn, limit)
	rows, err := w.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: dates %s: %w", w.dialect.name, t.Name, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		if len(d) > len(dateLayout) {
			d = d[:len(dateLayout)]
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (w *SQLWriter) Close() error {
	return w.db.Close()
}
