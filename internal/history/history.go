// Package history keeps a local SQLite record of recommendation runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dkoosis/recommender/internal/trip"
)

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Store records runs. A Store from Disabled accepts and discards everything.
type Store struct {
	db *sql.DB
}

// Record is one finished run.
type Record struct {
	RunID     string
	Params    trip.Params
	Status    string
	Elapsed   time.Duration
	Result    string
	Error     string
	CreatedAt time.Time
}

// DefaultPath is the database location under the user's config directory.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(configDir, "recommender", "history.db"), nil
}

// Disabled returns a no-op store.
func Disabled() *Store { return &Store{} }

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Enabled reports whether the store persists anything.
func (s *Store) Enabled() bool { return s != nil && s.db != nil }

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL,
		category TEXT NOT NULL,
		budget INTEGER NOT NULL,
		headcount INTEGER NOT NULL,
		trip_type TEXT NOT NULL,
		month INTEGER NOT NULL,
		status TEXT NOT NULL,
		elapsed_ms INTEGER,
		result TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_category ON runs(category);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores r.
func (s *Store) Record(ctx context.Context, r Record) error {
	if !s.Enabled() {
		return nil
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO runs
		(run_id, created_at, category, budget, headcount, trip_type, month, status, elapsed_ms, result, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.RunID,
		r.CreatedAt.UTC().Format(timeLayout),
		string(r.Params.Category),
		r.Params.Budget,
		r.Params.Headcount,
		string(r.Params.Type),
		int(r.Params.Month),
		r.Status,
		r.Elapsed.Milliseconds(),
		r.Result,
		r.Error,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", r.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if !s.Enabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT run_id, created_at, category, budget, headcount, trip_type, month, status, elapsed_ms, result, error
		FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r                  Record
			created            string
			category, tripType string
			month              int
			elapsedMS          int64
			result, errText    sql.NullString
		)
		if err := rows.Scan(&r.RunID, &created, &category, &r.Params.Budget, &r.Params.Headcount,
			&tripType, &month, &r.Status, &elapsedMS, &result, &errText); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(timeLayout, created)
		r.Params.Category = trip.Category(category)
		r.Params.Type = trip.Type(tripType)
		r.Params.Month = time.Month(month)
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		r.Result = result.String
		r.Error = errText.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// CategoryCounts returns how many runs were made per category.
func (s *Store) CategoryCounts(ctx context.Context) (map[trip.Category]int, error) {
	if !s.Enabled() {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM runs GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[trip.Category]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		counts[trip.Category(category)] = n
	}
	return counts, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.db.Close()
}
