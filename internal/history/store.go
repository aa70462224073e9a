package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the listening log, backed by SQLite
type Store struct {
	db *sql.DB
}

// Listen is one continuous stretch of a station being on air
type Listen struct {
	ID          int64
	StationID   string
	StationName string
	StartedAt   time.Time
	EndedAt     time.Time // zero while the listen is open
	Error       string
}

// Active reports whether the listen has not been finished yet
func (l Listen) Active() bool {
	return l.EndedAt.IsZero()
}

// Duration returns how long the listen lasted, or zero while it is open
func (l Listen) Duration() time.Duration {
	if l.Active() {
		return 0
	}
	return l.EndedAt.Sub(l.StartedAt)
}

// Open creates or opens the listening log at dbPath.
// ":memory:" gives a private in-memory log.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps in-memory databases consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS listens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			station_id TEXT NOT NULL,
			station_name TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER,
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_listens_started ON listens(started_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Start opens a new listen and returns its id
func (s *Store) Start(ctx context.Context, stationID, stationName string, at time.Time) (int64, error) {
	query := `
		INSERT INTO listens (station_id, station_name, started_at)
		VALUES (?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query, stationID, stationName, at.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to insert listen: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert id: %w", err)
	}

	return id, nil
}

// Finish closes the listen with the given id. Finishing an already
// finished listen keeps the original end time.
func (s *Store) Finish(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE listens
		SET ended_at = ?
		WHERE id = ? AND ended_at IS NULL
	`

	if _, err := s.db.ExecContext(ctx, query, at.Unix(), id); err != nil {
		return fmt.Errorf("failed to finish listen %d: %w", id, err)
	}
	return nil
}

// RecordError attaches a playback error to the listen with the given id
func (s *Store) RecordError(ctx context.Context, id int64, msg string) error {
	query := `
		UPDATE listens
		SET error = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, msg, id)
	if err != nil {
		return fmt.Errorf("failed to record listen error: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("listen with id %d not found", id)
	}

	return nil
}

// Recent returns up to limit listens, newest first. A limit of zero or less
// returns everything.
func (s *Store) Recent(ctx context.Context, limit int) ([]Listen, error) {
	query := `
		SELECT id, station_id, station_name, started_at, COALESCE(ended_at, 0), COALESCE(error, '')
		FROM listens
		ORDER BY started_at DESC, id DESC
	`

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query listens: %w", err)
	}
	defer rows.Close()

	var listens []Listen
	for rows.Next() {
		var l Listen
		var startedUnix, endedUnix int64

		err := rows.Scan(
			&l.ID,
			&l.StationID,
			&l.StationName,
			&startedUnix,
			&endedUnix,
			&l.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listen: %w", err)
		}

		l.StartedAt = time.Unix(startedUnix, 0)
		if endedUnix != 0 {
			l.EndedAt = time.Unix(endedUnix, 0)
		}

		listens = append(listens, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listens: %w", err)
	}

	return listens, nil
}

// Cleanup removes finished listens that started more than maxAge ago
func (s *Store) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()

	query := `
		DELETE FROM listens
		WHERE ended_at IS NOT NULL
		AND started_at < ?
	`

	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old listens: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
