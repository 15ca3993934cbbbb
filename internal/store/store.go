// Package store journals label lifecycle events to SQLite and serves the
// word-stats and session-summary queries built on that journal. It is a
// pure consumer of registry events; the engine has no dependency back on it.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// LabelEvent is one journal row: a label creation or removal.
type LabelEvent struct {
	Kind         string    `json:"kind"`
	LabelID      string    `json:"label_id"`
	Origin       string    `json:"origin"`
	SemanticKey  string    `json:"semantic_key"`
	LanguageCode string    `json:"language_code"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Z            float64   `json:"z"`
	TSUnixMillis int64     `json:"ts_unix_millis"`
	Room         string    `json:"room"`
	DeviceID     string    `json:"device_id"`
}

// WordStat is the per-semantic-key rollup.
type WordStat struct {
	SemanticKey string `json:"semantic_key"`
	Created     int    `json:"created"`
	Removed     int    `json:"removed"`
	FirstSeen   int64  `json:"first_seen_unix_millis"`
	LastSeen    int64  `json:"last_seen_unix_millis"`
}

// Summary aggregates one session's journal.
type Summary struct {
	TotalEvents   int   `json:"total_events"`
	CreatedLocal  int   `json:"created_local"`
	CreatedRemote int   `json:"created_remote"`
	Removed       int   `json:"removed"`
	FirstEvent    int64 `json:"first_event_unix_millis"`
	LastEvent     int64 `json:"last_event_unix_millis"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and brings the schema
// up to date via the embedded migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertLabelEvent appends one journal row.
func (s *Store) InsertLabelEvent(ev LabelEvent) error {
	_, err := s.db.Exec(`
		INSERT INTO label_events
			(kind, label_id, origin, semantic_key, language_code,
			 pos_x, pos_y, pos_z, ts_unix_millis, room, device_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Kind, ev.LabelID, ev.Origin, ev.SemanticKey, ev.LanguageCode,
		ev.X, ev.Y, ev.Z, ev.TSUnixMillis, ev.Room, ev.DeviceID)
	if err != nil {
		return fmt.Errorf("insert label event: %w", err)
	}
	return nil
}

// WordStats rolls the journal up per semantic key, most-created first.
func (s *Store) WordStats() ([]WordStat, error) {
	rows, err := s.db.Query(`
		SELECT semantic_key,
		       SUM(CASE WHEN kind = 'created' THEN 1 ELSE 0 END) AS created,
		       SUM(CASE WHEN kind = 'removed' THEN 1 ELSE 0 END) AS removed,
		       MIN(ts_unix_millis) AS first_seen,
		       MAX(ts_unix_millis) AS last_seen
		FROM label_events
		GROUP BY semantic_key
		ORDER BY created DESC, semantic_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("query word stats: %w", err)
	}
	defer rows.Close()

	var stats []WordStat
	for rows.Next() {
		var ws WordStat
		if err := rows.Scan(&ws.SemanticKey, &ws.Created, &ws.Removed, &ws.FirstSeen, &ws.LastSeen); err != nil {
			return nil, fmt.Errorf("scan word stat: %w", err)
		}
		stats = append(stats, ws)
	}
	return stats, rows.Err()
}

// EventsBetween returns journal rows in [from, to), oldest first.
func (s *Store) EventsBetween(from, to time.Time) ([]LabelEvent, error) {
	rows, err := s.db.Query(`
		SELECT kind, label_id, origin, semantic_key, language_code,
		       pos_x, pos_y, pos_z, ts_unix_millis, room, device_id
		FROM label_events
		WHERE ts_unix_millis >= ? AND ts_unix_millis < ?
		ORDER BY ts_unix_millis ASC, id ASC`,
		from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []LabelEvent
	for rows.Next() {
		var ev LabelEvent
		if err := rows.Scan(&ev.Kind, &ev.LabelID, &ev.Origin, &ev.SemanticKey, &ev.LanguageCode,
			&ev.X, &ev.Y, &ev.Z, &ev.TSUnixMillis, &ev.Room, &ev.DeviceID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// SessionSummary aggregates the whole journal.
func (s *Store) SessionSummary() (Summary, error) {
	var sum Summary
	var first, last sql.NullInt64
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       SUM(CASE WHEN kind = 'created' AND origin = 'detection' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN kind = 'created' AND origin = 'anchor' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN kind = 'removed' THEN 1 ELSE 0 END),
		       MIN(ts_unix_millis), MAX(ts_unix_millis)
		FROM label_events`).Scan(
		&sum.TotalEvents,
		&nullableInt{&sum.CreatedLocal}, &nullableInt{&sum.CreatedRemote}, &nullableInt{&sum.Removed},
		&first, &last)
	if err != nil {
		return Summary{}, fmt.Errorf("query session summary: %w", err)
	}
	if first.Valid {
		sum.FirstEvent = first.Int64
	}
	if last.Valid {
		sum.LastEvent = last.Int64
	}
	return sum, nil
}

// nullableInt scans a SUM() that is NULL on an empty table into an int.
type nullableInt struct{ dst *int }

func (n *nullableInt) Scan(src interface{}) error {
	if src == nil {
		*n.dst = 0
		return nil
	}
	switch v := src.(type) {
	case int64:
		*n.dst = int(v)
	case float64:
		*n.dst = int(v)
	default:
		return fmt.Errorf("unexpected sum type %T", src)
	}
	return nil
}
