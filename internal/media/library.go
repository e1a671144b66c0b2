package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dshills/cutlist/internal/engine/timecode"
)

// ErrNotFound is returned when a media ID is not in the library.
var ErrNotFound = errors.New("media not found")

// Library is the sqlite-backed media catalog. It satisfies the edit
// package's MediaDurations so trim and slip bounds come straight from
// the catalog.
type Library struct {
	db *sql.DB
}

// OpenLibrary opens (creating if needed) the catalog at path.
func OpenLibrary(path string) (*Library, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS media (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		kind INTEGER NOT NULL,
		duration INTEGER NOT NULL,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		fps REAL DEFAULT 0,
		sample_rate INTEGER DEFAULT 0,
		channels INTEGER DEFAULT 0,
		added_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_media_path ON media(path);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &Library{db: db}, nil
}

// Close closes the database connection.
func (l *Library) Close() error {
	return l.db.Close()
}

// Add inserts or replaces a catalog entry.
func (l *Library) Add(info Info) error {
	if info.ID == uuid.Nil {
		return fmt.Errorf("add media: nil ID")
	}
	_, err := l.db.Exec(
		`INSERT OR REPLACE INTO media
		 (id, path, kind, duration, width, height, fps, sample_rate, channels, added_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID.String(), info.Path, int(info.Kind), int64(info.Duration),
		info.Width, info.Height, info.FPS, info.SampleRate, info.Channels,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("add media %s: %w", info.ID, err)
	}
	return nil
}

// Import analyzes a file and adds it under a fresh ID. If the path is
// already cataloged its existing entry is returned instead.
func (l *Library) Import(ctx context.Context, a Analyzer, path string) (Info, error) {
	if existing, err := l.ByPath(path); err == nil {
		return existing, nil
	}

	info, err := a.Analyze(ctx, path)
	if err != nil {
		return Info{}, fmt.Errorf("analyze %s: %w", path, err)
	}
	if info.ID == uuid.Nil {
		info.ID = uuid.New()
	}
	info.Path = path
	if err := l.Add(info); err != nil {
		return Info{}, err
	}
	return info, nil
}

// Get retrieves a catalog entry by ID.
func (l *Library) Get(id uuid.UUID) (Info, error) {
	return l.scanOne(`SELECT id, path, kind, duration, width, height, fps, sample_rate, channels
	                  FROM media WHERE id = ?`, id.String())
}

// ByPath retrieves a catalog entry by file path.
func (l *Library) ByPath(path string) (Info, error) {
	return l.scanOne(`SELECT id, path, kind, duration, width, height, fps, sample_rate, channels
	                  FROM media WHERE path = ?`, path)
}

func (l *Library) scanOne(query string, arg interface{}) (Info, error) {
	var info Info
	var id string
	var kind int
	var duration int64

	row := l.db.QueryRow(query, arg)
	err := row.Scan(&id, &info.Path, &kind, &duration,
		&info.Width, &info.Height, &info.FPS, &info.SampleRate, &info.Channels)
	if errors.Is(err, sql.ErrNoRows) {
		return Info{}, ErrNotFound
	}
	if err != nil {
		return Info{}, fmt.Errorf("query media: %w", err)
	}

	info.ID, err = uuid.Parse(id)
	if err != nil {
		return Info{}, fmt.Errorf("media id %q: %w", id, err)
	}
	info.Kind = Kind(kind)
	info.Duration = timecode.TimePoint(duration)
	return info, nil
}

// Remove deletes a catalog entry. Removing an unknown ID is a no-op.
func (l *Library) Remove(id uuid.UUID) error {
	_, err := l.db.Exec(`DELETE FROM media WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("remove media %s: %w", id, err)
	}
	return nil
}

// List returns all catalog entries, newest first.
func (l *Library) List() ([]Info, error) {
	rows, err := l.db.Query(`SELECT id, path, kind, duration, width, height, fps, sample_rate, channels
	                         FROM media ORDER BY added_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var info Info
		var id string
		var kind int
		var duration int64
		if err := rows.Scan(&id, &info.Path, &kind, &duration,
			&info.Width, &info.Height, &info.FPS, &info.SampleRate, &info.Channels); err != nil {
			return nil, fmt.Errorf("list media: %w", err)
		}
		if info.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("media id %q: %w", id, err)
		}
		info.Kind = Kind(kind)
		info.Duration = timecode.TimePoint(duration)
		out = append(out, info)
	}
	return out, rows.Err()
}

// MediaDuration reports the duration for bounds checking during edits.
// Unknown media returns false, which edit commands treat as unbounded.
func (l *Library) MediaDuration(id uuid.UUID) (timecode.TimePoint, bool) {
	info, err := l.Get(id)
	if err != nil {
		return 0, false
	}
	return info.Duration, true
}
