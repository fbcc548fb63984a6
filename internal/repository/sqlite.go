package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/siasic/seismic-watch/internal/geo"
	"github.com/siasic/seismic-watch/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must not
	// open a second one.
	if strings.Contains(path, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			occurred_at DATETIME NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			depth_km REAL NOT NULL,
			magnitude REAL NOT NULL,
			mag_type TEXT,
			place TEXT,
			municipality TEXT,
			department TEXT,
			regime TEXT NOT NULL,
			in_santander INTEGER NOT NULL DEFAULT 0,
			tsunami INTEGER NOT NULL DEFAULT 0,
			detail_url TEXT,
			source TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events(occurred_at);
		CREATE INDEX IF NOT EXISTS idx_events_regime ON events(regime);
		CREATE INDEX IF NOT EXISTS idx_events_santander ON events(in_santander);
  	`

	_, err := s.db.Exec(schema)
	return err
}

// Add inserts the event, reporting false when the id is already stored.
// Overlapping feed windows re-deliver events, so duplicates are expected.
func (s *SQLiteDB) Add(ctx context.Context, e *models.SeismicEvent) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO events (
			id, occurred_at, latitude, longitude, depth_km, magnitude,
			mag_type, place, municipality, department, regime,
			in_santander, tsunami, detail_url, source, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OccurredAt.UTC(), e.Latitude, e.Longitude, e.DepthKm, e.Magnitude,
		e.MagType, e.Place, e.Municipality, e.Department, string(e.Regime),
		boolToInt(e.InSantander), boolToInt(e.Tsunami), e.DetailURL, string(e.Source),
		time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("error inserting event %s: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return n > 0, nil
}

// AddBatch inserts every event, returning how many were new.
func (s *SQLiteDB) AddBatch(ctx context.Context, events []models.SeismicEvent) (int, error) {
	inserted := 0
	for i := range events {
		ok, err := s.Add(ctx, &events[i])
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

func (s *SQLiteDB) GetByID(ctx context.Context, id string) (*models.SeismicEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, occurred_at, latitude, longitude, depth_km, magnitude,
			mag_type, place, municipality, department, regime,
			in_santander, tsunami, detail_url, source
		FROM events WHERE id = ?`, id)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying event %s: %w", id, err)
	}
	return e, nil
}

func (s *SQLiteDB) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM events WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("error checking event %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLiteDB) List(ctx context.Context, opts Filter) ([]models.SeismicEvent, error) {
	query := `
		SELECT id, occurred_at, latitude, longitude, depth_km, magnitude,
			mag_type, place, municipality, department, regime,
			in_santander, tsunami, detail_url, source
		FROM events WHERE 1=1`
	args := []any{}

	if opts.Since != nil {
		query += " AND occurred_at >= ?"
		args = append(args, opts.Since.UTC())
	}
	if opts.Until != nil {
		query += " AND occurred_at <= ?"
		args = append(args, opts.Until.UTC())
	}
	if opts.MinMagnitude != nil {
		query += " AND magnitude >= ?"
		args = append(args, *opts.MinMagnitude)
	}
	if opts.MaxDepthKm != nil {
		query += " AND depth_km <= ?"
		args = append(args, *opts.MaxDepthKm)
	}
	if opts.Regime != nil {
		query += " AND regime = ?"
		args = append(args, string(*opts.Regime))
	}
	if opts.InSantander != nil {
		query += " AND in_santander = ?"
		args = append(args, boolToInt(*opts.InSantander))
	}
	if opts.Source != nil {
		query += " AND source = ?"
		args = append(args, string(*opts.Source))
	}

	query += " ORDER BY occurred_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing events: %w", err)
	}
	defer rows.Close()

	var events []models.SeismicEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *SQLiteDB) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting events: %w", err)
	}
	return n, nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (*models.SeismicEvent, error) {
	var (
		e                  models.SeismicEvent
		regime, source     string
		santander, tsunami int
	)
	err := r.Scan(
		&e.ID, &e.OccurredAt, &e.Latitude, &e.Longitude, &e.DepthKm, &e.Magnitude,
		&e.MagType, &e.Place, &e.Municipality, &e.Department, &regime,
		&santander, &tsunami, &e.DetailURL, &source,
	)
	if err != nil {
		return nil, err
	}
	e.OccurredAt = e.OccurredAt.UTC()
	e.Regime = models.DepthRegime(regime)
	e.Source = models.SourceTag(source)
	e.InSantander = santander != 0
	e.Tsunami = tsunami != 0
	// Derived from the coordinates, not stored.
	e.DistanceColombiaKm = geo.DistanceKm(e.Coordinates(), geo.ColombiaCenter)
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
