package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/i474232898/weather-lookup/internal/history"
)

const (
	dirPermissions  = 0o750
	filePermissions = 0o600

	defaultBusyTimeout = 5 * time.Second
)

// SQLiteConfig configures the history database.
type SQLiteConfig struct {
	// Path is the database file. Parent directories are created as needed.
	Path string

	// WALMode enables write-ahead logging.
	WALMode bool

	// BusyTimeout is how long SQLite waits on a locked database.
	BusyTimeout time.Duration
}

// SQLiteStore is a history.Repository backed by SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ history.Repository = (*SQLiteStore)(nil)

// entryRow is the history_entries row shape. saved_at is Unix nanoseconds.
type entryRow struct {
	ID          int64          `db:"id"`
	CityName    string         `db:"city_name"`
	TempCelsius float64        `db:"temp_celsius"`
	IconCode    sql.NullString `db:"icon_code"`
	Description sql.NullString `db:"description"`
	SavedAt     int64          `db:"saved_at"`
}

func (r entryRow) toEntry() history.Entry {
	e := history.Entry{
		ID:          r.ID,
		CityName:    r.CityName,
		TempCelsius: r.TempCelsius,
		SavedAt:     time.Unix(0, r.SavedAt).UTC(),
	}
	if r.IconCode.Valid {
		v := r.IconCode.String
		e.IconCode = &v
	}
	if r.Description.Valid {
		v := r.Description.String
		e.Description = &v
	}
	return e
}

const selectEntryColumns = `SELECT id, city_name, temp_celsius, icon_code, description, saved_at FROM history_entries`

// OpenSQLite opens (or creates) the database, applies pending migrations and
// verifies the connection.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite: path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = defaultBusyTimeout
	}

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	if cfg.WALMode {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	if err := os.Chmod(cfg.Path, filePermissions); err != nil && !os.IsNotExist(err) {
		db.Close()
		return nil, fmt.Errorf("setting database permissions: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// LatestByCity returns the most recent entry for city.
func (s *SQLiteStore) LatestByCity(ctx context.Context, city string) (history.Entry, bool, error) {
	var row entryRow
	err := s.db.GetContext(ctx, &row,
		selectEntryColumns+` WHERE city_name = ? ORDER BY saved_at DESC, id DESC LIMIT 1`, city)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Entry{}, false, nil
	}
	if err != nil {
		return history.Entry{}, false, fmt.Errorf("querying latest entry: %w", err)
	}
	return row.toEntry(), true, nil
}

// Insert stores e and sets e.ID.
func (s *SQLiteStore) Insert(ctx context.Context, e *history.Entry) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO history_entries (city_name, temp_celsius, icon_code, description, saved_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.CityName,
		e.TempCelsius,
		nullString(e.IconCode),
		nullString(e.Description),
		e.SavedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading entry id: %w", err)
	}
	e.ID = id
	return nil
}

// DeleteSavedBefore removes entries saved strictly before cutoff.
func (s *SQLiteStore) DeleteSavedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM history_entries WHERE saved_at < ?`, cutoff.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("deleting expired entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted entries: %w", err)
	}
	return n, nil
}

// List returns all entries, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]history.Entry, error) {
	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows,
		selectEntryColumns+` ORDER BY saved_at DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}

	entries := make([]history.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toEntry())
	}
	return entries, nil
}

// Delete removes one entry by id.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting deleted entries: %w", err)
	}
	if n == 0 {
		return history.ErrEntryNotFound
	}
	return nil
}

// HealthCheck verifies the database is reachable.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	var result int
	if err := s.db.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("health check query: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("health check: unexpected result %d", result)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
