package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"resort/internal/domain"
	"resort/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

const defaultBusyTimeoutMS = 5000

// querier is the subset of *sql.DB and *sql.Tx the repositories need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements domain.Store on top of a connection or a transaction.
type queries struct {
	q querier
}

var _ domain.Store = (*queries)(nil)

type DB struct {
	*sql.DB
	*queries
	path   string
	logger *zerolog.Logger
}

var _ domain.TxStore = (*DB)(nil)

type Options struct {
	BusyTimeoutMS int
	MaxOpenConns  int
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	return Open(path, Options{}, logger)
}

func Open(path string, opts Options, logger *zerolog.Logger) (*DB, error) {
	memory := path == ":memory:"
	if !memory {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dsn(path, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	switch {
	case memory:
		// every connection to :memory: is a separate database
		conn.SetMaxOpenConns(1)
	case opts.MaxOpenConns > 0:
		conn.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: conn, queries: &queries{q: conn}, path: path, logger: logger}
	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := db.seedTimeSlots(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return db, nil
}

// dsn enables immediate transactions so check-then-insert sequences take the
// write lock up front.
func dsn(path string, opts Options) string {
	busy := opts.BusyTimeoutMS
	if busy <= 0 {
		busy = defaultBusyTimeoutMS
	}
	params := []string{
		"_txlock=immediate",
		fmt.Sprintf("_busy_timeout=%d", busy),
		"_foreign_keys=on",
	}
	if path != ":memory:" {
		params = append(params, "_journal_mode=WAL")
	}
	return path + "?" + strings.Join(params, "&")
}

func (db *DB) Path() string { return db.path }

// WithTx runs fn in one write transaction. fn must only touch the Store it is
// handed: on :memory: databases the outer handle would wait on the same connection.
func (db *DB) WithTx(ctx context.Context, fn func(tx domain.Store) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&queries{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

func (db *DB) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            phone TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'guest',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS accommodations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            type TEXT NOT NULL CHECK (type IN ('room', 'cottage')),
            capacity INTEGER NOT NULL,
            price REAL NOT NULL DEFAULT 0,
            add_price REAL NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'vacant',
            supports_morning BOOLEAN NOT NULL DEFAULT 1,
            supports_night BOOLEAN NOT NULL DEFAULT 1,
            supports_whole_day BOOLEAN NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            CHECK (NOT (type = 'cottage' AND supports_whole_day = 1))
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL REFERENCES users(id),
            accommodation_id INTEGER NOT NULL REFERENCES accommodations(id),
            check_in_date TEXT NOT NULL,
            check_out_date TEXT,
            time_slot TEXT NOT NULL,
            adults INTEGER NOT NULL DEFAULT 1,
            children INTEGER NOT NULL DEFAULT 0,
            total_price REAL NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'pending',
            hold_expires_at INTEGER,
            notes TEXT NOT NULL DEFAULT '',
            version INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS event_bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL REFERENCES users(id),
            event_type TEXT NOT NULL CHECK (event_type IN ('whole_day', 'morning', 'evening')),
            booking_date TEXT NOT NULL,
            guest_count INTEGER NOT NULL DEFAULT 0,
            total_price REAL NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'pending',
            hold_expires_at INTEGER,
            notes TEXT NOT NULL DEFAULT '',
            version INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS walk_in_logs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            client_name TEXT NOT NULL,
            accommodation_id INTEGER REFERENCES accommodations(id),
            time_slot TEXT NOT NULL,
            check_in_date TEXT NOT NULL,
            checked_out BOOLEAN NOT NULL DEFAULT 0,
            checked_out_at DATETIME,
            created_by INTEGER NOT NULL,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS pricing_settings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            category TEXT NOT NULL,
            type TEXT NOT NULL,
            price REAL NOT NULL CHECK (price >= 0),
            updated_at DATETIME NOT NULL,
            UNIQUE (category, type)
        )`,
		`CREATE TABLE IF NOT EXISTS time_slot_settings (
            slot_type TEXT NOT NULL,
            accommodation_type TEXT NOT NULL,
            start_time TEXT NOT NULL,
            end_time TEXT NOT NULL,
            is_overnight BOOLEAN NOT NULL DEFAULT 0,
            PRIMARY KEY (slot_type, accommodation_type)
        )`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            channel TEXT NOT NULL,
            recipient TEXT NOT NULL,
            subject TEXT NOT NULL DEFAULT '',
            body TEXT NOT NULL,
            kind TEXT NOT NULL,
            related_id INTEGER NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME NOT NULL,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_accommodation_dates ON bookings(accommodation_id, check_in_date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_event_bookings_date ON event_bookings(booking_date)`,
		`CREATE INDEX IF NOT EXISTS idx_walk_in_logs_accommodation ON walk_in_logs(accommodation_id, checked_out)`,
		`CREATE INDEX IF NOT EXISTS idx_walk_in_logs_date ON walk_in_logs(check_in_date)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status, next_retry_at)`,
	}

	for _, query := range stmts {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) seedTimeSlots(ctx context.Context) error {
	query := `INSERT OR IGNORE INTO time_slot_settings (slot_type, accommodation_type, start_time, end_time, is_overnight)
              VALUES (?, ?, ?, ?, ?)`
	for _, s := range models.DefaultTimeSlotSettings() {
		if _, err := db.ExecContext(ctx, query, s.SlotType, s.AccommodationType, s.StartTime, s.EndTime, s.IsOvernight); err != nil {
			return fmt.Errorf("failed to seed time slot settings: %w", err)
		}
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func now() time.Time {
	return time.Now().UTC()
}
