package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Repository represents a data repository that interacts with the database
// and provides logging capabilities. It holds a reference to the database
// and a logger instance for logging operations.
type Repository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(ctx context.Context, log *slog.Logger, storagePath string) (*Repository, error) {
	// Open (or create if it doesn't exist) the database file.
	dtb, err := sql.Open("sqlite3", fmt.Sprintf("%s?_pragma=foreign_keys(1)", storagePath))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Check if the connection is actually established.
	if err = dtb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("unable to establish connection to database: %w", err)
	}

	// Perform the initial schema migration.
	if err = initSchema(ctx, dtb); err != nil {
		return nil, fmt.Errorf("DB schema initialization error: %w", err)
	}

	return &Repository{db: dtb, log: log}, nil
}

// NewForTest wraps an already opened database handle, so failure scenarios
// can be driven through sqlmock without touching the filesystem.
func NewForTest(db *sql.DB, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// initSchema creates the necessary tables if they don't already exist.
func initSchema(ctx context.Context, dtb *sql.DB) error {
	const migrationQuery = `
	CREATE TABLE IF NOT EXISTS product_results (
		product_id TEXT NOT NULL,
		shop_id TEXT NOT NULL,
		hour_bucket TIMESTAMP NOT NULL,
		url TEXT NOT NULL,
		price REAL,
		available INTEGER NOT NULL,
		checked_at TIMESTAMP NOT NULL,
		PRIMARY KEY (product_id, shop_id, hour_bucket)
	);

	CREATE TABLE IF NOT EXISTS notification_states (
		product_id TEXT NOT NULL,
		shop_id TEXT NOT NULL,
		notified_at TIMESTAMP NOT NULL,
		last_price REAL,
		available INTEGER NOT NULL,
		PRIMARY KEY (product_id, shop_id)
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		chat_id INTEGER PRIMARY KEY
	);
	`
	_, err := dtb.ExecContext(ctx, migrationQuery)
	if err != nil {
		return fmt.Errorf("failed to execute migration query: %w", err)
	}

	return nil
}

// Close closes the connection to the database.
func (r *Repository) Close() error {
	if err := r.db.Close(); err != nil {
		r.log.Error("failed to close the database", "op", "repository.sqlite.Close", "error", err)
		return fmt.Errorf("failed to close the database: %w", err)
	}

	return nil
}

// DB is a getter for database handler.
func (r *Repository) DB() *sql.DB {
	return r.db
}
