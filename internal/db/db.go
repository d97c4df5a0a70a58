package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// DB is the SQLite store of sessions, crossing events, statistics
// snapshots and job status
type DB struct {
	*sql.DB
}

// OpenDB opens (creating if needed) the database at path without touching
// the schema
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer; pragmas below stick to the single connection
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return &DB{conn}, nil
}

// NewDB opens the database and applies all pending migrations
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("path", path).Msg("Database ready")
	return db, nil
}

// Shutdown closes the database
func (db *DB) Shutdown(ctx context.Context) error {
	log.Info().Msg("Closing database")
	return db.Close()
}
