package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed schema.sql
var schema string

// openSQLite opens a SQLite database with ledger-grade PRAGMAs and applies
// the schema. path ":memory:" gives a private in-memory database.
func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path to absolute: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		path = absPath
	}

	conn, err := sql.Open("sqlite", connectionString(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// One connection: commits are serialized and an in-memory database
	// lives exactly as long as the pool.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}

	if err := withTransaction(ctx, conn, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, schema)
		return err
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return conn, nil
}

// connectionString builds the DSN. The ledger holds real balances, so every
// write is fsynced and the file never shrinks.
func connectionString(path string) string {
	connStr := path + "?_pragma=journal_mode(WAL)"
	connStr += "&_pragma=synchronous(FULL)"
	connStr += "&_pragma=auto_vacuum(NONE)"
	connStr += "&_pragma=foreign_keys(1)"
	connStr += "&_pragma=busy_timeout(5000)"
	return connStr
}

// withTransaction runs fn inside a transaction, committing on success and
// rolling back on error or panic. fn's error is returned unchanged so callers
// can match domain errors.
func withTransaction(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
		} else if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rollbackErr)
			}
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	return fn(tx)
}
