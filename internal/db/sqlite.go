// Package db opens the SQLite metadata store and manages its schema.
//
// Each SQLite file gets two pools: a single-connection write pool, so
// concurrent writers queue in Go instead of tripping SQLITE_BUSY, and a wider
// pool for reads. Both run in WAL mode with a 5 second busy timeout.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"
)

const defaultReadPoolSize = 4

// OpenSQLite opens one pool for the SQLite file at path and verifies it with
// a ping.
//
// mode must be "write" or "read". The write pool is pinned to a single
// connection and takes the write lock up front (_txlock=immediate); the read
// pool holds up to maxOpen connections, or defaultReadPoolSize when maxOpen
// is zero.
func OpenSQLite(path string, mode string, maxOpen int) (*sql.DB, error) {
	if mode != "read" && mode != "write" {
		return nil, fmt.Errorf("invalid SQLite mode %q: must be \"read\" or \"write\"", mode)
	}

	sqlDB, err := sql.Open("sqlite3", sqliteDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	if mode == "write" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		if maxOpen <= 0 {
			maxOpen = defaultReadPoolSize
		}
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}

	return sqlDB, nil
}

// OpenSQLitePair opens the write and read pools for one SQLite file.
// readMaxOpen sizes the read pool; zero takes the default.
func OpenSQLitePair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = OpenSQLite(path, "write", 0)
	if err != nil {
		return nil, nil, err
	}

	readDB, err = OpenSQLite(path, "read", readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}

	return writeDB, readDB, nil
}

func sqliteDSN(path string, mode string) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_synchronous", "NORMAL")
	params.Set("_foreign_keys", "on")
	if mode == "write" {
		params.Set("_txlock", "immediate")
	}
	return path + "?" + params.Encode()
}
