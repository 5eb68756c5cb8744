package repository

import (
	"context"
	"database/sql"
	"time"

	"chartly/internal/domain"
)

// CacheRepo implements domain.CacheRepository over the metadata store.
type CacheRepo struct {
	db *sql.DB
}

// NewCacheRepo creates a CacheRepo.
func NewCacheRepo(db *sql.DB) *CacheRepo {
	return &CacheRepo{db: db}
}

// Fresh returns the newest non-expired entry for (queryID, hash), or nil when
// none exists. Expiry is evaluated here, at lookup time.
func (r *CacheRepo) Fresh(ctx context.Context, queryID int64, hash string, now time.Time, ttl time.Duration) (*domain.CacheEntry, error) {
	var e domain.CacheEntry
	err := r.db.QueryRowContext(ctx,
		`SELECT id, query_id, hash, table_name, created_at
		 FROM query_cache WHERE query_id = ? AND hash = ?
		 ORDER BY created_at DESC LIMIT 1`, queryID, hash).
		Scan(&e.ID, &e.QueryID, &e.Hash, &e.TableName, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if e.Expired(now, ttl) {
		return nil, nil
	}
	return &e, nil
}

// Upsert creates or refreshes the entry for (queryID, hash). The UNIQUE
// constraint on the pair makes concurrent writers converge on a single row;
// the materialized table must already be published when this is called.
func (r *CacheRepo) Upsert(ctx context.Context, e *domain.CacheEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO query_cache (query_id, hash, table_name, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (query_id, hash) DO UPDATE SET table_name = excluded.table_name, created_at = excluded.created_at`,
		e.QueryID, e.Hash, e.TableName, e.CreatedAt)
	return mapDBError(err)
}
