package domain

import "time"

// CacheEntry maps (query id, content hash) to a materialized result table in
// the warehouse. Multiple historical entries may exist for a query; the newest
// non-expired one wins at lookup time.
type CacheEntry struct {
	ID        int64
	QueryID   int64
	Hash      string
	TableName string
	CreatedAt time.Time
}

// Expired reports whether the entry is older than ttl at the given instant.
// Expiry is evaluated at lookup time, never swept eagerly.
func (e *CacheEntry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CreatedAt) > ttl
}
