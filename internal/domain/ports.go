package domain

import (
	"context"
	"time"
)

// QueryRepository provides read access to persisted query definitions and
// their parameter defaults and precedent edges.
type QueryRepository interface {
	GetDefinition(ctx context.Context, id int64) (*QueryDefinition, error)
	ListDefaults(ctx context.Context, queryID int64) ([]ParameterDefault, error)
	ListPrecedents(ctx context.Context, finalQueryID int64) ([]PrecedentEdge, error)
	ListCacheable(ctx context.Context) ([]QueryDefinition, error)
}

// ConnectionRepository provides read access to database connections.
type ConnectionRepository interface {
	GetByID(ctx context.Context, id int64) (*DatabaseConnection, error)
}

// CacheRepository manages CacheEntry rows in the metadata store.
type CacheRepository interface {
	// Fresh returns the newest non-expired entry for (queryID, hash), or nil
	// when no usable entry exists.
	Fresh(ctx context.Context, queryID int64, hash string, now time.Time, ttl time.Duration) (*CacheEntry, error)
	// Upsert atomically creates or refreshes the entry for (queryID, hash).
	// Backed by a uniqueness constraint so concurrent writers converge on one row.
	Upsert(ctx context.Context, e *CacheEntry) error
}

// AuditRepository records query executions. Write-only telemetry.
type AuditRepository interface {
	Insert(ctx context.Context, r *ExecutionRecord) error
}

// UserRepository resolves authenticated users with their group memberships.
type UserRepository interface {
	GetByName(ctx context.Context, name string) (*User, error)
}

// Connector executes SQL against a backend database and fetches the full
// result set into memory. It also writes result sets back onto a backend:
// precedent chains substitute intermediate table names into the dependent
// query's text, and that query runs on the backend, so the intermediate
// table must live there too.
type Connector interface {
	Execute(ctx context.Context, conn *DatabaseConnection, query string) (*ResultSet, error)
	// Materialize writes rs as a physical table on the connection's backend,
	// replacing any previous table of that name.
	Materialize(ctx context.Context, conn *DatabaseConnection, tableName string, rs *ResultSet) error
}

// ResultStore materializes result sets as physical tables and loads them back.
type ResultStore interface {
	// Materialize writes the result set under tableName, replacing any
	// previous table of that name. The write is atomic from a reader's point
	// of view: the table is published only after all rows are in.
	Materialize(ctx context.Context, tableName string, rs *ResultSet) error
	// Retrieve loads a materialized table, coercing numeric-looking text
	// columns back to numeric types.
	Retrieve(ctx context.Context, tableName string) (*ResultSet, error)
}
