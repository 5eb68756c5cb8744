// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chartly/internal/domain"
)

// === Query Repository Mock ===

// MockQueryRepo implements domain.QueryRepository for testing.
type MockQueryRepo struct {
	GetDefinitionFn  func(ctx context.Context, id int64) (*domain.QueryDefinition, error)
	ListDefaultsFn   func(ctx context.Context, queryID int64) ([]domain.ParameterDefault, error)
	ListPrecedentsFn func(ctx context.Context, finalQueryID int64) ([]domain.PrecedentEdge, error)
	ListCacheableFn  func(ctx context.Context) ([]domain.QueryDefinition, error)
}

// GetDefinition implements the interface method for testing.
func (m *MockQueryRepo) GetDefinition(ctx context.Context, id int64) (*domain.QueryDefinition, error) {
	if m.GetDefinitionFn != nil {
		return m.GetDefinitionFn(ctx, id)
	}
	panic("unexpected call to MockQueryRepo.GetDefinition")
}

// ListDefaults implements the interface method for testing. Defaults to an
// empty slice so the common case needs no stub.
func (m *MockQueryRepo) ListDefaults(ctx context.Context, queryID int64) ([]domain.ParameterDefault, error) {
	if m.ListDefaultsFn != nil {
		return m.ListDefaultsFn(ctx, queryID)
	}
	return nil, nil
}

// ListPrecedents implements the interface method for testing. Defaults to no
// edges.
func (m *MockQueryRepo) ListPrecedents(ctx context.Context, finalQueryID int64) ([]domain.PrecedentEdge, error) {
	if m.ListPrecedentsFn != nil {
		return m.ListPrecedentsFn(ctx, finalQueryID)
	}
	return nil, nil
}

// ListCacheable implements the interface method for testing.
func (m *MockQueryRepo) ListCacheable(ctx context.Context) ([]domain.QueryDefinition, error) {
	if m.ListCacheableFn != nil {
		return m.ListCacheableFn(ctx)
	}
	panic("unexpected call to MockQueryRepo.ListCacheable")
}

var _ domain.QueryRepository = (*MockQueryRepo)(nil)

// === Connection Repository Mock ===

// MockConnectionRepo implements domain.ConnectionRepository for testing.
type MockConnectionRepo struct {
	GetByIDFn func(ctx context.Context, id int64) (*domain.DatabaseConnection, error)
}

// GetByID implements the interface method for testing.
func (m *MockConnectionRepo) GetByID(ctx context.Context, id int64) (*domain.DatabaseConnection, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockConnectionRepo.GetByID")
}

var _ domain.ConnectionRepository = (*MockConnectionRepo)(nil)

// === Cache Repository Mock ===

// MockCacheRepo implements domain.CacheRepository for testing. Without stubs
// it behaves as an in-memory cache keyed by (queryID, hash). Safe for
// concurrent use.
type MockCacheRepo struct {
	FreshFn  func(ctx context.Context, queryID int64, hash string, now time.Time, ttl time.Duration) (*domain.CacheEntry, error)
	UpsertFn func(ctx context.Context, e *domain.CacheEntry) error

	mu      sync.Mutex
	Entries map[string]*domain.CacheEntry
}

func cacheKey(queryID int64, hash string) string {
	return fmt.Sprintf("%d/%s", queryID, hash)
}

// Fresh implements the interface method for testing.
func (m *MockCacheRepo) Fresh(ctx context.Context, queryID int64, hash string, now time.Time, ttl time.Duration) (*domain.CacheEntry, error) {
	if m.FreshFn != nil {
		return m.FreshFn(ctx, queryID, hash, now, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Entries[cacheKey(queryID, hash)]
	if !ok || e.Expired(now, ttl) {
		return nil, nil
	}
	return e, nil
}

// Upsert implements the interface method for testing.
func (m *MockCacheRepo) Upsert(ctx context.Context, e *domain.CacheEntry) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Entries == nil {
		m.Entries = map[string]*domain.CacheEntry{}
	}
	m.Entries[cacheKey(e.QueryID, e.Hash)] = e
	return nil
}

// Len returns the number of stored entries.
func (m *MockCacheRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries)
}

var _ domain.CacheRepository = (*MockCacheRepo)(nil)

// === Audit Repository Mock ===

// MockAuditRepo implements domain.AuditRepository for testing. Safe for
// concurrent use.
type MockAuditRepo struct {
	InsertFn func(ctx context.Context, r *domain.ExecutionRecord) error

	mu      sync.Mutex
	Records []*domain.ExecutionRecord // collected records for assertions
}

// Insert implements the interface method for testing.
func (m *MockAuditRepo) Insert(ctx context.Context, r *domain.ExecutionRecord) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(ctx, r); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, r)
	return nil
}

// LastRecord returns the last collected record, or nil if none.
func (m *MockAuditRepo) LastRecord() *domain.ExecutionRecord {
	if len(m.Records) == 0 {
		return nil
	}
	return m.Records[len(m.Records)-1]
}

var _ domain.AuditRepository = (*MockAuditRepo)(nil)

// === User Repository Mock ===

// MockUserRepo implements domain.UserRepository for testing.
type MockUserRepo struct {
	GetByNameFn func(ctx context.Context, name string) (*domain.User, error)
}

// GetByName implements the interface method for testing.
func (m *MockUserRepo) GetByName(ctx context.Context, name string) (*domain.User, error) {
	if m.GetByNameFn != nil {
		return m.GetByNameFn(ctx, name)
	}
	panic("unexpected call to MockUserRepo.GetByName")
}

var _ domain.UserRepository = (*MockUserRepo)(nil)

// === Connector Mock ===

// MockConnector implements domain.Connector for testing. It records every
// executed query text and keeps materialized tables in Backend, acting as the
// fake backend database. Safe for concurrent use.
type MockConnector struct {
	ExecuteFn     func(ctx context.Context, conn *domain.DatabaseConnection, query string) (*domain.ResultSet, error)
	MaterializeFn func(ctx context.Context, conn *domain.DatabaseConnection, tableName string, rs *domain.ResultSet) error

	mu       sync.Mutex
	Executed []string
	Backend  map[string]*domain.ResultSet // tables materialized on the fake backend
}

// Execute implements the interface method for testing.
func (m *MockConnector) Execute(ctx context.Context, conn *domain.DatabaseConnection, query string) (*domain.ResultSet, error) {
	m.mu.Lock()
	m.Executed = append(m.Executed, query)
	m.mu.Unlock()
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, conn, query)
	}
	panic("unexpected call to MockConnector.Execute")
}

// Materialize implements the interface method for testing.
func (m *MockConnector) Materialize(ctx context.Context, conn *domain.DatabaseConnection, tableName string, rs *domain.ResultSet) error {
	if m.MaterializeFn != nil {
		if err := m.MaterializeFn(ctx, conn, tableName, rs); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Backend == nil {
		m.Backend = map[string]*domain.ResultSet{}
	}
	m.Backend[tableName] = rs
	return nil
}

// BackendTable returns the materialized table of that name, or nil.
func (m *MockConnector) BackendTable(name string) *domain.ResultSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Backend[name]
}

// ExecutedCount returns how many queries ran.
func (m *MockConnector) ExecutedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Executed)
}

var _ domain.Connector = (*MockConnector)(nil)

// === Result Store Mock ===

// MockResultStore implements domain.ResultStore for testing. Without stubs it
// acts as an in-memory table store. Safe for concurrent use.
type MockResultStore struct {
	MaterializeFn func(ctx context.Context, tableName string, rs *domain.ResultSet) error
	RetrieveFn    func(ctx context.Context, tableName string) (*domain.ResultSet, error)

	mu     sync.Mutex
	Tables map[string]*domain.ResultSet
}

// Materialize implements the interface method for testing.
func (m *MockResultStore) Materialize(ctx context.Context, tableName string, rs *domain.ResultSet) error {
	if m.MaterializeFn != nil {
		return m.MaterializeFn(ctx, tableName, rs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Tables == nil {
		m.Tables = map[string]*domain.ResultSet{}
	}
	m.Tables[tableName] = rs
	return nil
}

// Retrieve implements the interface method for testing.
func (m *MockResultStore) Retrieve(ctx context.Context, tableName string) (*domain.ResultSet, error) {
	if m.RetrieveFn != nil {
		return m.RetrieveFn(ctx, tableName)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.Tables[tableName]
	if !ok {
		return nil, domain.ErrNotFound("no such table: %s", tableName)
	}
	return rs, nil
}

// Drop removes every stored table, simulating a vacuumed warehouse.
func (m *MockResultStore) Drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tables = nil
}

var _ domain.ResultStore = (*MockResultStore)(nil)
