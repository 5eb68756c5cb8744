package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "chartly/internal/db"
	"chartly/internal/domain"
)

func seedConnection(t *testing.T, repo *ConnectionRepo, tags ...string) *domain.DatabaseConnection {
	t.Helper()
	conn, err := repo.Create(context.Background(), &domain.DatabaseConnection{
		Name: "sales-" + t.Name(), Dialect: domain.DialectMySQL,
		Host: "db.internal", Port: 3306, DBName: "sales", Username: "reader",
		Tags: tags,
	})
	require.NoError(t, err)
	return conn
}

func TestConnectionRepoRoundTrip(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	repo := NewConnectionRepo(writeDB)

	created := seedConnection(t, repo, "finance", "analytics")

	got, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DialectMySQL, got.Dialect)
	assert.Equal(t, "db.internal", got.Host)
	assert.Equal(t, []string{"analytics", "finance"}, got.Tags)
}

func TestConnectionRepoNotFound(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	repo := NewConnectionRepo(writeDB)

	_, err := repo.GetByID(context.Background(), 404)
	var nerr *domain.NotFoundError
	require.ErrorAs(t, err, &nerr)
}

func TestQueryRepoRoundTrip(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	conns := NewConnectionRepo(writeDB)
	repo := NewQueryRepo(writeDB)
	ctx := context.Background()

	conn := seedConnection(t, conns)
	created, err := repo.CreateDefinition(ctx, &domain.QueryDefinition{
		Title: "daily signups", QueryText: "select day, n from signups",
		DatabaseID: conn.ID, Tags: []string{"growth"},
		Cacheable: true, InsertLimit: true, PivotData: true, ChartType: "line",
	})
	require.NoError(t, err)

	got, err := repo.GetDefinition(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "daily signups", got.Title)
	assert.True(t, got.Cacheable)
	assert.True(t, got.InsertLimit)
	assert.True(t, got.PivotData)
	assert.False(t, got.Cumulative)
	assert.Equal(t, []string{"growth"}, got.Tags)
}

func TestQueryRepoNotFound(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	repo := NewQueryRepo(writeDB)

	_, err := repo.GetDefinition(context.Background(), 404)
	var nerr *domain.NotFoundError
	require.ErrorAs(t, err, &nerr)
	assert.Contains(t, err.Error(), "no query matches")
}

func TestQueryRepoDefaults(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	conns := NewConnectionRepo(writeDB)
	repo := NewQueryRepo(writeDB)
	ctx := context.Background()

	conn := seedConnection(t, conns)
	def, err := repo.CreateDefinition(ctx, &domain.QueryDefinition{
		QueryText: "select * from t where r = '<region>'", DatabaseID: conn.ID,
	})
	require.NoError(t, err)

	require.NoError(t, repo.SetDefault(ctx, &domain.ParameterDefault{
		QueryID: def.ID, SearchFor: "<region>", DataType: "string", ReplaceWith: "emea",
	}))
	// Upsert replaces the previous value for the same placeholder.
	require.NoError(t, repo.SetDefault(ctx, &domain.ParameterDefault{
		QueryID: def.ID, SearchFor: "<region>", DataType: "string", ReplaceWith: "apac",
	}))

	defaults, err := repo.ListDefaults(ctx, def.ID)
	require.NoError(t, err)
	require.Len(t, defaults, 1)
	assert.Equal(t, "apac", defaults[0].ReplaceWith)
}

func TestQueryRepoPrecedents(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	conns := NewConnectionRepo(writeDB)
	repo := NewQueryRepo(writeDB)
	ctx := context.Background()

	conn := seedConnection(t, conns)
	base, err := repo.CreateDefinition(ctx, &domain.QueryDefinition{QueryText: "select 1", DatabaseID: conn.ID})
	require.NoError(t, err)
	final, err := repo.CreateDefinition(ctx, &domain.QueryDefinition{QueryText: "select 2", DatabaseID: conn.ID})
	require.NoError(t, err)

	require.NoError(t, repo.AddPrecedent(ctx, final.ID, base.ID))

	// Duplicate edge hits the UNIQUE constraint.
	err = repo.AddPrecedent(ctx, final.ID, base.ID)
	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr)

	edges, err := repo.ListPrecedents(ctx, final.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, base.ID, edges[0].PrecedingQueryID)

	edges, err = repo.ListPrecedents(ctx, base.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestQueryRepoListCacheable(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	conns := NewConnectionRepo(writeDB)
	repo := NewQueryRepo(writeDB)
	ctx := context.Background()

	conn := seedConnection(t, conns)
	_, err := repo.CreateDefinition(ctx, &domain.QueryDefinition{QueryText: "select 1", DatabaseID: conn.ID, Cacheable: true})
	require.NoError(t, err)
	_, err = repo.CreateDefinition(ctx, &domain.QueryDefinition{QueryText: "select 2", DatabaseID: conn.ID, Cacheable: false})
	require.NoError(t, err)

	defs, err := repo.ListCacheable(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "select 1", defs[0].QueryText)
}

func TestCacheRepoFreshAndUpsert(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	conns := NewConnectionRepo(writeDB)
	queries := NewQueryRepo(writeDB)
	repo := NewCacheRepo(writeDB)
	ctx := context.Background()

	conn := seedConnection(t, conns)
	def, err := queries.CreateDefinition(ctx, &domain.QueryDefinition{QueryText: "select 1", DatabaseID: conn.ID})
	require.NoError(t, err)

	now := time.Now().UTC()

	// Miss before any write.
	entry, err := repo.Fresh(ctx, def.ID, "h1", now, time.Hour)
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, repo.Upsert(ctx, &domain.CacheEntry{
		QueryID: def.ID, Hash: "h1", TableName: "table_1_h1", CreatedAt: now,
	}))

	entry, err = repo.Fresh(ctx, def.ID, "h1", now, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "table_1_h1", entry.TableName)

	// Different hash is a different cache slot.
	entry, err = repo.Fresh(ctx, def.ID, "h2", now, time.Hour)
	require.NoError(t, err)
	assert.Nil(t, entry)

	// Expired entries are treated as misses.
	entry, err = repo.Fresh(ctx, def.ID, "h1", now.Add(2*time.Hour), time.Hour)
	require.NoError(t, err)
	assert.Nil(t, entry)

	// Upsert refreshes in place rather than inserting a second row.
	require.NoError(t, repo.Upsert(ctx, &domain.CacheEntry{
		QueryID: def.ID, Hash: "h1", TableName: "table_1_h1b", CreatedAt: now.Add(3 * time.Hour),
	}))
	entry, err = repo.Fresh(ctx, def.ID, "h1", now.Add(3*time.Hour), time.Hour)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "table_1_h1b", entry.TableName)
}

func TestCacheRepoInteractiveEntry(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	repo := NewCacheRepo(writeDB)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	// Interactive text has no row in queries; id 0 plus the hash is the whole
	// identity, so the write must succeed with foreign keys enforced.
	require.NoError(t, repo.Upsert(ctx, &domain.CacheEntry{
		QueryID: 0, Hash: "h-adhoc", TableName: "table_0_hadhoc", CreatedAt: now,
	}))

	entry, err := repo.Fresh(ctx, 0, "h-adhoc", now, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(0), entry.QueryID)
	assert.Equal(t, "table_0_hadhoc", entry.TableName)
}

func TestAuditRepoInsert(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	conns := NewConnectionRepo(writeDB)
	queries := NewQueryRepo(writeDB)
	repo := NewAuditRepo(writeDB)
	ctx := context.Background()

	conn := seedConnection(t, conns)
	def, err := queries.CreateDefinition(ctx, &domain.QueryDefinition{QueryText: "select 1", DatabaseID: conn.ID})
	require.NoError(t, err)

	id := def.ID
	require.NoError(t, repo.Insert(ctx, &domain.ExecutionRecord{
		UserName: "ana", QueryID: &id, UsedCache: true, ExecutionSecs: 0.42,
	}))
	// Interactive executions have no query id.
	require.NoError(t, repo.Insert(ctx, &domain.ExecutionRecord{UserName: "ana"}))

	n, err := repo.CountForQuery(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserRepoRoundTrip(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	repo := NewUserRepo(writeDB)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.User{
		Name: "ana", Active: true, Groups: []string{"finance", "analytics"},
	})
	require.NoError(t, err)

	got, err := repo.GetByName(ctx, "ana")
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.False(t, got.Superuser)
	assert.Equal(t, []string{"analytics", "finance"}, got.Groups)
}

func TestUserRepoNotFound(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	repo := NewUserRepo(writeDB)

	_, err := repo.GetByName(context.Background(), "ghost")
	var nerr *domain.NotFoundError
	require.ErrorAs(t, err, &nerr)
}

func TestUserRepoDuplicateName(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	repo := NewUserRepo(writeDB)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.User{Name: "ana", Active: true})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Name: "ana", Active: true})
	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr)
}
