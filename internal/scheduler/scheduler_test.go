package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartly/internal/domain"
	"chartly/internal/service/pipeline"
	"chartly/internal/testutil"
)

func newTestScheduler(t *testing.T) (*Scheduler, *testutil.MockQueryRepo, *testutil.MockConnector) {
	t.Helper()
	queries := &testutil.MockQueryRepo{}
	connector := &testutil.MockConnector{}
	connections := &testutil.MockConnectionRepo{
		GetByIDFn: func(ctx context.Context, id int64) (*domain.DatabaseConnection, error) {
			return &domain.DatabaseConnection{ID: id, Name: "sales", Dialect: domain.DialectMySQL}, nil
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := pipeline.NewEngine(
		queries, connections, &testutil.MockCacheRepo{}, &testutil.MockAuditRepo{},
		connector, &testutil.MockResultStore{}, pipeline.Options{}, logger,
	)
	return New(engine, queries, logger), queries, connector
}

func TestWarmRunsEveryCacheableQuery(t *testing.T) {
	sched, queries, connector := newTestScheduler(t)

	defs := []domain.QueryDefinition{
		{ID: 1, DatabaseID: 2, QueryText: "select a, b from t1", Cacheable: true},
		{ID: 2, DatabaseID: 2, QueryText: "select c, d from t2", Cacheable: true},
	}
	queries.ListCacheableFn = func(ctx context.Context) ([]domain.QueryDefinition, error) {
		return defs, nil
	}
	queries.GetDefinitionFn = func(ctx context.Context, id int64) (*domain.QueryDefinition, error) {
		for i := range defs {
			if defs[i].ID == id {
				copied := defs[i]
				return &copied, nil
			}
		}
		return nil, domain.ErrNotFound("no query matches id %d", id)
	}
	connector.ExecuteFn = func(ctx context.Context, conn *domain.DatabaseConnection, query string) (*domain.ResultSet, error) {
		return &domain.ResultSet{Columns: []string{"x"}, Rows: [][]interface{}{{int64(1)}}}, nil
	}

	sched.Warm(context.Background())
	assert.Len(t, connector.Executed, 2)
}

func TestWarmContinuesOnFailure(t *testing.T) {
	sched, queries, connector := newTestScheduler(t)

	queries.ListCacheableFn = func(ctx context.Context) ([]domain.QueryDefinition, error) {
		return []domain.QueryDefinition{
			{ID: 1, DatabaseID: 2, QueryText: "drop table t", Cacheable: true}, // fails the safety gate
			{ID: 2, DatabaseID: 2, QueryText: "select c from t2", Cacheable: true},
		}, nil
	}
	queries.GetDefinitionFn = func(ctx context.Context, id int64) (*domain.QueryDefinition, error) {
		if id == 1 {
			return &domain.QueryDefinition{ID: 1, DatabaseID: 2, QueryText: "drop table t", Cacheable: true}, nil
		}
		return &domain.QueryDefinition{ID: 2, DatabaseID: 2, QueryText: "select c from t2", Cacheable: true}, nil
	}
	connector.ExecuteFn = func(ctx context.Context, conn *domain.DatabaseConnection, query string) (*domain.ResultSet, error) {
		return &domain.ResultSet{Columns: []string{"c"}, Rows: [][]interface{}{{int64(1)}}}, nil
	}

	sched.Warm(context.Background())
	assert.Len(t, connector.Executed, 1) // only the safe query ran
}

func TestStartEmptySpecDisables(t *testing.T) {
	sched, _, _ := newTestScheduler(t)
	require.NoError(t, sched.Start(""))
	sched.Stop()
}

func TestStartBadSpec(t *testing.T) {
	sched, _, _ := newTestScheduler(t)
	require.Error(t, sched.Start("not a cron spec"))
}

func TestStartValidSpec(t *testing.T) {
	sched, _, _ := newTestScheduler(t)
	require.NoError(t, sched.Start("@hourly"))
	sched.Stop()
}
