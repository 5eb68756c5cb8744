// Package pipeline orchestrates query execution: definition loading,
// parameter and macro resolution, precedent evaluation, safety and permission
// gating, cache reuse, backend execution, materialization, and audit.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"chartly/internal/connector"
	"chartly/internal/domain"
	"chartly/internal/manipulate"
	"chartly/internal/safety"
	"chartly/internal/service/security"
	"chartly/internal/warehouse"
)

// MaxDepth bounds precedent recursion. Exceeding it is fatal for the request;
// it also defends against cycles in the precedent graph.
const MaxDepth = 10

// Engine runs the query execution pipeline.
type Engine struct {
	queries     domain.QueryRepository
	connections domain.ConnectionRepository
	cache       domain.CacheRepository
	audit       domain.AuditRepository
	connector   domain.Connector
	store       domain.ResultStore
	cacheTTL    time.Duration
	timeout     time.Duration
	logger      *slog.Logger
	inflight    singleflight.Group
	now         func() time.Time
}

// Options tune engine behavior.
type Options struct {
	CacheTTL     time.Duration // freshness window for cache entries
	QueryTimeout time.Duration // bound on one backend execution
}

// NewEngine wires an Engine from its collaborators.
func NewEngine(
	queries domain.QueryRepository,
	connections domain.ConnectionRepository,
	cache domain.CacheRepository,
	audit domain.AuditRepository,
	conn domain.Connector,
	store domain.ResultStore,
	opts Options,
	logger *slog.Logger,
) *Engine {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 60 * time.Second
	}
	return &Engine{
		queries:     queries,
		connections: connections,
		cache:       cache,
		audit:       audit,
		connector:   conn,
		store:       store,
		cacheTTL:    opts.CacheTTL,
		timeout:     opts.QueryTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// Request describes one top-level query execution.
type Request struct {
	QueryID    int64
	Parameters map[string]string
	// Cacheable overrides the definition's stored flag when non-nil.
	Cacheable *bool
}

// Outcome is the result of a pipeline run after manipulation.
type Outcome struct {
	Table   *manipulate.Table
	Cached  bool
	Elapsed time.Duration
}

// runResult is the raw per-invocation result before manipulation.
type runResult struct {
	data      *domain.ResultSet
	def       *domain.QueryDefinition
	cached    bool
	tableName string
}

// Run executes a persisted query definition for the user in ctx and applies
// the definition's manipulation flags to the root result.
func (e *Engine) Run(ctx context.Context, req Request) (*Outcome, error) {
	user, _ := domain.UserFromContext(ctx)
	start := e.now()

	res, err := e.run(ctx, req, user, 0, uuid.NewString())
	if err != nil {
		return nil, err
	}

	tbl, err := e.manipulate(res)
	if err != nil {
		return nil, err
	}
	return &Outcome{Table: tbl, Cached: res.cached, Elapsed: e.now().Sub(start)}, nil
}

// RunAdhoc executes raw query text against a database connection. It skips
// definition loading, parameter defaults, and precedents but runs the same
// safety, permission, cache, and execution stages. Interactive text has no
// persisted definition, so its cache identity is query id 0 plus the content
// hash of the text.
func (e *Engine) RunAdhoc(ctx context.Context, text string, databaseID int64) (*Outcome, error) {
	user, _ := domain.UserFromContext(ctx)
	start := e.now()

	conn, err := e.connections.GetByID(ctx, databaseID)
	if err != nil {
		return nil, err
	}

	st := state{
		user:      user,
		def:       &domain.QueryDefinition{QueryText: text, DatabaseID: databaseID, InsertLimit: true, Cacheable: true},
		conn:      conn,
		text:      text,
		cacheable: true,
	}
	st, err = e.prepare(st)
	if err != nil {
		return nil, err
	}
	// Interactive mode has no query tags; only connection tags apply.
	if err := security.Authorize(st.user, st.conn.Tags, nil); err != nil {
		return nil, err
	}

	data, cached, err := e.fetch(ctx, st)
	if err != nil {
		return nil, err
	}

	elapsed := e.now().Sub(start)
	e.recordExecution(ctx, st.user, nil, cached, elapsed)

	tbl := manipulate.FromResultSet(data)
	tbl.Numericalize()
	return &Outcome{Table: tbl, Cached: cached, Elapsed: elapsed}, nil
}

// run is one full pipeline invocation: the root request at depth 0, or a
// precedent at depth+1. The depth check is explicit so the fatal condition is
// a deliberate decision, not a stack limit.
func (e *Engine) run(ctx context.Context, req Request, user *domain.User, depth int, runToken string) (*runResult, error) {
	if depth > MaxDepth {
		return nil, &domain.RecursionLimitError{Depth: depth}
	}
	start := e.now()

	st, err := e.load(ctx, req, user, depth)
	if err != nil {
		return nil, err
	}
	st, err = e.resolveParams(ctx, st, req.Parameters)
	if err != nil {
		return nil, err
	}
	st, err = e.resolvePrecedents(ctx, st, req.Parameters, runToken)
	if err != nil {
		return nil, err
	}
	st, err = e.prepare(st)
	if err != nil {
		return nil, err
	}
	if err := security.Authorize(st.user, st.conn.Tags, st.def.Tags); err != nil {
		return nil, err
	}

	res, err := e.executeOrReuse(ctx, st, runToken)
	if err != nil {
		return nil, err
	}

	e.recordExecution(ctx, st.user, &st.def.ID, res.cached, e.now().Sub(start))
	return res, nil
}

// load fetches the definition and its connection and resolves the effective
// cacheable flag: an explicit caller override wins over the stored default.
func (e *Engine) load(ctx context.Context, req Request, user *domain.User, depth int) (state, error) {
	def, err := e.queries.GetDefinition(ctx, req.QueryID)
	if err != nil {
		return state{}, err
	}
	conn, err := e.connections.GetByID(ctx, def.DatabaseID)
	if err != nil {
		return state{}, err
	}

	cacheable := def.Cacheable
	if req.Cacheable != nil {
		cacheable = *req.Cacheable
	}

	return state{
		depth:     depth,
		user:      user,
		def:       def,
		conn:      conn,
		text:      def.QueryText,
		cacheable: cacheable,
	}, nil
}

// prepare gates the query text: safety check first, then the content hash of
// the unmutated text, then the limit clause when the definition asks for it,
// then the traceability comment. Hashing before mutation keeps the cache key
// independent of dialect and comment noise.
func (e *Engine) prepare(st state) (state, error) {
	if err := safety.Check(st.text); err != nil {
		return st, err
	}
	st.hash = safety.ContentHash(st.text)
	if st.def.InsertLimit {
		st.text = safety.AddLimit(st.text)
	}
	token, err := connector.CommentToken(st.conn.Dialect)
	if err != nil {
		return st, err
	}
	st.text = safety.AddComment(st.text, token, st.def.ID)
	return st, nil
}

// executeOrReuse obtains the invocation's data, from cache or live execution,
// and publishes it where the consumers can see it. A precedent invocation
// additionally writes its result onto the dependent query's backend: the
// dependent text selects from the intermediate table by name and runs on that
// backend, where warehouse tables are invisible.
func (e *Engine) executeOrReuse(ctx context.Context, st state, runToken string) (*runResult, error) {
	data, cached, err := e.fetch(ctx, st)
	if err != nil {
		return nil, err
	}

	res := &runResult{data: data, def: st.def, cached: cached}
	if st.depth > 0 {
		res.tableName = warehouse.IntermediateTableName(st.def.ID, runToken)
		if err := e.connector.Materialize(ctx, st.conn, res.tableName, data); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// fetch serves data from the warehouse cache when possible, otherwise
// executes against the backend and publishes the fresh result.
func (e *Engine) fetch(ctx context.Context, st state) (*domain.ResultSet, bool, error) {
	if !st.cacheable {
		data, err := e.execute(ctx, st)
		return data, false, err
	}

	entry, err := e.cache.Fresh(ctx, st.def.ID, st.hash, e.now(), e.cacheTTL)
	if err != nil {
		return nil, false, err
	}
	if entry != nil {
		rs, rerr := e.store.Retrieve(ctx, entry.TableName)
		if rerr == nil {
			return rs, true, nil
		}
		// Missing or unreadable materialized table: fall through to a live
		// execution instead of failing the request.
		e.logger.Error("cache table missing, falling back to live execution",
			"query_id", st.def.ID, "table", entry.TableName, "error", rerr)
	}

	// Collapse concurrent executions of the same (query id, hash) so two
	// requests computing the same result converge on one materialization.
	key := fmt.Sprintf("%d:%s", st.def.ID, st.hash)
	v, err, _ := e.inflight.Do(key, func() (interface{}, error) {
		data, err := e.execute(ctx, st)
		if err != nil {
			return nil, err
		}
		if err := e.materialize(ctx, st, warehouse.TableName(st.def.ID, st.hash), data); err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*domain.ResultSet), false, nil
}

// execute runs the prepared text against the backend with a bounded timeout
// and fails on an empty result set.
func (e *Engine) execute(ctx context.Context, st state) (*domain.ResultSet, error) {
	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	data, err := e.connector.Execute(execCtx, st.conn, st.text)
	if err != nil {
		return nil, err
	}
	if data.RowCount() == 0 {
		return nil, &domain.EmptyResultError{QueryID: st.def.ID}
	}
	return data, nil
}

// materialize publishes the fresh result to the warehouse, then makes the
// cache entry visible. Table write precedes entry visibility so readers never
// resolve an entry to a half-written table.
func (e *Engine) materialize(ctx context.Context, st state, tableName string, data *domain.ResultSet) error {
	if err := e.store.Materialize(ctx, tableName, data); err != nil {
		return err
	}
	return e.cache.Upsert(ctx, &domain.CacheEntry{
		QueryID:   st.def.ID,
		Hash:      st.hash,
		TableName: tableName,
		CreatedAt: e.now(),
	})
}

// manipulate applies the definition's reshaping flags to the root result.
func (e *Engine) manipulate(res *runResult) (*manipulate.Table, error) {
	tbl := manipulate.FromResultSet(res.data)
	if res.def.PivotData {
		if err := tbl.Pivot(0); err != nil {
			return nil, err
		}
	}
	if res.def.Cumulative {
		if err := tbl.Cumulative(); err != nil {
			return nil, err
		}
	}
	tbl.Numericalize()
	return tbl, nil
}

// recordExecution appends an audit record. Failures are logged and never
// block the response.
func (e *Engine) recordExecution(ctx context.Context, user *domain.User, queryID *int64, usedCache bool, elapsed time.Duration) {
	rec := &domain.ExecutionRecord{UsedCache: usedCache, ExecutionSecs: elapsed.Seconds()}
	if user != nil {
		rec.UserName = user.Name
	}
	if queryID != nil {
		id := *queryID
		rec.QueryID = &id
	}
	if err := e.audit.Insert(ctx, rec); err != nil {
		e.logger.Error("record query execution", "error", err)
	}
}
