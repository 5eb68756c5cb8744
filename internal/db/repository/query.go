package repository

import (
	"context"
	"database/sql"

	"chartly/internal/domain"
)

// QueryRepo implements domain.QueryRepository over the metadata store.
type QueryRepo struct {
	db *sql.DB
}

// NewQueryRepo creates a QueryRepo.
func NewQueryRepo(db *sql.DB) *QueryRepo {
	return &QueryRepo{db: db}
}

func (r *QueryRepo) GetDefinition(ctx context.Context, id int64) (*domain.QueryDefinition, error) {
	var q domain.QueryDefinition
	var cacheable, insertLimit, pivotData, cumulative int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, query_text, database_id, cacheable, insert_limit, pivot_data, cumulative, chart_type, created_at
		 FROM queries WHERE id = ?`, id).
		Scan(&q.ID, &q.Title, &q.QueryText, &q.DatabaseID, &cacheable, &insertLimit, &pivotData, &cumulative, &q.ChartType, &q.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound("no query matches id %d", id)
		}
		return nil, err
	}
	q.Cacheable = cacheable != 0
	q.InsertLimit = insertLimit != 0
	q.PivotData = pivotData != 0
	q.Cumulative = cumulative != 0

	tags, err := r.listTags(ctx, `SELECT tag FROM query_tags WHERE query_id = ? ORDER BY tag`, id)
	if err != nil {
		return nil, err
	}
	q.Tags = tags
	return &q, nil
}

func (r *QueryRepo) ListDefaults(ctx context.Context, queryID int64) ([]domain.ParameterDefault, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, query_id, search_for, data_type, replace_with
		 FROM query_defaults WHERE query_id = ? ORDER BY id`, queryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defaults []domain.ParameterDefault
	for rows.Next() {
		var d domain.ParameterDefault
		if err := rows.Scan(&d.ID, &d.QueryID, &d.SearchFor, &d.DataType, &d.ReplaceWith); err != nil {
			return nil, err
		}
		defaults = append(defaults, d)
	}
	return defaults, rows.Err()
}

func (r *QueryRepo) ListPrecedents(ctx context.Context, finalQueryID int64) ([]domain.PrecedentEdge, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, final_query_id, preceding_query_id
		 FROM query_precedents WHERE final_query_id = ? ORDER BY id`, finalQueryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.PrecedentEdge
	for rows.Next() {
		var e domain.PrecedentEdge
		if err := rows.Scan(&e.ID, &e.FinalQueryID, &e.PrecedingQueryID); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (r *QueryRepo) ListCacheable(ctx context.Context) ([]domain.QueryDefinition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, query_text, database_id, cacheable, insert_limit, pivot_data, cumulative, chart_type, created_at
		 FROM queries WHERE cacheable = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []domain.QueryDefinition
	for rows.Next() {
		var q domain.QueryDefinition
		var cacheable, insertLimit, pivotData, cumulative int64
		if err := rows.Scan(&q.ID, &q.Title, &q.QueryText, &q.DatabaseID, &cacheable, &insertLimit, &pivotData, &cumulative, &q.ChartType, &q.CreatedAt); err != nil {
			return nil, err
		}
		q.Cacheable = cacheable != 0
		q.InsertLimit = insertLimit != 0
		q.PivotData = pivotData != 0
		q.Cumulative = cumulative != 0
		defs = append(defs, q)
	}
	return defs, rows.Err()
}

// CreateDefinition inserts a query definition with its tags. Used by seeding
// and tests; the admin surface that normally writes these lives elsewhere.
func (r *QueryRepo) CreateDefinition(ctx context.Context, q *domain.QueryDefinition) (*domain.QueryDefinition, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO queries (title, query_text, database_id, cacheable, insert_limit, pivot_data, cumulative, chart_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.Title, q.QueryText, q.DatabaseID, boolToInt(q.Cacheable), boolToInt(q.InsertLimit),
		boolToInt(q.PivotData), boolToInt(q.Cumulative), q.ChartType)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	for _, tag := range q.Tags {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO query_tags (query_id, tag) VALUES (?, ?)`, id, tag); err != nil {
			return nil, mapDBError(err)
		}
	}
	return r.GetDefinition(ctx, id)
}

// SetDefault inserts or replaces a parameter default for a query.
func (r *QueryRepo) SetDefault(ctx context.Context, d *domain.ParameterDefault) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO query_defaults (query_id, search_for, data_type, replace_with)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (query_id, search_for) DO UPDATE SET data_type = excluded.data_type, replace_with = excluded.replace_with`,
		d.QueryID, d.SearchFor, d.DataType, d.ReplaceWith)
	return mapDBError(err)
}

// AddPrecedent inserts a precedent edge.
func (r *QueryRepo) AddPrecedent(ctx context.Context, finalQueryID, precedingQueryID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO query_precedents (final_query_id, preceding_query_id) VALUES (?, ?)`,
		finalQueryID, precedingQueryID)
	return mapDBError(err)
}

func (r *QueryRepo) listTags(ctx context.Context, query string, id int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
