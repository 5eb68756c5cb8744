package repository

import (
	"context"
	"database/sql"

	"chartly/internal/domain"
)

// AuditRepo implements domain.AuditRepository over the metadata store.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates an AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Insert(ctx context.Context, rec *domain.ExecutionRecord) error {
	var queryID interface{}
	if rec.QueryID != nil {
		queryID = *rec.QueryID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO query_views (user_name, query_id, used_cache, execution_time)
		 VALUES (?, ?, ?, ?)`,
		rec.UserName, queryID, boolToInt(rec.UsedCache), rec.ExecutionSecs)
	return mapDBError(err)
}

// CountForQuery returns the number of recorded executions for a query.
// Used by tests and operational tooling; the pipeline itself never reads.
func (r *AuditRepo) CountForQuery(ctx context.Context, queryID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM query_views WHERE query_id = ?`, queryID).Scan(&n)
	return n, err
}
