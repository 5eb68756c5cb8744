// Package warehouse persists executed result sets as physical tables in a
// SQLite database and loads them back. Table writes are transactional: a
// reader either sees the previous table or the fully written replacement,
// never a half-written one.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"chartly/internal/domain"
	"chartly/internal/manipulate"
)

// insertBatchSize bounds the number of rows per INSERT statement.
const insertBatchSize = 500

// Store implements domain.ResultStore over a dedicated SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates a Store over the warehouse database.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// TableName returns the deterministic table name for a cached query result.
// The hash is truncated to keep identifiers readable in the warehouse.
func TableName(queryID int64, hash string) string {
	if len(hash) > 16 {
		hash = hash[:16]
	}
	return fmt.Sprintf("table_%d_%s", queryID, hash)
}

// IntermediateTableName returns the name for a precedent-chain intermediate
// result, scoped by a per-run token.
func IntermediateTableName(queryID int64, runToken string) string {
	return fmt.Sprintf("table_%d_%s", queryID, strings.ReplaceAll(runToken, "-", ""))
}

// Materialize writes the result set under tableName, replacing any previous
// table of that name. Drop, create, and inserts share one transaction so the
// publish is atomic from a reader's point of view.
func (s *Store) Materialize(ctx context.Context, tableName string, rs *domain.ResultSet) error {
	if len(rs.Columns) == 0 {
		return domain.ErrValidation("can not materialize a result set with no columns")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin materialize: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	quoted := quoteIdent(tableName)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
		return fmt.Errorf("drop previous table: %w", err)
	}

	colDefs := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		colDefs[i] = quoteIdent(c)
	}
	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoted, strings.Join(colDefs, ", "))
	if _, err := tx.ExecContext(ctx, createStmt); err != nil {
		return fmt.Errorf("create table %s: %w", tableName, err)
	}

	for start := 0; start < len(rs.Rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rs.Rows) {
			end = len(rs.Rows)
		}
		builder := sq.Insert(quoted).Columns(colDefs...)
		for _, row := range rs.Rows[start:end] {
			builder = builder.Values(row...)
		}
		stmt, args, err := builder.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert rows into %s: %w", tableName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("publish table %s: %w", tableName, err)
	}

	s.logger.Debug("materialized result", "table", tableName, "rows", len(rs.Rows))
	return nil
}

// Retrieve loads a materialized table back into memory, coercing
// numeric-looking text columns back to numeric types.
func (s *Store) Retrieve(ctx context.Context, tableName string) (*domain.ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(tableName))
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", tableName, err)
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var resultRows [][]interface{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]interface{}, len(vals))
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			} else {
				row[i] = v
			}
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rs := &domain.ResultSet{Columns: cols, Rows: resultRows}
	manipulate.Numericalize(rs)
	return rs, nil
}

// quoteIdent wraps an identifier in double quotes, escaping embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
