package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"chartly/internal/domain"
)

// materializeBatchSize bounds the number of rows per INSERT statement.
const materializeBatchSize = 500

// Materialize writes the result set as a physical table on the connection's
// backend, replacing any previous table of that name. Precedent chains depend
// on this: the dependent query selects from the intermediate table by name,
// and it runs on this backend, so the table has to exist here and nowhere
// else. Columns are created as TEXT; the dependent query's own expressions
// decide how values are interpreted.
func (c *SQLConnector) Materialize(ctx context.Context, conn *domain.DatabaseConnection, tableName string, rs *domain.ResultSet) error {
	if len(rs.Columns) == 0 {
		return domain.ErrValidation("can not materialize a result set with no columns")
	}

	sqlDB, info, err := c.open(conn)
	if err != nil {
		return err
	}
	defer c.close(sqlDB, conn)

	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin materialize on %s: %w", conn.Name, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := writeTable(ctx, tx, info, tableName, rs); err != nil {
		return fmt.Errorf("materialize %s on %s: %w", tableName, conn.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("publish table %s on %s: %w", tableName, conn.Name, err)
	}

	c.logger.Debug("materialized result on backend", "connection", conn.Name, "table", tableName, "rows", len(rs.Rows))
	return nil
}

// writeTable drops, recreates, and fills the table inside the transaction,
// using the dialect's identifier quoting and bind placeholders.
func writeTable(ctx context.Context, tx *sql.Tx, info dialectInfo, tableName string, rs *domain.ResultSet) error {
	quoted := info.quoteIdent(tableName)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
		return fmt.Errorf("drop previous table: %w", err)
	}

	colNames := make([]string, len(rs.Columns))
	colDefs := make([]string, len(rs.Columns))
	for i, col := range rs.Columns {
		colNames[i] = info.quoteIdent(col)
		colDefs[i] = colNames[i] + " TEXT"
	}
	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoted, strings.Join(colDefs, ", "))
	if _, err := tx.ExecContext(ctx, createStmt); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	for start := 0; start < len(rs.Rows); start += materializeBatchSize {
		end := start + materializeBatchSize
		if end > len(rs.Rows) {
			end = len(rs.Rows)
		}
		builder := sq.Insert(quoted).Columns(colNames...).PlaceholderFormat(info.placeholder)
		for _, row := range rs.Rows[start:end] {
			builder = builder.Values(row...)
		}
		stmt, args, err := builder.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert rows: %w", err)
		}
	}
	return nil
}
