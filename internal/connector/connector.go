// Package connector executes query text against backend databases. It owns
// DSN assembly (including credential decryption) and fetching result sets
// into memory.
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	_ "github.com/go-sql-driver/mysql" // MySQL dialect driver
	_ "github.com/lib/pq"              // Postgres dialect driver

	"chartly/internal/db/crypto"
	"chartly/internal/domain"
)

// SQLConnector implements domain.Connector over database/sql drivers.
// Connections are opened per execution and closed when the fetch completes;
// backend pools are the backend's concern, not ours.
type SQLConnector struct {
	encryptor *crypto.Encryptor
	logger    *slog.Logger
}

// NewSQLConnector creates a SQLConnector. encryptor may be nil when stored
// passwords are plaintext (development setups).
func NewSQLConnector(encryptor *crypto.Encryptor, logger *slog.Logger) *SQLConnector {
	return &SQLConnector{encryptor: encryptor, logger: logger}
}

// Execute opens a dialect-appropriate connection, runs the query, and fetches
// the full result set. The caller bounds execution via ctx.
func (c *SQLConnector) Execute(ctx context.Context, conn *domain.DatabaseConnection, query string) (*domain.ResultSet, error) {
	sqlDB, _, err := c.open(conn)
	if err != nil {
		return nil, err
	}
	defer c.close(sqlDB, conn)

	rows, err := sqlDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return scanRows(rows)
}

// open resolves the dialect and opens a backend pool for one operation.
func (c *SQLConnector) open(conn *domain.DatabaseConnection) (*sql.DB, dialectInfo, error) {
	info, ok := dialects[conn.Dialect]
	if !ok {
		return nil, info, &domain.UnsupportedDialectError{Dialect: string(conn.Dialect)}
	}
	if info.driverName == "" {
		return nil, info, &domain.NotImplementedDialectError{Dialect: string(conn.Dialect)}
	}

	dsn, err := c.buildDSN(conn, info)
	if err != nil {
		return nil, info, err
	}

	sqlDB, err := sql.Open(info.driverName, dsn)
	if err != nil {
		return nil, info, fmt.Errorf("open %s connection: %w", conn.Dialect, err)
	}
	return sqlDB, info, nil
}

func (c *SQLConnector) close(sqlDB *sql.DB, conn *domain.DatabaseConnection) {
	if cerr := sqlDB.Close(); cerr != nil {
		c.logger.Warn("close backend connection", "dialect", conn.Dialect, "error", cerr)
	}
}

// buildDSN assembles the driver DSN, decrypting the stored password only here.
func (c *SQLConnector) buildDSN(conn *domain.DatabaseConnection, info dialectInfo) (string, error) {
	password := conn.PasswordEncrypted
	if c.encryptor != nil && password != "" {
		decrypted, err := c.encryptor.Decrypt(password)
		if err != nil {
			return "", fmt.Errorf("decrypt credentials for connection %q: %w", conn.Name, err)
		}
		password = decrypted
	}

	switch info.driverName {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", conn.Username, password, conn.Host, conn.Port, conn.DBName), nil
	case "postgres":
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(conn.Username, password),
			Host:   fmt.Sprintf("%s:%d", conn.Host, conn.Port),
			Path:   conn.DBName,
		}
		return u.String(), nil
	default:
		return "", &domain.NotImplementedDialectError{Dialect: string(conn.Dialect)}
	}
}

func scanRows(rows *sql.Rows) (*domain.ResultSet, error) {
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
		// Convert byte slices to strings for JSON serialization
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

	return &domain.ResultSet{Columns: cols, Rows: resultRows}, nil
}
