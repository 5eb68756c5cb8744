package repository

import (
	"context"
	"database/sql"

	"chartly/internal/domain"
)

// ConnectionRepo implements domain.ConnectionRepository over the metadata store.
type ConnectionRepo struct {
	db *sql.DB
}

// NewConnectionRepo creates a ConnectionRepo.
func NewConnectionRepo(db *sql.DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

func (r *ConnectionRepo) GetByID(ctx context.Context, id int64) (*domain.DatabaseConnection, error) {
	var c domain.DatabaseConnection
	var dialect string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, dialect, host, port, db_name, username, password_encrypted
		 FROM database_connections WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &dialect, &c.Host, &c.Port, &c.DBName, &c.Username, &c.PasswordEncrypted)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound("no database connection matches id %d", id)
		}
		return nil, err
	}
	c.Dialect = domain.Dialect(dialect)

	rows, err := r.db.QueryContext(ctx,
		`SELECT tag FROM connection_tags WHERE connection_id = ? ORDER BY tag`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		c.Tags = append(c.Tags, tag)
	}
	return &c, rows.Err()
}

// Create inserts a database connection with its tags. Used by seeding and tests.
func (r *ConnectionRepo) Create(ctx context.Context, c *domain.DatabaseConnection) (*domain.DatabaseConnection, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO database_connections (name, dialect, host, port, db_name, username, password_encrypted)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Name, string(c.Dialect), c.Host, c.Port, c.DBName, c.Username, c.PasswordEncrypted)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	for _, tag := range c.Tags {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO connection_tags (connection_id, tag) VALUES (?, ?)`, id, tag); err != nil {
			return nil, mapDBError(err)
		}
	}
	return r.GetByID(ctx, id)
}
