package repository

import (
	"context"
	"database/sql"

	"chartly/internal/domain"
)

// UserRepo implements domain.UserRepository over the metadata store.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByName(ctx context.Context, name string) (*domain.User, error) {
	var u domain.User
	var active, superuser int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, active, superuser FROM users WHERE name = ?`, name).
		Scan(&u.ID, &u.Name, &active, &superuser)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound("no user named %q", name)
		}
		return nil, err
	}
	u.Active = active != 0
	u.Superuser = superuser != 0

	rows, err := r.db.QueryContext(ctx,
		`SELECT group_name FROM user_groups WHERE user_id = ? ORDER BY group_name`, u.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		u.Groups = append(u.Groups, g)
	}
	return &u, rows.Err()
}

// Create inserts a user with group memberships. Used by seeding and tests.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, active, superuser) VALUES (?, ?, ?)`,
		u.Name, boolToInt(u.Active), boolToInt(u.Superuser))
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	for _, g := range u.Groups {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO user_groups (user_id, group_name) VALUES (?, ?)`, id, g); err != nil {
			return nil, mapDBError(err)
		}
	}
	return r.GetByName(ctx, u.Name)
}
