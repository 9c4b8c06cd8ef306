package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/avoronov/ticket-directory/internal/model"
	"github.com/avoronov/ticket-directory/internal/utils"
)

// UserRepo encapsulates all queries against the `users` table.  It is
// the credential store: registration hashes the password with bcrypt
// (random salt generated per hash and embedded in the digest) and
// verification compares against the stored digest.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a new user and returns its id.  Names are
// normalized before the uniqueness check so "Alice" and "alice "
// are the same account.
func (r *UserRepo) Create(ctx context.Context, name, password, role string, cost int) (uint64, error) {
	name = strings.TrimSpace(name)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, password_hash, role) VALUES (?,?,?)",
		name, hash, role)
	if err != nil {
		// 1062 is the MySQL duplicate-key error.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrNameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByName fetches a user by normalized login name.  Returns
// ErrUserNotFound when the name is unknown so the handler can keep
// "unknown user" and "wrong password" as distinct outcomes.
func (r *UserRepo) GetByName(ctx context.Context, name string) (model.User, error) {
	name = strings.TrimSpace(name)
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, password_hash, role, created_at FROM users WHERE name = ? LIMIT 1",
		name).Scan(&u.ID, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}
