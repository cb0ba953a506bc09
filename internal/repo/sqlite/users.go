package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/geocoder89/mural/internal/domain/user"
	"github.com/geocoder89/mural/internal/observability"
)

type UsersRepo struct {
	db DBTX
	observer
}

func NewUsersRepo(db DBTX, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{db: db, observer: observer{prom: prom}}
}

func (r *UsersRepo) Create(ctx context.Context, username, passwordHash string) (user.User, error) {
	u := user.User{Username: username, PasswordHash: passwordHash}

	err := r.observe("users.create", func() error {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
			username, passwordHash,
		)
		if err != nil {
			return err
		}

		if u.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		// read back through the table so the TIMESTAMP column type drives the scan
		return r.db.QueryRowContext(ctx, `SELECT created_at FROM users WHERE id = ?`, u.ID).Scan(&u.CreatedAt)
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrDuplicateUsername
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_username", func() error {
		return r.db.QueryRowContext(ctx,
			`SELECT id, username, password_hash, created_at
			FROM users
			WHERE username = ?`,
			username,
		).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("select user: %w", err)
	}

	return u, nil
}
