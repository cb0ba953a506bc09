// Package postgres holds the pgx-backed stores for users, departments and
// announcements.
package postgres

import (
	"errors"

	"github.com/geocoder89/mural/internal/observability"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type observer struct {
	prom *observability.Prom
}

func (o observer) observe(op string, fn func() error) error {
	return o.prom.ObserveDB(op, fn)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}
