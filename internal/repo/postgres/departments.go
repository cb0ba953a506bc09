package postgres

import (
	"context"
	"fmt"

	"github.com/geocoder89/mural/internal/domain/department"
	"github.com/geocoder89/mural/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DepartmentsRepo struct {
	pool *pgxpool.Pool
	observer
}

func NewDepartmentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *DepartmentsRepo {
	return &DepartmentsRepo{pool: pool, observer: observer{prom: prom}}
}

func (r *DepartmentsRepo) List(ctx context.Context) ([]department.Department, error) {
	var out []department.Department

	err := r.observe("departments.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT id, name FROM departments ORDER BY name ASC`)
		if err != nil {
			return err
		}

		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (department.Department, error) {
			var d department.Department
			err := row.Scan(&d.ID, &d.Name)
			return d, err
		})
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}

	return out, nil
}

// EnsureByName inserts the department if missing and returns its id either way.
func (r *DepartmentsRepo) EnsureByName(ctx context.Context, name string) (int64, error) {
	var id int64

	err := r.observe("departments.ensure", func() error {
		return r.pool.QueryRow(ctx,
			`WITH ins AS (
				INSERT INTO departments (name) VALUES ($1)
				ON CONFLICT (name) DO NOTHING
				RETURNING id
			)
			SELECT id FROM ins
			UNION ALL
			SELECT id FROM departments WHERE name = $1
			LIMIT 1`,
			name,
		).Scan(&id)
	})

	if err != nil {
		return 0, fmt.Errorf("ensure department: %w", err)
	}

	return id, nil
}
