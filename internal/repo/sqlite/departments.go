package sqlite

import (
	"context"
	"fmt"

	"github.com/geocoder89/mural/internal/domain/department"
	"github.com/geocoder89/mural/internal/observability"
)

type DepartmentsRepo struct {
	db DBTX
	observer
}

func NewDepartmentsRepo(db DBTX, prom *observability.Prom) *DepartmentsRepo {
	return &DepartmentsRepo{db: db, observer: observer{prom: prom}}
}

func (r *DepartmentsRepo) List(ctx context.Context) ([]department.Department, error) {
	out := make([]department.Department, 0)

	err := r.observe("departments.list", func() error {
		rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM departments ORDER BY name ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var d department.Department
			if err := rows.Scan(&d.ID, &d.Name); err != nil {
				return err
			}
			out = append(out, d)
		}
		return rows.Err()
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
		if _, err := r.db.ExecContext(ctx, `INSERT INTO departments (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return err
		}
		return r.db.QueryRowContext(ctx, `SELECT id FROM departments WHERE name = ?`, name).Scan(&id)
	})

	if err != nil {
		return 0, fmt.Errorf("ensure department: %w", err)
	}

	return id, nil
}
