package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/geocoder89/mural/internal/domain/announcement"
	"github.com/geocoder89/mural/internal/observability"
)

type AnnouncementsRepo struct {
	db DBTX
	observer
}

func NewAnnouncementsRepo(db DBTX, prom *observability.Prom) *AnnouncementsRepo {
	return &AnnouncementsRepo{db: db, observer: observer{prom: prom}}
}

func (r *AnnouncementsRepo) List(ctx context.Context, filter announcement.ListFilter) ([]announcement.Entry, error) {
	query := `SELECT a.id, a.message, a.created_at, u.username, d.name
	FROM announcements a
	JOIN users u ON u.id = a.author_id
	LEFT JOIN departments d ON d.id = a.department_id
	`
	// LEFT JOIN: department_id is never checked on create, and an entry whose
	// department is missing is still listed with a nil Department.

	var args []any

	if filter.DepartmentID != nil {
		query += " WHERE a.department_id = ?"
		args = append(args, *filter.DepartmentID)
	}

	// id breaks ties between rows created in the same millisecond
	query += " ORDER BY a.created_at DESC, a.id DESC"

	output := make([]announcement.Entry, 0)

	err := r.observe("announcements.list", func() error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				e    announcement.Entry
				dept sql.NullString
			)

			if err := rows.Scan(&e.ID, &e.Message, &e.CreatedAt, &e.Username, &dept); err != nil {
				return err
			}

			if dept.Valid {
				name := dept.String
				e.Department = &name
			}

			output = append(output, e)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}

	return output, nil
}

func (r *AnnouncementsRepo) Create(ctx context.Context, departmentID, authorID int64, message string) (int64, error) {
	var id int64

	err := r.observe("announcements.create", func() error {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO announcements (department_id, author_id, message) VALUES (?, ?, ?)`,
			departmentID, authorID, message,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})

	if err != nil {
		return 0, fmt.Errorf("%w: %w", announcement.ErrWrite, err)
	}

	return id, nil
}

func (r *AnnouncementsRepo) Update(ctx context.Context, id int64, message string) error {
	return r.execOne(ctx, "announcements.update",
		`UPDATE announcements SET message = ? WHERE id = ?`, message, id)
}

func (r *AnnouncementsRepo) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, "announcements.delete",
		`DELETE FROM announcements WHERE id = ?`, id)
}

// execOne runs a statement that must touch exactly the row it names.
func (r *AnnouncementsRepo) execOne(ctx context.Context, op, query string, args ...any) error {
	var affected int64

	err := r.observe(op, func() error {
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})

	if err != nil {
		return fmt.Errorf("%w: %w", announcement.ErrWrite, err)
	}

	if affected == 0 {
		return announcement.ErrNotFound
	}

	return nil
}

func (r *AnnouncementsRepo) AuthorOf(ctx context.Context, id int64) (int64, error) {
	var authorID int64

	err := r.observe("announcements.author_of", func() error {
		return r.db.QueryRowContext(ctx, `SELECT author_id FROM announcements WHERE id = ?`, id).Scan(&authorID)
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, announcement.ErrNotFound
		}
		return 0, fmt.Errorf("select announcement author: %w", err)
	}

	return authorID, nil
}
