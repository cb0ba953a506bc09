package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/mural/internal/domain/announcement"
	"github.com/geocoder89/mural/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AnnouncementsRepo struct {
	pool *pgxpool.Pool
	observer
}

// constructor function

func NewAnnouncementsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AnnouncementsRepo {
	return &AnnouncementsRepo{
		pool:     pool,
		observer: observer{prom: prom},
	}
}

func (r *AnnouncementsRepo) List(ctx context.Context, filter announcement.ListFilter) ([]announcement.Entry, error) {
	query := `SELECT a.id,
		a.message,
		a.created_at,
		u.username,
		d.name
	FROM announcements a
	JOIN users u ON u.id = a.author_id
	LEFT JOIN departments d ON d.id = a.department_id
	`
	// LEFT JOIN: department_id is never checked on create, and an entry whose
	// department is missing is still listed with a nil Department.

	var args []interface{}

	if filter.DepartmentID != nil {
		query += " WHERE a.department_id = $1"
		args = append(args, *filter.DepartmentID)
	}

	// id breaks ties between rows created in the same instant
	query += " ORDER BY a.created_at DESC, a.id DESC"

	output := make([]announcement.Entry, 0)

	err := r.observe("announcements.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var e announcement.Entry

			err = rows.Scan(&e.ID, &e.Message, &e.CreatedAt, &e.Username, &e.Department)

			if err != nil {
				return err
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
		return r.pool.QueryRow(ctx,
			`INSERT INTO announcements (department_id, author_id, message)
			VALUES ($1, $2, $3)
			RETURNING id`,
			departmentID, authorID, message,
		).Scan(&id)
	})

	if err != nil {
		return 0, fmt.Errorf("%w: %w", announcement.ErrWrite, err)
	}

	return id, nil
}

func (r *AnnouncementsRepo) Update(ctx context.Context, id int64, message string) error {
	var affected int64

	err := r.observe("announcements.update", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE announcements SET message = $2 WHERE id = $1`,
			id, message,
		)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return fmt.Errorf("%w: %w", announcement.ErrWrite, err)
	}

	// if no rows were updated the id does not exist
	if affected == 0 {
		return announcement.ErrNotFound
	}

	return nil
}

func (r *AnnouncementsRepo) Delete(ctx context.Context, id int64) error {
	var affected int64

	err := r.observe("announcements.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return fmt.Errorf("%w: %w", announcement.ErrWrite, err)
	}

	// if no rows were deleted as a result return a not found error
	if affected == 0 {
		return announcement.ErrNotFound
	}

	return nil
}

func (r *AnnouncementsRepo) AuthorOf(ctx context.Context, id int64) (int64, error) {
	var authorID int64

	err := r.observe("announcements.author_of", func() error {
		return r.pool.QueryRow(ctx, `SELECT author_id FROM announcements WHERE id = $1`, id).Scan(&authorID)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, announcement.ErrNotFound
		}
		return 0, fmt.Errorf("select announcement author: %w", err)
	}

	return authorID, nil
}
