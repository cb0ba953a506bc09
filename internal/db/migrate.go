package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/geocoder89/mural/internal/db/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, conn *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, conn, dir, opts...)
}

// MigratePostgres applies the embedded Postgres migrations through a
// database/sql view of the pool.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	conn := stdlib.OpenDBFromPool(pool)
	defer conn.Close()

	return migrate(ctx, conn, "postgres", migrations.Postgres, "postgres")
}

func MigrateSQLite(ctx context.Context, conn *sql.DB) error {
	return migrate(ctx, conn, "sqlite3", migrations.SQLite, "sqlite")
}

func migrate(ctx context.Context, conn *sql.DB, dialect string, fsys fs.FS, dir string) error {
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	goose.SetLogger(goose.NopLogger())

	if err := gooseUp(ctx, conn, dir); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}
