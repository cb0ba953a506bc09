package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/geocoder89/mural/internal/config"
	"github.com/geocoder89/mural/internal/db"
	"github.com/geocoder89/mural/internal/http/handlers"
	"github.com/geocoder89/mural/internal/observability"
	"github.com/geocoder89/mural/internal/repo/postgres"
	"github.com/geocoder89/mural/internal/repo/sqlite"
)

type departmentStore interface {
	handlers.DepartmentLister
	db.DepartmentSeeder
}

type stores struct {
	users         handlers.UserStore
	departments   departmentStore
	announcements handlers.AnnouncementStore

	ping  handlers.PingFunc
	close func()
}

// openStores connects to the configured backend, applies migrations and
// builds the repositories on top of it.
func openStores(ctx context.Context, cfg config.Config, prom *observability.Prom) (*stores, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, err
		}

		if err := db.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}

		return &stores{
			users:         postgres.NewUsersRepo(pool, prom),
			departments:   postgres.NewDepartmentsRepo(pool, prom),
			announcements: postgres.NewAnnouncementsRepo(pool, prom),
			ping:          pool.Ping,
			close:         pool.Close,
		}, nil

	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}

		conn, err := db.OpenSQLite(ctx, db.SQLiteFileDSN(cfg.SQLitePath))
		if err != nil {
			return nil, err
		}

		if err := db.MigrateSQLite(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, err
		}

		return &stores{
			users:         sqlite.NewUsersRepo(conn, prom),
			departments:   sqlite.NewDepartmentsRepo(conn, prom),
			announcements: sqlite.NewAnnouncementsRepo(conn, prom),
			ping:          conn.PingContext,
			close:         func() { _ = conn.Close() },
		}, nil

	default:
		return nil, config.ErrUnknownDriver
	}
}
