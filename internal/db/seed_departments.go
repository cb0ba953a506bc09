package db

import (
	"context"
	"fmt"
	"strings"
)

// DepartmentSeeder inserts a department by name if it is not there yet.
type DepartmentSeeder interface {
	EnsureByName(ctx context.Context, name string) (int64, error)
}

// EnsureDepartments makes sure every configured department exists. Departments
// have no creation endpoint, so this is the only way they get into the store.
func EnsureDepartments(ctx context.Context, seeder DepartmentSeeder, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		if _, err := seeder.EnsureByName(ctx, name); err != nil {
			return fmt.Errorf("seed department %q: %w", name, err)
		}
	}

	return nil
}
