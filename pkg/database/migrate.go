package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrationsDir returns configured when set, otherwise the first "migrations"
// directory found in the working directory or two levels above it.
func MigrationsDir(configured string) string {
	if configured != "" {
		return configured
	}

	workDir, err := os.Getwd()
	if err != nil {
		return "./migrations"
	}
	for _, candidate := range []string{
		filepath.Join(workDir, "migrations"),
		filepath.Join(workDir, "..", "..", "migrations"),
	} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return "./migrations"
}

// RunMigrations brings the schema up to the latest version in migrationsPath
// and logs the resulting version.
func RunMigrations(logger *slog.Logger, databaseURL, migrationsPath string) error {
	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, err = os.Stat(absPath); err != nil {
		return fmt.Errorf("migrations directory unavailable: %w", err)
	}

	m, err := migrate.New("file://"+absPath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("Schema already up to date")
	case err != nil:
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}

	logger.Info("Migrations applied", "path", absPath, "version", version)
	return nil
}
