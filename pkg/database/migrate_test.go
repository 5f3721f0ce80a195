package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsDir(t *testing.T) {
	require.Equal(t, "/srv/sql", MigrationsDir("/srv/sql"))

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "migrations"), 0o755))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	got, err := filepath.EvalSymlinks(MigrationsDir(""))
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(filepath.Join(dir, "migrations"))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestRunMigrationsMissingDir(t *testing.T) {
	err := RunMigrations(nil, "postgres://localhost/none", filepath.Join(t.TempDir(), "absent"))
	require.ErrorContains(t, err, "migrations directory unavailable")
}
