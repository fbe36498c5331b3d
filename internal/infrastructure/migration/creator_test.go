package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add bill remarks", "add_bill_remarks"},
		{"Add-Bill-Remarks", "add_bill_remarks"},
		{"add__bill__remarks", "add_bill_remarks"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func writeMigrationFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("-- test"), 0644))
	}
}

func TestCreateMigration_SequentialVersion(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "create fee tables", "Fee schema")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.True(t, strings.HasSuffix(first.UpPath, "000001_create_fee_tables.up.sql"))

	second, err := CreateMigration(dir, "add bill remarks", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "Fee schema")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(nested, "init", "")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	writeMigrationFiles(t, dir,
		"000010_add_index.up.sql",
		"000010_add_index.down.sql",
		"000002_add_students.up.sql",
		"000001_create_fee_tables.up.sql",
		"000001_create_fee_tables.down.sql",
		"README.md",
		"notes.up.sql",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "000003_dir.up.sql"), 0755))

	migrations, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_fee_tables", "000002_add_students", "000010_add_index"}, migrations)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	migrations, err := ListMigrations("/nonexistent/path/to/migrations")
	require.NoError(t, err)
	assert.Empty(t, migrations)
}

func TestFindMigrationsPath(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, dir, FindMigrationsPath("", "/nonexistent", dir))

	// the module's own migrations directory is found by walking up
	found := FindMigrationsPath()
	require.NotEmpty(t, found)
	assert.Equal(t, "migrations", filepath.Base(found))
}
