package migrations

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "migrations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEmbeddedMigrationsApply(t *testing.T) {
	db := openTestDB(t)
	migrator := NewMigrator(db)

	require.NoError(t, migrator.MigrateUp())

	for _, table := range []string{"accounts", "ledger_entries", "match_results"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s should exist", table)
	}

	pending, err := migrator.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Running again is a no-op
	require.NoError(t, migrator.MigrateUp())
}

func TestLoadMigrationsOrdersByVersion(t *testing.T) {
	source := fstest.MapFS{
		"m/002_second_step.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
		"m/001_first_step.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"m/README.md":           {Data: []byte("ignored")},
	}
	migrator := NewMigratorFS(openTestDB(t), source, "m")

	migrations, err := migrator.LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "first step", migrations[0].Description)
	assert.Equal(t, "002", migrations[1].Version)
}

func TestInvalidMigrationName(t *testing.T) {
	source := fstest.MapFS{
		"m/noversion.sql": {Data: []byte("SELECT 1;")},
	}
	migrator := NewMigratorFS(openTestDB(t), source, "m")

	_, err := migrator.LoadMigrations()
	assert.Error(t, err)
}

func TestFailedMigrationIsNotRecorded(t *testing.T) {
	db := openTestDB(t)
	source := fstest.MapFS{
		"m/001_broken.sql": {Data: []byte("CREATE TABLE (;")},
	}
	migrator := NewMigratorFS(db, source, "m")

	assert.Error(t, migrator.MigrateUp())

	applied, err := migrator.GetAppliedMigrations()
	require.NoError(t, err)
	assert.Empty(t, applied)
}
