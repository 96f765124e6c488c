package migrations_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/storage/sqlite/migrations"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestMigrator(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := migrations.NewMigrator(db, log.Noop)
	require.NoError(err)

	version, err := m.Up(ctx)
	require.NoError(err)
	assert.Equal(t, uint(1), version)
	assert.True(t, tableExists(t, db, "runs"))
	assert.True(t, tableExists(t, db, "facts"))

	// Already migrated.
	version, err = m.Up(ctx)
	require.NoError(err)
	assert.Equal(t, uint(1), version)

	require.NoError(m.Down(ctx))
	assert.False(t, tableExists(t, db, "runs"))
	assert.False(t, tableExists(t, db, "facts"))
}

func TestNewMigratorWithoutDB(t *testing.T) {
	_, err := migrations.NewMigrator(nil, nil)
	assert.Error(t, err)
}
