package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMigrationFS() fstest.MapFS {
	return fstest.MapFS{
		"m/000001_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
		"m/000001_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
		"m/000002_gadgets.up.sql":   {Data: []byte("CREATE TABLE gadgets (id INTEGER PRIMARY KEY);")},
		"m/000002_gadgets.down.sql": {Data: []byte("DROP TABLE gadgets;")},
		"m/README.md":               {Data: []byte("ignored")},
	}
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := LoadMigrations(testMigrationFS(), "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "widgets", migrations[0].Name)
	assert.Equal(t, "000002_gadgets", migrations[1].String())
}

func TestLoadMigrations_Errors(t *testing.T) {
	tests := []struct {
		name string
		fs   fstest.MapFS
	}{
		{"missing down", fstest.MapFS{"m/000001_a.up.sql": {Data: []byte("SELECT 1;")}}},
		{"bad version", fstest.MapFS{
			"m/abc_a.up.sql":   {Data: []byte("SELECT 1;")},
			"m/abc_a.down.sql": {Data: []byte("SELECT 1;")},
		}},
		{"duplicate version", fstest.MapFS{
			"m/000001_a.up.sql":   {Data: []byte("SELECT 1;")},
			"m/000001_a.down.sql": {Data: []byte("SELECT 1;")},
			"m/000001_b.up.sql":   {Data: []byte("SELECT 1;")},
			"m/000001_b.down.sql": {Data: []byte("SELECT 1;")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMigrations(tt.fs, "m")
			assert.Error(t, err)
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := EmbeddedMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Contains(t, migrations[0].UpScript, "idx_interactions_unique")
	assert.Contains(t, migrations[0].DownScript, "DROP TABLE IF EXISTS interactions")
}

func TestMigrator_UpDown(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	migrations, err := LoadMigrations(testMigrationFS(), "m")
	require.NoError(t, err)
	migrator := NewMigrator(db, migrations)

	pending, err := migrator.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	applied, err := migrator.Up(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 2)
	assert.True(t, db.Migrator().HasTable("widgets"))
	assert.True(t, db.Migrator().HasTable("gadgets"))

	again, err := migrator.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	latest, err := migrator.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, latest)

	require.NoError(t, migrator.Down(ctx, 2))
	assert.False(t, db.Migrator().HasTable("gadgets"))
	versions, err := migrator.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, versions)

	assert.Error(t, migrator.Down(ctx, 2), "already rolled back")
	assert.Error(t, migrator.Down(ctx, 99), "unknown version")
}

func TestMigrator_RejectsUnknownAppliedVersions(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	migrations, err := LoadMigrations(testMigrationFS(), "m")
	require.NoError(t, err)
	_, err = NewMigrator(db, migrations).Up(ctx)
	require.NoError(t, err)

	_, err = NewMigrator(db, migrations[:1]).Pending(ctx)
	assert.ErrorContains(t, err, "000002")
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))
	assert.Error(t, validateAppliedVersions([]int{1, 7}, registered))
}
