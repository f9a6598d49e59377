package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func migrationFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys["sql/migrations/"+name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

func TestLoadMigrations_Embedded(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrations(embeddedMigrations)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	require.Equal(t, "init", migrations[0].Name)
	require.Equal(t, "outbox", migrations[1].Name)
	require.Contains(t, migrations[0].Up, "CREATE TABLE IF NOT EXISTS orders")
}

func TestLoadMigrations_SortedByVersion(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrations(migrationFS(map[string]string{
		"0002_more.up.sql":   "CREATE TABLE b (id INT);",
		"0002_more.down.sql": "DROP TABLE b;",
		"0001_init.up.sql":   "CREATE TABLE a (id INT);",
		"0001_init.down.sql": "DROP TABLE a;",
	}))
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	require.Equal(t, int64(1), migrations[0].Version)
	require.Equal(t, int64(2), migrations[1].Version)
	require.Equal(t, "DROP TABLE b;", migrations[1].script(DirectionDown))
}

func TestLoadMigrations_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]map[string]string{
		"missing down": {
			"0001_init.up.sql": "CREATE TABLE a (id INT);",
		},
		"invalid name": {
			"not_a_migration.sql": "SELECT 1;",
		},
		"empty body": {
			"0001_init.up.sql":   "   \n",
			"0001_init.down.sql": "DROP TABLE a;",
		},
		"name mismatch": {
			"0001_init.up.sql":    "CREATE TABLE a (id INT);",
			"0001_other.down.sql": "DROP TABLE a;",
		},
		"zero version": {
			"0000_init.up.sql":   "CREATE TABLE a (id INT);",
			"0000_init.down.sql": "DROP TABLE a;",
		},
	}

	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadMigrations(migrationFS(files))
			require.Error(t, err)
		})
	}

	_, err := loadMigrations(fstest.MapFS{})
	require.Error(t, err)
}

func TestPlanMigrations(t *testing.T) {
	t.Parallel()

	migrations := []migration{
		{Version: 1, Name: "init"},
		{Version: 2, Name: "outbox"},
		{Version: 3, Name: "extra"},
	}

	up, err := planMigrations(migrations, map[int64]bool{1: true}, DirectionUp, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3}, versionsOf(up))

	upOne, err := planMigrations(migrations, map[int64]bool{1: true}, DirectionUp, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{2}, versionsOf(upOne))

	down, err := planMigrations(migrations, map[int64]bool{1: true, 2: true, 3: true}, DirectionDown, 2)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 2}, versionsOf(down))

	_, err = planMigrations(migrations, map[int64]bool{9: true}, DirectionDown, 1)
	require.Error(t, err)
}

func TestParseDirection(t *testing.T) {
	t.Parallel()

	d, err := ParseDirection(" UP ")
	require.NoError(t, err)
	require.Equal(t, DirectionUp, d)

	_, err = ParseDirection("sideways")
	require.Error(t, err)
}

func versionsOf(migrations []migration) []int64 {
	versions := make([]int64, 0, len(migrations))
	for _, m := range migrations {
		versions = append(versions, m.Version)
	}
	return versions
}
