package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestInitialSchemaEnforcesSingleActiveEnrollment(t *testing.T) {
	data, err := fs.ReadFile(migrationFiles, "migrations/000001_init_schema.up.sql")
	require.NoError(t, err)

	schema := string(data)
	assert.Contains(t, schema, "CREATE UNIQUE INDEX IF NOT EXISTS enrollments_one_active_per_student")
	assert.Contains(t, schema, "WHERE state = 'active'")
	assert.Contains(t, schema, "CHECK (capacity > 0)")
}
