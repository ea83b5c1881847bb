package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsAreEmbeddedInPairs(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.Equal(t, ups, downs)
}

func TestLedgerMigrationDefinesScopeKey(t *testing.T) {
	data, err := fs.ReadFile(migrationFS, "migrations/000001_pdm_ejecucion.up.sql")
	require.NoError(t, err)
	sql := string(data)
	require.Contains(t, sql, "COALESCE(fiscal_year, -1)")
	require.Contains(t, sql, "pdm_ejecucion_uploads")
}
