package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, StorePostgres, cfg.LedgerStore)
	require.Equal(t, ReplaceAtomic, cfg.ReplaceMode)
	require.Equal(t, "X-Organization-ID", cfg.OrganizationHeader)
	require.Equal(t, int64(32<<20), cfg.MaxUploadSize)
	require.Equal(t, 90*24*time.Hour, cfg.UploadLogRetention)
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LEDGER_STORE=memory\nDB_NAME=pdm_test\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("LEDGER_STORE")
		os.Unsetenv("DB_NAME")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, StoreMemory, cfg.LedgerStore)
	require.Contains(t, cfg.Database.ConnectionString(), "dbname=pdm_test")
}

func TestValidate_RejectsUnknownModes(t *testing.T) {
	cfg := Configuration{LedgerStore: "mongo", ReplaceMode: ReplaceAtomic, MaxUploadSize: 1, OrganizationHeader: "X"}
	require.Error(t, cfg.Validate())

	cfg = Configuration{LedgerStore: StoreMemory, ReplaceMode: "lazy", MaxUploadSize: 1, OrganizationHeader: "X"}
	require.Error(t, cfg.Validate())

	cfg = Configuration{LedgerStore: StoreMemory, ReplaceMode: ReplaceTwoPhase, MaxUploadSize: 1, OrganizationHeader: "X"}
	require.NoError(t, cfg.Validate())
}

func TestValidate_ArchiveNeedsBucket(t *testing.T) {
	cfg := Configuration{LedgerStore: StoreMemory, ReplaceMode: ReplaceAtomic, MaxUploadSize: 1, OrganizationHeader: "X"}
	cfg.Archive.Enabled = true
	require.ErrorContains(t, cfg.Validate(), "ARCHIVE_S3_BUCKET")

	cfg.Archive.Bucket = "pdm-uploads"
	require.NoError(t, cfg.Validate())
}
