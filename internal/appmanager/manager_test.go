package appmanager

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"

	"PdmSaas/api/pdm"
	"PdmSaas/internal/config"
	"PdmSaas/internal/jobs"
	"PdmSaas/internal/ledger"
	"PdmSaas/internal/logger"
	"PdmSaas/internal/resource"
)

type recordingService struct {
	name    string
	events  *[]string
	stopErr error
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Start() error {
	*s.events = append(*s.events, "start "+s.name)
	return nil
}

func (s *recordingService) Stop() error {
	*s.events = append(*s.events, "stop "+s.name)
	return s.stopErr
}

func TestLoadServiceSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
services:
  - name: pdm
    start_order: 4
    config:
      port: 9143
  - name: logger
    start_order: 1
    config:
      folder_path: ./logs
  - name: cron
    start_order: 3
    config:
      prune_schedule: "0 4 * * *"
`), 0o600))

	seq, err := LoadServiceSequence(path)
	require.NoError(t, err)
	require.Len(t, seq, 3)
	require.Equal(t, []string{"logger", "cron", "pdm"}, []string{seq[0].Name, seq[1].Name, seq[2].Name})
	require.Equal(t, 9143, seq[2].Config["port"])

	_, err = LoadServiceSequence(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestStartAllStartsResourceManagerLast(t *testing.T) {
	var events []string
	am := NewAppManager()
	am.RegisterService(&recordingService{name: "logger", events: &events})
	am.RegisterService(&recordingService{name: "resourcemanager", events: &events})
	am.RegisterService(&recordingService{name: "pdm", events: &events, stopErr: errors.New("busy")})

	require.NoError(t, am.StartAll())
	require.Equal(t, []string{"start logger", "start pdm", "start resourcemanager"}, events)

	events = nil
	err := am.StopAll()
	require.ErrorContains(t, err, "pdm")
	require.Equal(t, []string{"stop pdm", "stop resourcemanager", "stop logger"}, events)
}

func TestAutoRegisterServices(t *testing.T) {
	t.Cleanup(func() {
		SetLedgerService(nil)
		SetConfiguration(nil)
		logger.SetGlobalLogger(nil)
	})
	SetConfiguration(&config.Configuration{
		LogLevel:           "debug",
		MaxUploadSize:      1 << 20,
		OrganizationHeader: "X-Org",
		UploadLogRetention: 48 * time.Hour,
	})
	SetLedgerService(ledger.NewService(ledger.NewMemoryStore()))

	am := NewAppManager()
	am.AutoRegisterServices([]ServiceConfig{
		{Name: "logger", Config: map[string]interface{}{"folder_path": t.TempDir()}},
		{Name: "resourcemanager"},
		{Name: "cron"},
		{Name: "pdm", Config: map[string]interface{}{"port": 9143}},
		{Name: "unknown"},
	})

	require.IsType(t, &logger.LoggerService{}, am.GetServiceByName("logger"))
	require.Equal(t, am.GetServiceByName("logger"), logger.GlobalLogger)
	require.Equal(t, "debug", logger.GlobalLogger.Config["level"])

	rm, ok := am.GetServiceByName("resourcemanager").(*resource.ResourceManager)
	require.True(t, ok)
	_, ok = rm.GetResource(resource.LedgerStore)
	require.True(t, ok)

	require.IsType(t, &jobs.CronService{}, am.GetServiceByName("cron"))
	require.IsType(t, &pdm.PdmService{}, am.GetServiceByName("pdm"))
	require.Nil(t, am.GetServiceByName("unknown"))
}
