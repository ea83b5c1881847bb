package appmanager

import (
	"os"
	"sort"
	"sync"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"PdmSaas/api/pdm"
	"PdmSaas/internal/config"
	"PdmSaas/internal/jobs"
	"PdmSaas/internal/ledger"
	"PdmSaas/internal/logger"
	"PdmSaas/internal/resource"
	"PdmSaas/internal/serviceiface"
)

var (
	appConfig     *config.Configuration
	ledgerService *ledger.Service
)

// SetConfiguration must be called before AutoRegisterServices.
func SetConfiguration(cfg *config.Configuration) {
	appConfig = cfg
}

// SetLedgerService must be called before AutoRegisterServices.
func SetLedgerService(svc *ledger.Service) {
	ledgerService = svc
}

func GetLedgerService() *ledger.Service {
	return ledgerService
}

var serviceConstructors = map[string]func(map[string]interface{}) serviceiface.Service{
	"logger": func(cfg map[string]interface{}) serviceiface.Service {
		if cfg == nil {
			cfg = map[string]interface{}{}
		}
		if _, ok := cfg["level"]; !ok && appConfig != nil {
			cfg["level"] = appConfig.LogLevel
		}
		return logger.NewLoggerService(cfg)
	},
	"resourcemanager": func(cfg map[string]interface{}) serviceiface.Service {
		rm := resource.NewResourceManagerService(cfg)
		if ledgerService != nil {
			rm.AddResource(resource.LedgerStore, ledgerService.Store())
		}
		return rm
	},
	"cron": func(cfg map[string]interface{}) serviceiface.Service {
		retention := config.DefaultUploadLogRetention
		if appConfig != nil {
			retention = appConfig.UploadLogRetention
		}
		var pruner jobs.UploadPruner
		if ledgerService != nil {
			pruner = ledgerService
		}
		return jobs.NewCronService(cfg, pruner, retention)
	},
	"pdm": func(cfg map[string]interface{}) serviceiface.Service {
		return pdm.NewPdmService(cfg, ledgerService, appConfig)
	},
}

// ------------------- MANAGER -------------------

type AppManager struct {
	services []serviceiface.Service
	mu       sync.Mutex
}

func NewAppManager() *AppManager {
	return &AppManager{
		services: make([]serviceiface.Service, 0),
	}
}

func (am *AppManager) RegisterService(s serviceiface.Service) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.services = append(am.services, s)
}

func (am *AppManager) StartAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()

	// First pass: start all except Resourcemanager
	for _, service := range am.services {
		if service.Name() == "resourcemanager" {
			continue
		}
		logger.L().WithField("service", service.Name()).Info("starting service")
		if err := service.Start(); err != nil {
			return errors.Wrapf(err, "failed to start service %s", service.Name())
		}
	}

	// The heartbeat goes last so it only probes what is already running.
	for _, service := range am.services {
		if service.Name() == "resourcemanager" {
			logger.L().WithField("service", service.Name()).Info("starting service")
			if err := service.Start(); err != nil {
				return errors.Wrapf(err, "failed to start service %s", service.Name())
			}
		}
	}
	return nil
}

// StopAll stops services in reverse registration order and reports the first
// failure after trying all of them.
func (am *AppManager) StopAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	var first error
	for i := len(am.services) - 1; i >= 0; i-- {
		svc := am.services[i]
		if err := svc.Stop(); err != nil && first == nil {
			first = errors.Wrapf(err, "failed to stop service %s", svc.Name())
		}
	}
	return first
}

// ------------------- YAML CONFIG -------------------

type ServiceSequencer struct {
	Services []ServiceConfig `yaml:"services"`
}

type ServiceConfig struct {
	Name       string                 `yaml:"name"`
	StartOrder int                    `yaml:"start_order"`
	Config     map[string]interface{} `yaml:"config"`
}

func LoadServiceSequence(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read service sequence")
	}
	var seq ServiceSequencer
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, errors.Wrap(err, "parse service sequence")
	}

	// sort by start_order
	sort.SliceStable(seq.Services, func(i, j int) bool {
		return seq.Services[i].StartOrder < seq.Services[j].StartOrder
	})

	return seq.Services, nil
}

// AutoRegisterServices builds every known service in configs. Unknown names
// are logged and skipped.
func (am *AppManager) AutoRegisterServices(configs []ServiceConfig) {
	for _, svc := range configs {
		constructor, ok := serviceConstructors[svc.Name]
		if !ok {
			logger.L().WithField("service", svc.Name).Warn("unknown service in sequence, skipping")
			continue
		}
		service := constructor(svc.Config)
		am.RegisterService(service)
		if l, ok := service.(*logger.LoggerService); ok {
			logger.SetGlobalLogger(l)
		}
	}
}

func (am *AppManager) GetServiceByName(name string) serviceiface.Service {
	am.mu.Lock()
	defer am.mu.Unlock()
	for _, svc := range am.services {
		if svc.Name() == name {
			return svc
		}
	}
	return nil
}
