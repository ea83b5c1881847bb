package pdm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"PdmSaas/internal/config"
	"PdmSaas/internal/ledger"
	"PdmSaas/internal/logger"
	"PdmSaas/internal/serviceiface"
)

const defaultPort = 8143

type PdmService struct {
	config map[string]interface{}
	svc    *ledger.Service
	opts   RouterOptions
	port   int
	server *http.Server
}

func NewPdmService(cfg map[string]interface{}, svc *ledger.Service, appCfg *config.Configuration) *PdmService {
	port := defaultPort
	switch v := cfg["port"].(type) {
	case int:
		port = v
	case float64:
		port = int(v)
	}
	opts := RouterOptions{}
	if appCfg != nil {
		opts.OrganizationHeader = appCfg.OrganizationHeader
		opts.MaxUploadSize = appCfg.MaxUploadSize
	}
	return &PdmService{config: cfg, svc: svc, opts: opts, port: port}
}

func (s *PdmService) Name() string {
	return "pdm"
}

func (s *PdmService) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           NewRouter(s.svc, s.opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.L().Infof("PDM Service started on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().WithError(err).Error("PDM Service failed")
		}
	}()
	return nil
}

func (s *PdmService) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

var _ serviceiface.Service = (*PdmService)(nil)
