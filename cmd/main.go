package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"PdmSaas/internal/appmanager"
	"PdmSaas/internal/archive"
	"PdmSaas/internal/config"
	"PdmSaas/internal/db"
	"PdmSaas/internal/ledger"
	"PdmSaas/internal/logger"
)

// InitPool opens the pgx pool used by the ledger store.
func InitPool(ctx context.Context, opts config.DatabaseOptions) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(opts.ConnectionString())
	if err != nil {
		return nil, errors.Wrap(err, "parse pool config")
	}
	if opts.MaxConns > 0 {
		pcfg.MaxConns = opts.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping pool")
	}
	return pool, nil
}

func buildStore(ctx context.Context, cfg *config.Configuration) (ledger.Store, func(), error) {
	if cfg.LedgerStore == config.StoreMemory {
		logger.L().Warn("using in-memory ledger store, data is lost on restart")
		return ledger.NewMemoryStore(), func() {}, nil
	}

	if cfg.RunMigrations {
		sqlDB, err := db.Open(cfg.Database.ConnectionString())
		if err != nil {
			return nil, nil, err
		}
		err = db.Migrate(sqlDB)
		sqlDB.Close()
		if err != nil {
			return nil, nil, err
		}
		logger.L().Info("database migrations applied")
	}

	pool, err := InitPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return ledger.NewPgStore(pool, cfg.ReplaceMode), pool.Close, nil
}

func main() {
	// Load .env for local dev
	cfg, err := config.Load(".env", ".env.local")
	if err != nil {
		logger.L().WithError(err).Fatal("failed to load configuration")
	}

	ctx := context.Background()
	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		logger.L().WithError(err).Fatal("failed to open ledger store")
	}
	defer closeStore()

	svc := ledger.NewService(store)
	if cfg.Archive.Enabled {
		arch, err := archive.NewS3Archiver(ctx, cfg.Archive)
		if err != nil {
			logger.L().WithError(err).Fatal("failed to configure upload archive")
		}
		svc.WithArchiver(arch, cfg.Archive.Prefix)
		logger.L().WithField("bucket", cfg.Archive.Bucket).Info("archiving uploads to S3")
	}

	appmanager.SetConfiguration(cfg)
	appmanager.SetLedgerService(svc)

	manager := appmanager.NewAppManager()

	// Load service configs from YAML
	servicesCfg, err := appmanager.LoadServiceSequence(cfg.ServicesFile)
	if err != nil {
		logger.L().WithError(err).Fatal("failed to load service sequence")
	}

	// Automatically register all services
	manager.AutoRegisterServices(servicesCfg)

	// Start all services
	if err := manager.StartAll(); err != nil {
		logger.L().WithError(err).Fatal("failed to start")
	}
	logger.L().WithFields(map[string]interface{}{
		"store":        cfg.LedgerStore,
		"replace_mode": cfg.ReplaceMode,
	}).Info("PDM ingestion engine running")

	// Graceful shutdown handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	// Stop all services
	if err := manager.StopAll(); err != nil {
		logger.L().WithError(err).Error("failed to stop")
	}
}
