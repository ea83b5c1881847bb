package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/robfig/cron/v3"

	"PdmSaas/internal/config"
	"PdmSaas/internal/logger"
	"PdmSaas/internal/serviceiface"
)

// UploadPruner removes upload log entries older than a retention period.
type UploadPruner interface {
	PruneUploads(ctx context.Context, retention time.Duration) (int64, error)
}

// PruneConfig holds the schedule of the upload log retention job.
type PruneConfig struct {
	Schedule  string
	TimeZone  string
	Retention time.Duration
}

func NewDefaultPruneConfig(retention time.Duration) *PruneConfig {
	return &PruneConfig{
		Schedule:  config.DefaultPruneSchedule,
		TimeZone:  config.DefaultTimeZone,
		Retention: retention,
	}
}

type CronService struct {
	config map[string]interface{}
	pruner UploadPruner
	prune  *PruneConfig
	cron   *cron.Cron
}

func NewCronService(cfg map[string]interface{}, pruner UploadPruner, retention time.Duration) *CronService {
	pc := NewDefaultPruneConfig(retention)
	if cfg != nil {
		if schedule, ok := cfg["prune_schedule"].(string); ok && schedule != "" {
			pc.Schedule = schedule
		}
		if tz, ok := cfg["timezone"].(string); ok && tz != "" {
			pc.TimeZone = tz
		}
		if r, ok := cfg["retention"].(string); ok && r != "" {
			if d, err := time.ParseDuration(r); err == nil && d > 0 {
				pc.Retention = d
			}
		}
	}
	return &CronService{
		config: cfg,
		pruner: pruner,
		prune:  pc,
	}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	c, err := RunPruneScheduler(s.prune, s.pruner)
	if err != nil {
		return err
	}
	s.cron = c
	logger.Audit(fmt.Sprintf("Cron service started, upload log pruning scheduled at %q", s.prune.Schedule))
	return nil
}

func (s *CronService) Stop() error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	logger.L().Info("cron service stopped")
	return nil
}

// RunPruneScheduler starts a cron that prunes the upload log on cfg.Schedule.
func RunPruneScheduler(cfg *PruneConfig, pruner UploadPruner) (*cron.Cron, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultPruneSchedule
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = config.DefaultTimeZone
	}
	if cfg.Retention <= 0 {
		return nil, errors.New("upload log retention must be positive")
	}
	if pruner == nil {
		return nil, errors.New("no upload log to prune")
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule, func() {
		if _, err := PruneUploadLog(context.Background(), pruner, cfg.Retention); err != nil {
			logger.L().WithError(err).Error("upload log pruning failed")
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to schedule upload log pruning")
	}

	c.Start()
	return c, nil
}

// PruneUploadLog runs one retention pass.
func PruneUploadLog(ctx context.Context, pruner UploadPruner, retention time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	n, err := pruner.PruneUploads(ctx, retention)
	if err != nil {
		return 0, err
	}
	logger.L().WithField("pruned", n).Info("upload log pruned")
	return n, nil
}

var _ serviceiface.Service = (*CronService)(nil)
