package services

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"epw-platform/pkg/logging"
)

// SchedulerConfig holds cron specs; an empty spec disables that job.
type SchedulerConfig struct {
	RescanSpec string
	FetchSpec  string
	FetchURLs  []string
}

// Scheduler periodically rescans the data directory and refreshes remote
// weather files. A run still in progress makes the next one skip.
type Scheduler struct {
	cron    *cron.Cron
	catalog *Catalog
	fetcher *Fetcher
	dataDir string
	urls    []string
	logger  *logging.StructuredLogger
}

func NewScheduler(cfg SchedulerConfig, dataDir string, catalog *Catalog, fetcher *Fetcher, logger *logging.StructuredLogger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		catalog: catalog,
		fetcher: fetcher,
		dataDir: dataDir,
		urls:    cfg.FetchURLs,
		logger:  logger,
	}
	if cfg.RescanSpec != "" {
		if _, err := s.cron.AddFunc(cfg.RescanSpec, func() { s.Rescan(context.Background()) }); err != nil {
			return nil, fmt.Errorf("invalid rescan schedule %q: %w", cfg.RescanSpec, err)
		}
	}
	if cfg.FetchSpec != "" && len(cfg.FetchURLs) > 0 && fetcher != nil {
		if _, err := s.cron.AddFunc(cfg.FetchSpec, func() { s.FetchAll(context.Background()) }); err != nil {
			return nil, fmt.Errorf("invalid fetch schedule %q: %w", cfg.FetchSpec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Jobs() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() {
	s.logger.Info(context.Background(), "[SCHEDULER_START] Scheduler started", logging.Fields{
		"jobs": s.Jobs(),
	})
	s.cron.Start()
}

// Stop waits for running jobs or for ctx, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Rescan loads every EPW file in the data directory into the catalog.
func (s *Scheduler) Rescan(ctx context.Context) {
	loaded, failed, err := s.catalog.LoadDirectory(ctx, s.dataDir)
	if err != nil {
		s.logger.Error(ctx, "[SCHEDULER_RESCAN_ERROR] Rescan failed", logging.Fields{
			"data_dir": s.dataDir,
		}, err)
		return
	}
	s.logger.Info(ctx, "[SCHEDULER_RESCAN] Data directory rescanned", logging.Fields{
		"data_dir": s.dataDir,
		"loaded":   len(loaded),
		"failed":   len(failed),
	})
}

// FetchAll downloads each configured URL once.
func (s *Scheduler) FetchAll(ctx context.Context) {
	for _, u := range s.urls {
		if _, err := s.fetcher.Fetch(ctx, u); err != nil {
			s.logger.Error(ctx, "[SCHEDULER_FETCH_ERROR] Scheduled download failed", logging.Fields{
				"url": u,
			}, err)
		}
	}
}
