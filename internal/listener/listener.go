package listener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"ledgerflow/internal/config"
	"ledgerflow/internal/logger"
	"ledgerflow/internal/pipeline"
	"ledgerflow/internal/storage"
)

const fingerprintKey = "watch.fingerprint"

// Service polls the input folders and reruns the pipeline whenever the set
// of documents or their content changes.
type Service struct {
	db       *storage.DB
	cfg      config.Config
	pipeline *pipeline.Service
	log      zerolog.Logger
}

func NewService(db *storage.DB, cfg config.Config, p *pipeline.Service) *Service {
	return &Service{db: db, cfg: cfg, pipeline: p, log: zerolog.Nop()}
}

// Run checks the inputs on WATCH_SCHEDULE when one is configured, otherwise
// every WATCH_INTERVAL_SEC, until ctx is cancelled. It logs through the
// logger carried by ctx.
func (s *Service) Run(ctx context.Context) error {
	s.log = logger.FromContext(ctx).With().Str("component", "watch").Logger()
	if s.cfg.WatchSchedule != "" {
		return s.runScheduled(ctx)
	}

	interval := time.Duration(s.cfg.WatchIntervalSec) * time.Second
	s.log.Info().Dur("interval", interval).Str("sales", s.cfg.SalesInputDir).
		Str("purchases", s.cfg.PurchasesInputDir).Msg("watching input folders")
	for {
		s.cycle()

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) runScheduled(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.cfg.WatchSchedule, s.cycle); err != nil {
		return fmt.Errorf("watch schedule %q: %w", s.cfg.WatchSchedule, err)
	}
	c.Start()
	s.log.Info().Str("schedule", s.cfg.WatchSchedule).Str("sales", s.cfg.SalesInputDir).
		Str("purchases", s.cfg.PurchasesInputDir).Msg("watching input folders")

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Service) cycle() {
	if _, err := s.RunCycle(); err != nil {
		s.log.Error().Err(err).Msg("watch cycle failed")
	}
}

// RunCycle processes the inputs if they changed since the last successful
// cycle and reports whether a run happened. A failed run is retried on the
// next cycle.
func (s *Service) RunCycle() (bool, error) {
	docs, err := s.pipeline.Discover()
	if err != nil {
		return false, err
	}
	fingerprint := pipeline.Fingerprint(docs)

	prev, err := s.db.GetMetadata(fingerprintKey)
	if err != nil {
		return false, err
	}
	if prev != nil && *prev == fingerprint {
		s.log.Debug().Int("documents", len(docs)).Msg("inputs unchanged")
		return false, nil
	}

	report, combined, runErr := s.pipeline.Process(docs)
	var renameErr error
	if len(docs) > 0 {
		_, renameErr = s.pipeline.RenameSales(docs, s.cfg.RenamedDir)
	}
	if err := errors.Join(runErr, renameErr); err != nil {
		return true, err
	}
	if err := s.db.SetMetadata(fingerprintKey, fingerprint); err != nil {
		return true, err
	}

	s.log.Info().Str("run", report.RunID).Int("documents", len(report.Documents)).
		Int("failed", report.Failed).Int("ledger_rows", len(combined.Ledger)).Msg("watch cycle done")
	return true, nil
}
