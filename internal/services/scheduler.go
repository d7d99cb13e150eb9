package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cardcycle/backend/internal/config"
	"github.com/cardcycle/backend/internal/logger"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AccountLister lists every account known to the store.
type AccountLister interface {
	ListAccountIDs(ctx context.Context) ([]string, error)
}

// SweepResult counts the outcome of one scheduled pass.
type SweepResult struct {
	Accounts int
	Failed   int
}

// Scheduler periodically re-syncs every account with bounded parallelism.
// Accounts are independent, so one failure does not stop the sweep.
type Scheduler struct {
	accounts AccountLister
	syncer   Syncer
	workers  int
	log      zerolog.Logger
}

func NewScheduler(accounts AccountLister, syncer Syncer, workers int, log zerolog.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		accounts: accounts,
		syncer:   syncer,
		workers:  workers,
		log:      logger.Component(log, "scheduler"),
	}
}

// Sweep runs a backfill sync for every account.
func (s *Scheduler) Sweep(ctx context.Context) (SweepResult, error) {
	ids, err := s.accounts.ListAccountIDs(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := s.syncer.SyncAccount(gctx, id, config.ModeBackfill); err != nil {
				failed.Add(1)
				s.log.Warn().Err(err).Str("account_id", id).Msg("Scheduled sync failed")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Accounts: len(ids), Failed: int(failed.Load())}
	s.log.Info().Int("accounts", result.Accounts).Int("failed", result.Failed).Msg("Scheduled sweep finished")
	return result, nil
}

// Run sweeps once per interval until ctx ends.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error().Err(err).Msg("Scheduled sweep failed")
			}
		}
	}
}
