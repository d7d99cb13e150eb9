package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cardcycle/backend/internal/config"
	"github.com/cardcycle/backend/internal/logger"
	"github.com/cardcycle/backend/internal/models"
	"github.com/rs/zerolog"
)

// Trigger names what asked for a recompute.
type Trigger string

const (
	TriggerWebhook    Trigger = "webhook"
	TriggerResync     Trigger = "resync"
	TriggerRegenerate Trigger = "regenerate"
	TriggerSchedule   Trigger = "schedule"
)

var (
	ErrQueueClosed = errors.New("recompute queue is closed")
	ErrQueueFull   = errors.New("recompute queue is full")
)

// RecomputeJob is one pending recompute of an account.
type RecomputeJob struct {
	AccountID  string
	Mode       config.Mode
	Trigger    Trigger
	EnqueuedAt time.Time
}

// FetchesUpstream reports whether the job pulls fresh data before repairing.
// Regenerate jobs repair from what is already stored.
func (j RecomputeJob) FetchesUpstream() bool {
	return j.Trigger != TriggerRegenerate
}

// Syncer is the full fetch-then-repair path for an account.
type Syncer interface {
	SyncAccount(ctx context.Context, accountID string, mode config.Mode) (*models.RepairReport, error)
}

// RecomputeQueue runs recomputes on a fixed pool of workers. Jobs for an
// account that is already waiting are merged into the waiting job; a
// backfill request upgrades a waiting preview.
type RecomputeQueue struct {
	syncer   Syncer
	repairer Repairer
	log      zerolog.Logger

	mu      sync.Mutex
	pending map[string]*RecomputeJob
	ready   chan string
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewRecomputeQueue(size int, syncer Syncer, repairer Repairer, log zerolog.Logger) *RecomputeQueue {
	if size < 1 {
		size = 1
	}
	return &RecomputeQueue{
		syncer:   syncer,
		repairer: repairer,
		log:      logger.Component(log, "recompute_queue"),
		pending:  make(map[string]*RecomputeJob),
		ready:    make(chan string, size),
		done:     make(chan struct{}),
	}
}

// Enqueue schedules a recompute. It never blocks: a full queue is an error
// the caller can surface.
func (q *RecomputeQueue) Enqueue(job RecomputeJob) error {
	if job.AccountID == "" {
		return fmt.Errorf("recompute job has no account id")
	}
	if job.Mode == "" {
		job.Mode = config.ModeBackfill
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if waiting, ok := q.pending[job.AccountID]; ok {
		merge(waiting, job)
		return nil
	}

	select {
	case q.ready <- job.AccountID:
		q.pending[job.AccountID] = &job
		return nil
	default:
		return ErrQueueFull
	}
}

// merge folds a new request into a waiting job for the same account.
func merge(waiting *RecomputeJob, job RecomputeJob) {
	if job.Mode == config.ModeBackfill {
		waiting.Mode = config.ModeBackfill
	}
	if waiting.Trigger == TriggerRegenerate && job.Trigger != TriggerRegenerate {
		waiting.Trigger = job.Trigger
	}
}

// Pending returns the number of accounts waiting for a worker.
func (q *RecomputeQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Start launches the workers. They run until ctx ends or Stop is called.
func (q *RecomputeQueue) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Stop refuses new jobs and waits for in-flight ones to finish.
func (q *RecomputeQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *RecomputeQueue) worker(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done:
			return
		case accountID := <-q.ready:
			q.mu.Lock()
			job, ok := q.pending[accountID]
			delete(q.pending, accountID)
			q.mu.Unlock()
			if ok {
				q.run(ctx, *job)
			}
		}
	}
}

func (q *RecomputeQueue) run(ctx context.Context, job RecomputeJob) {
	log := q.log.With().
		Str("account_id", job.AccountID).
		Str("mode", string(job.Mode)).
		Str("trigger", string(job.Trigger)).
		Logger()

	var err error
	if job.FetchesUpstream() {
		_, err = q.syncer.SyncAccount(ctx, job.AccountID, job.Mode)
	} else {
		_, err = q.repairer.Repair(ctx, job.AccountID, job.Mode)
	}
	if err != nil {
		log.Error().Err(err).Msg("Recompute failed")
		return
	}
	log.Debug().Dur("waited", time.Since(job.EnqueuedAt)).Msg("Recompute finished")
}
