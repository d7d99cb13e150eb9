package services

import (
	"context"
	"strings"
	"time"

	"github.com/cardcycle/backend/internal/config"
	"github.com/cardcycle/backend/internal/cycles"
	"github.com/cardcycle/backend/internal/database"
	"github.com/cardcycle/backend/internal/logger"
	"github.com/cardcycle/backend/internal/models"
	"github.com/rs/zerolog"
)

// CycleStore runs a function inside an account's exclusive, transactional section.
type CycleStore interface {
	WithAccountLock(ctx context.Context, accountID string, fn func(database.AccountTx) error) error
}

// RepairService recomputes an account's billing cycles and writes the
// minimal set of inserts, updates and deletes that brings storage in line.
type RepairService struct {
	store      CycleStore
	engine     *cycles.Engine
	policies   *config.PolicyTable
	bufferDays int
	locks      *accountLocks
	audit      *AuditLogger
	reports    *ReportCache
	log        zerolog.Logger
	now        func() time.Time
}

// NewRepairService wires a repair service. reports may be nil.
func NewRepairService(store CycleStore, engine *cycles.Engine, policies *config.PolicyTable, bufferDays int,
	audit *AuditLogger, reports *ReportCache, log zerolog.Logger) *RepairService {
	if bufferDays < 0 {
		bufferDays = cycles.DefaultOpenDateBuffer
	}
	if audit == nil {
		audit = NewAuditLogger(log)
	}
	return &RepairService{
		store:      store,
		engine:     engine,
		policies:   policies,
		bufferDays: bufferDays,
		locks:      newAccountLocks(),
		audit:      audit,
		reports:    reports,
		log:        logger.Component(log, "repair"),
		now:        time.Now,
	}
}

// Repair reconciles the stored cycles of one account with a fresh computation.
// Either every write commits or none does; a failure leaves the stored cycles
// as they were.
func (s *RepairService) Repair(ctx context.Context, accountID string, mode config.Mode) (*models.RepairReport, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, models.Validationf("repair", "account id is required")
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	start := time.Now()
	today := models.Day(s.now())
	report := &models.RepairReport{AccountID: accountID, Mode: string(mode)}

	err := s.store.WithAccountLock(ctx, accountID, func(tx database.AccountTx) error {
		return s.repair(ctx, tx, today, mode, report)
	})
	if err != nil {
		s.audit.LogError(accountID, "repair", err)
		return nil, err
	}

	report.ComputedAt = s.now().UTC()
	if report.OpenDateInferred {
		s.audit.LogOpenDate(accountID, *report.OpenDate)
	}
	s.audit.LogRepair(report)
	if err := s.reports.Put(ctx, report); err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("Failed to cache repair report")
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("mode", report.Mode).
		Int("inserted", report.Inserted).
		Int("updated", report.Updated).
		Int("deleted", report.Deleted).
		Dur("duration", time.Since(start)).
		Msg("Cycles repaired")
	return report, nil
}

func (s *RepairService) repair(ctx context.Context, tx database.AccountTx, today time.Time, mode config.Mode, report *models.RepairReport) error {
	account, err := tx.Account(ctx)
	if err != nil {
		return err
	}
	txns, err := tx.Transactions(ctx)
	if err != nil {
		return err
	}
	stored, err := tx.Cycles(ctx)
	if err != nil {
		return err
	}

	if openDate, ok := s.inferOpenDate(account, txns); ok {
		if err := tx.SetOpenDate(ctx, openDate); err != nil {
			return err
		}
		account.OpenDate = &openDate
		account.OpenDateInferred = true
		report.OpenDateInferred = true
		report.OpenDate = &openDate
	}

	policy := s.policies.Lookup(account.InstitutionID)
	report.LookbackMonths = lookbackFor(policy, mode, stored, today)

	computed := s.engine.Compute(account, txns, cycles.Options{
		Today:          today,
		LookbackMonths: report.LookbackMonths,
		CycleLength:    policy.CycleLengthDays,
	})
	if err := cycles.CheckInvariants(computed, account, today); err != nil {
		return models.NewError(models.KindDataIntegrity, "compute cycles", account.ID, err)
	}

	plan := cycles.Diff(stored, computed)
	for _, c := range plan.Delete {
		if err := tx.DeleteCycle(ctx, c.ID); err != nil {
			return err
		}
	}
	for _, c := range plan.Update {
		if err := tx.UpdateCycle(ctx, c); err != nil {
			return err
		}
	}
	for i := range plan.Insert {
		if err := tx.InsertCycle(ctx, &plan.Insert[i]); err != nil {
			return err
		}
	}

	report.Inserted = len(plan.Insert)
	report.Updated = len(plan.Update)
	report.Deleted = len(plan.Delete)
	report.Unchanged = plan.Unchanged
	return nil
}

// inferOpenDate derives an open date from the earliest stored transaction.
// An issuer-reported open date is never replaced. An inferred one only moves
// earlier, when a wider fetch has brought in older transactions.
func (s *RepairService) inferOpenDate(account *models.CreditAccount, txns []models.Transaction) (time.Time, bool) {
	if account.OpenDate != nil && !account.OpenDateInferred {
		return time.Time{}, false
	}
	openDate, ok := cycles.InferOpenDate(txns, s.bufferDays)
	if !ok {
		return time.Time{}, false
	}
	if account.OpenDate != nil && !openDate.Before(models.Day(*account.OpenDate)) {
		return time.Time{}, false
	}
	return openDate, true
}

// lookbackFor picks the history window. A preview never trims history that
// an earlier backfill already stored.
func lookbackFor(policy config.Policy, mode config.Mode, stored []models.BillingCycle, today time.Time) int {
	months := policy.LookbackMonths(mode)
	if mode != config.ModePreview {
		return months
	}
	horizon := today.AddDate(0, -months, 0)
	for _, c := range stored {
		if c.StartDate.Before(horizon) {
			return policy.LookbackMonths(config.ModeBackfill)
		}
	}
	return months
}
