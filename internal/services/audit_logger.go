package services

import (
	"time"

	"github.com/cardcycle/backend/internal/logger"
	"github.com/cardcycle/backend/internal/models"
	"github.com/rs/zerolog"
)

// Audit event types.
const (
	AuditCycleRepair    = "CYCLE_REPAIR"
	AuditOpenDateSet    = "OPEN_DATE_INFERRED"
	AuditRecomputeError = "RECOMPUTE_ERROR"
)

// AuditLogger writes one structured audit event per repair outcome.
type AuditLogger struct {
	log zerolog.Logger
	now func() time.Time
}

func NewAuditLogger(log zerolog.Logger) *AuditLogger {
	return &AuditLogger{
		log: logger.Component(log, "audit"),
		now: time.Now,
	}
}

func (a *AuditLogger) LogRepair(report *models.RepairReport) {
	a.event(AuditCycleRepair, report.AccountID, "SUCCESS").
		Str("mode", report.Mode).
		Int("lookback_months", report.LookbackMonths).
		Int("inserted", report.Inserted).
		Int("updated", report.Updated).
		Int("deleted", report.Deleted).
		Int("unchanged", report.Unchanged).
		Bool("open_date_inferred", report.OpenDateInferred).
		Msg("AUDIT")
}

func (a *AuditLogger) LogOpenDate(accountID string, openDate time.Time) {
	a.event(AuditOpenDateSet, accountID, "SUCCESS").
		Str("open_date", openDate.Format(models.DateLayout)).
		Msg("AUDIT")
}

func (a *AuditLogger) LogError(accountID, operation string, err error) {
	a.event(AuditRecomputeError, accountID, "FAILED").
		Str("operation", operation).
		Str("error_kind", string(models.KindOf(err))).
		Str("error_code", models.CodeOf(err)).
		Err(err).
		Msg("AUDIT")
}

func (a *AuditLogger) event(eventType, accountID, status string) *zerolog.Event {
	return a.log.Info().
		Time("timestamp", a.now().UTC()).
		Str("event_type", eventType).
		Str("account_id", accountID).
		Str("status", status)
}
