package cycles

import (
	"time"

	"github.com/cardcycle/backend/internal/models"
)

// Options control one cycle generation run.
type Options struct {
	Today          time.Time
	LookbackMonths int
	// CycleLength overrides the estimated period length when positive.
	CycleLength int
}

// Horizon is the earliest date a historical cycle may start: the later of
// the account open date and today minus the lookback window.
func Horizon(account *models.CreditAccount, opts Options) time.Time {
	h := models.Day(opts.Today).AddDate(0, -opts.LookbackMonths, 0)
	if account.OpenDate != nil && models.Day(*account.OpenDate).After(h) {
		h = models.Day(*account.OpenDate)
	}
	return h
}

// Generate returns the cycle boundaries for an account, newest first. Cycles
// carry dates, due date and IsCurrent only; spend is filled in later.
//
// With a statement date the most recent closed cycle ends on it and older
// cycles are laid back-to-back until the horizon; the current cycle runs from
// the day after the statement through today. Without one only the current
// cycle exists, starting at the horizon.
func Generate(account *models.CreditAccount, txns []models.Transaction, opts Options) []models.BillingCycle {
	today := models.Day(opts.Today)
	horizon := Horizon(account, opts)

	length := opts.CycleLength
	if length <= 0 {
		length = EstimateLength(account)
	}

	if account.LastStatementIssueDate == nil {
		if len(txns) == 0 || horizon.After(today) {
			return nil
		}
		return []models.BillingCycle{newCycle(account.ID, horizon, today, today)}
	}

	var out []models.BillingCycle

	closedEnd := models.Day(*account.LastStatementIssueDate)
	if start := models.AddDays(closedEnd, 1); !start.After(today) {
		out = append(out, newCycle(account.ID, start, today, today))
	}

	closedStart := models.AddDays(closedEnd, -(length - 1))
	if account.OpenDate != nil {
		open := models.Day(*account.OpenDate)
		if closedStart.Before(open) && !open.After(closedEnd) {
			closedStart = open
		}
	}
	closed := newCycle(account.ID, closedStart, closedEnd, today)
	if account.NextPaymentDueDate != nil {
		due := models.Day(*account.NextPaymentDueDate)
		closed.DueDate = &due
	}
	out = append(out, closed)

	prevStart := closedStart
	for {
		end := models.AddDays(prevStart, -1)
		start := models.AddDays(end, -(length - 1))
		if start.Before(horizon) {
			break
		}
		out = append(out, newCycle(account.ID, start, end, today))
		prevStart = start
	}

	return out
}

func newCycle(accountID string, start, end, today time.Time) models.BillingCycle {
	c := models.BillingCycle{
		AccountID: accountID,
		StartDate: start,
		EndDate:   end,
	}
	c.IsCurrent = c.CurrentAsOf(today)
	return c
}
