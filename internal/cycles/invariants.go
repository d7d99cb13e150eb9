package cycles

import (
	"fmt"
	"time"

	"github.com/cardcycle/backend/internal/models"
	"github.com/shopspring/decimal"
)

// CheckInvariants verifies a newest-first cycle set: contiguous,
// non-overlapping ranges, at most one current cycle and it is the newest,
// at most one statement cycle, and non-negative spend.
func CheckInvariants(cs []models.BillingCycle, account *models.CreditAccount, today time.Time) error {
	statementCycles := 0
	for i, c := range cs {
		if c.EndDate.Before(c.StartDate) {
			return fmt.Errorf("cycle %s..%s ends before it starts", fmtDate(c.StartDate), fmtDate(c.EndDate))
		}
		if c.TotalSpend.LessThan(decimal.Zero) {
			return fmt.Errorf("cycle %s..%s has negative spend", fmtDate(c.StartDate), fmtDate(c.EndDate))
		}
		if i > 0 && c.CurrentAsOf(today) {
			return fmt.Errorf("cycle %s..%s is current but not the newest", fmtDate(c.StartDate), fmtDate(c.EndDate))
		}
		if i+1 < len(cs) {
			older := cs[i+1]
			if !models.AddDays(older.EndDate, 1).Equal(models.Day(c.StartDate)) {
				return fmt.Errorf("cycles %s..%s and %s..%s are not contiguous",
					fmtDate(older.StartDate), fmtDate(older.EndDate), fmtDate(c.StartDate), fmtDate(c.EndDate))
			}
		}
		if account != nil && account.LastStatementIssueDate != nil &&
			models.Day(c.EndDate).Equal(models.Day(*account.LastStatementIssueDate)) {
			statementCycles++
		}
	}
	if statementCycles > 1 {
		return fmt.Errorf("%d cycles end on the statement date", statementCycles)
	}
	return nil
}

func fmtDate(t time.Time) string {
	return t.Format(models.DateLayout)
}
