package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycle is one statement period of a credit account. StartDate and
// EndDate are inclusive.
type BillingCycle struct {
	ID               string              `json:"id" db:"id"`
	AccountID        string              `json:"account_id" db:"account_id"`
	StartDate        time.Time           `json:"start_date" db:"start_date"`
	EndDate          time.Time           `json:"end_date" db:"end_date"`
	TotalSpend       decimal.Decimal     `json:"total_spend" db:"total_spend"`
	StatementBalance decimal.NullDecimal `json:"statement_balance" db:"statement_balance"`
	DueDate          *time.Time          `json:"due_date" db:"due_date"`
	TransactionCount int                 `json:"transaction_count" db:"transaction_count"`
	IsCurrent        bool                `json:"is_current" db:"is_current"` // open as of the last repair
}

// CycleKey identifies a cycle by its account and date range.
type CycleKey struct {
	AccountID string
	Start     string
	End       string
}

// Key returns the (account, start, end) identity of the cycle.
func (c BillingCycle) Key() CycleKey {
	return CycleKey{
		AccountID: c.AccountID,
		Start:     c.StartDate.Format(DateLayout),
		End:       c.EndDate.Format(DateLayout),
	}
}

// CurrentAsOf reports whether the cycle is still open on the given day.
func (c BillingCycle) CurrentAsOf(today time.Time) bool {
	return !Day(c.EndDate).Before(Day(today))
}
