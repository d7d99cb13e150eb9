package cycles

import (
	"sort"

	"github.com/cardcycle/backend/internal/models"
	"github.com/shopspring/decimal"
)

// SpendTolerance is the largest spend difference treated as unchanged.
var SpendTolerance = decimal.NewFromFloat(0.01)

// Plan is the set of writes that turns the stored cycles into the computed ones.
type Plan struct {
	Insert    []models.BillingCycle
	Update    []models.BillingCycle // carry the stored ID
	Delete    []models.BillingCycle
	Unchanged int
}

// Empty reports whether the plan has no writes.
func (p Plan) Empty() bool {
	return len(p.Insert) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// Diff matches computed cycles to stored ones by date range.
//
// Computed values win, except that an issuer-confirmed statement balance
// already stored for a range is kept when the recompute no longer has one.
// Stored duplicates of a range and stored ranges absent from the computed
// set are deleted.
func Diff(stored, computed []models.BillingCycle) Plan {
	byKey := make(map[models.CycleKey]models.BillingCycle, len(stored))
	var plan Plan
	for _, s := range stored {
		k := s.Key()
		if _, dup := byKey[k]; dup {
			plan.Delete = append(plan.Delete, s)
			continue
		}
		byKey[k] = s
	}

	seen := make(map[models.CycleKey]bool, len(computed))
	for _, c := range computed {
		k := c.Key()
		seen[k] = true
		s, ok := byKey[k]
		if !ok {
			plan.Insert = append(plan.Insert, c)
			continue
		}
		if s.StatementBalance.Valid && !c.StatementBalance.Valid {
			c.StatementBalance = s.StatementBalance
			c.TotalSpend = s.StatementBalance.Decimal
		}
		if differs(s, c) {
			c.ID = s.ID
			plan.Update = append(plan.Update, c)
			continue
		}
		plan.Unchanged++
	}

	for k, s := range byKey {
		if !seen[k] {
			plan.Delete = append(plan.Delete, s)
		}
	}

	sortNewestFirst(plan.Insert)
	sortNewestFirst(plan.Update)
	sortNewestFirst(plan.Delete)
	return plan
}

func differs(stored, computed models.BillingCycle) bool {
	if stored.TotalSpend.Sub(computed.TotalSpend).Abs().GreaterThan(SpendTolerance) {
		return true
	}
	if stored.StatementBalance.Valid != computed.StatementBalance.Valid {
		return true
	}
	if stored.StatementBalance.Valid && !stored.StatementBalance.Decimal.Equal(computed.StatementBalance.Decimal) {
		return true
	}
	if !models.SameDay(stored.DueDate, computed.DueDate) {
		return true
	}
	if stored.IsCurrent != computed.IsCurrent {
		return true
	}
	return stored.TransactionCount != computed.TransactionCount
}

func sortNewestFirst(cs []models.BillingCycle) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].EndDate.Equal(cs[j].EndDate) {
			return cs[i].StartDate.After(cs[j].StartDate)
		}
		return cs[i].EndDate.After(cs[j].EndDate)
	})
}
