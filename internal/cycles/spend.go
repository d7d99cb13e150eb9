package cycles

import (
	"time"

	"github.com/cardcycle/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Aggregate sums the spend of the transactions dated inside the cycle,
// up to today. Payments are skipped; refunds subtract. The total is floored
// at zero and rounded to cents. The count covers the transactions summed.
func (c *Classifier) Aggregate(cycle models.BillingCycle, txns []models.Transaction, today time.Time) (decimal.Decimal, int) {
	start := models.Day(cycle.StartDate)
	end := models.Day(cycle.EndDate)
	if t := models.Day(today); t.Before(end) {
		end = t
	}

	total := decimal.Zero
	count := 0
	for _, txn := range txns {
		d := models.Day(txn.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		if c.Classify(txn.Description, txn.Amount) == Payment {
			continue
		}
		total = total.Add(txn.Amount)
		count++
	}

	if total.IsNegative() {
		total = decimal.Zero
	}
	return total.Round(2), count
}
