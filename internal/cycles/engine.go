package cycles

import (
	"time"

	"github.com/cardcycle/backend/internal/models"
)

// DefaultOpenDateBuffer is subtracted from the earliest transaction date
// when an account's open date has to be inferred.
const DefaultOpenDateBuffer = 7

// Engine runs generation, aggregation and reconciliation for one account.
type Engine struct {
	classifier *Classifier
}

// NewEngine returns an engine using the given payment policy.
func NewEngine(policy PaymentPolicy) *Engine {
	return &Engine{classifier: NewClassifier(policy)}
}

// Classifier exposes the engine's transaction classifier.
func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

// Compute returns the fully valued cycle set for an account, newest first.
func (e *Engine) Compute(account *models.CreditAccount, txns []models.Transaction, opts Options) []models.BillingCycle {
	bounds := Generate(account, txns, opts)
	out := make([]models.BillingCycle, 0, len(bounds))
	for _, cycle := range bounds {
		cycle.TotalSpend, cycle.TransactionCount = e.classifier.Aggregate(cycle, txns, opts.Today)
		out = append(out, Reconcile(cycle, account))
	}
	return out
}

// InferOpenDate returns the earliest transaction date minus bufferDays.
// ok is false when there are no transactions.
func InferOpenDate(txns []models.Transaction, bufferDays int) (openDate time.Time, ok bool) {
	var earliest time.Time
	for _, txn := range txns {
		d := models.Day(txn.Date)
		if !ok || d.Before(earliest) {
			earliest = d
			ok = true
		}
	}
	if !ok {
		return time.Time{}, false
	}
	return models.AddDays(earliest, -bufferDays), true
}
