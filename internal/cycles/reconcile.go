package cycles

import (
	"github.com/cardcycle/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Reconcile overrides transaction-derived figures with issuer-reported ones.
//
// The cycle ending on the last statement date takes the statement balance as
// both statementBalance and totalSpend. The current cycle takes the growth of
// the running balance over the statement balance. Any other cycle keeps its
// transaction sum.
func Reconcile(cycle models.BillingCycle, account *models.CreditAccount) models.BillingCycle {
	out := cycle
	out.StatementBalance = decimal.NullDecimal{}

	if account.LastStatementIssueDate != nil &&
		models.Day(cycle.EndDate).Equal(models.Day(*account.LastStatementIssueDate)) &&
		account.LastStatementBalance.Valid {
		balance := account.LastStatementBalance.Decimal.Abs().Round(2)
		out.StatementBalance = decimal.NewNullDecimal(balance)
		out.TotalSpend = balance
		return out
	}

	if cycle.IsCurrent && account.BalanceCurrent.Valid && account.LastStatementBalance.Valid {
		delta := account.BalanceCurrent.Decimal.Abs().Sub(account.LastStatementBalance.Decimal.Abs())
		if delta.IsNegative() {
			delta = decimal.Zero
		}
		out.TotalSpend = delta.Round(2)
	}

	return out
}
