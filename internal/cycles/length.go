package cycles

import "github.com/cardcycle/backend/internal/models"

const (
	DefaultCycleLength = 30
	MinCycleLength     = 25
	MaxCycleLength     = 35
	// GracePeriodDays is the assumed gap between statement issue and payment due date.
	GracePeriodDays = 21
)

// EstimateLength infers the statement period length of an account from its
// statement and due dates. It falls back to DefaultCycleLength when either
// date is missing.
func EstimateLength(account *models.CreditAccount) int {
	if account == nil || account.LastStatementIssueDate == nil || account.NextPaymentDueDate == nil {
		return DefaultCycleLength
	}
	raw := models.DaysBetween(*account.NextPaymentDueDate, *account.LastStatementIssueDate) - GracePeriodDays
	return clampLength(raw)
}

func clampLength(days int) int {
	if days < MinCycleLength {
		return MinCycleLength
	}
	if days > MaxCycleLength {
		return MaxCycleLength
	}
	return days
}
