package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an imported card transaction. Amount is positive for
// charges and negative for refunds and payment credits.
type Transaction struct {
	ID           string          `json:"id" db:"id"`
	AccountID    string          `json:"account_id" db:"account_id"`
	Date         time.Time       `json:"date" db:"txn_date"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Description  string          `json:"description" db:"description"`
	MerchantName string          `json:"merchant_name,omitempty" db:"merchant_name"`
	Pending      bool            `json:"pending" db:"pending"`
	Category     string          `json:"category,omitempty" db:"category"`
}
