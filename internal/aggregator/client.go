// Package aggregator is the boundary to the upstream account-data aggregator.
package aggregator

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord is a transaction as reported by the aggregator.
type TransactionRecord struct {
	ID           string          `json:"id" validate:"required"`
	AccountID    string          `json:"account_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	Date         string          `json:"date" validate:"required,datetime=2006-01-02"`
	Pending      bool            `json:"pending"`
	Name         string          `json:"name"`
	MerchantName string          `json:"merchant_name"`
	Category     []string        `json:"category"`
}

// Description is the human-readable text used to classify the transaction.
func (r TransactionRecord) Description() string {
	if strings.TrimSpace(r.Name) != "" {
		return r.Name
	}
	return r.MerchantName
}

// LiabilityRecord is the credit-card liability snapshot for one account.
type LiabilityRecord struct {
	AccountID              string              `json:"account_id" validate:"required"`
	LastStatementBalance   decimal.NullDecimal `json:"last_statement_balance"`
	LastStatementIssueDate string              `json:"last_statement_issue_date" validate:"omitempty,datetime=2006-01-02"`
	NextPaymentDueDate     string              `json:"next_payment_due_date" validate:"omitempty,datetime=2006-01-02"`
	BalanceCurrent         decimal.NullDecimal `json:"balance_current"`
	BalanceLimit           decimal.NullDecimal `json:"balance_limit"`
}

// Client is the low-level aggregator API.
type Client interface {
	ListTransactions(ctx context.Context, accountID string, start, end time.Time) ([]TransactionRecord, error)
	GetLiabilities(ctx context.Context, accountID string) (*LiabilityRecord, error)
}
