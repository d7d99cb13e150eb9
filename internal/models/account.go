package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sync status values stored on credit_accounts.sync_status.
const (
	SyncStatusOK    = "ok"
	SyncStatusError = "error"
)

// CreditAccount is a linked credit card account and its issuer-reported metadata.
type CreditAccount struct {
	ID                     string              `json:"id" db:"id"`
	UserID                 string              `json:"user_id" db:"user_id"`
	InstitutionID          string              `json:"institution_id" db:"institution_id"`
	InstitutionName        string              `json:"institution_name" db:"institution_name"`
	OpenDate               *time.Time          `json:"open_date" db:"open_date"`
	OpenDateInferred       bool                `json:"open_date_inferred" db:"open_date_inferred"` // derived from transactions, may move earlier
	LastStatementIssueDate *time.Time          `json:"last_statement_issue_date" db:"last_statement_issue_date"`
	LastStatementBalance   decimal.NullDecimal `json:"last_statement_balance" db:"last_statement_balance"` // non-negative owed amount
	NextPaymentDueDate     *time.Time          `json:"next_payment_due_date" db:"next_payment_due_date"`
	BalanceCurrent         decimal.NullDecimal `json:"balance_current" db:"balance_current"`
	BalanceLimit           decimal.NullDecimal `json:"balance_limit" db:"balance_limit"`
	SyncStatus             string              `json:"sync_status" db:"sync_status"`
	SyncErrorCode          string              `json:"sync_error_code,omitempty" db:"sync_error_code"`
	UpdatedAt              time.Time           `json:"updated_at" db:"updated_at"`
}

// AccountMetadata is the refreshable subset of CreditAccount written by a
// liabilities sync.
type AccountMetadata struct {
	AccountID              string
	LastStatementIssueDate *time.Time
	LastStatementBalance   decimal.NullDecimal
	NextPaymentDueDate     *time.Time
	BalanceCurrent         decimal.NullDecimal
	BalanceLimit           decimal.NullDecimal
}
