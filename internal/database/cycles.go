package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cardcycle/backend/internal/models"
	"github.com/google/uuid"
)

// AccountTx is the set of reads and writes available while holding an
// account's exclusive section. Every write commits or rolls back together.
type AccountTx interface {
	Account(ctx context.Context) (*models.CreditAccount, error)
	Transactions(ctx context.Context) ([]models.Transaction, error)
	Cycles(ctx context.Context) ([]models.BillingCycle, error)
	SetOpenDate(ctx context.Context, openDate time.Time) error
	InsertCycle(ctx context.Context, cycle *models.BillingCycle) error
	UpdateCycle(ctx context.Context, cycle models.BillingCycle) error
	DeleteCycle(ctx context.Context, cycleID string) error
}

// WithAccountLock runs fn inside a database transaction holding a
// transaction-scoped advisory lock on the account. The lock serialises
// recomputes across processes; it is released on commit or rollback.
func (s *Store) WithAccountLock(ctx context.Context, accountID string, fn func(AccountTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin repair: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, accountID); err != nil {
		return fmt.Errorf("locking account %s: %w", accountID, err)
	}

	if err := fn(&accountTx{tx: tx, accountID: accountID, now: s.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit repair for %s: %w", accountID, err)
	}
	return nil
}

type accountTx struct {
	tx        *sql.Tx
	accountID string
	now       func() time.Time
}

func (a *accountTx) Account(ctx context.Context) (*models.CreditAccount, error) {
	return getAccount(ctx, a.tx, a.accountID, true)
}

func (a *accountTx) Transactions(ctx context.Context) ([]models.Transaction, error) {
	return listTransactions(ctx, a.tx, a.accountID)
}

func (a *accountTx) Cycles(ctx context.Context) ([]models.BillingCycle, error) {
	rows, err := a.tx.QueryContext(ctx, `SELECT `+cycleColumns+`
		FROM billing_cycles WHERE account_id = $1 ORDER BY end_date DESC, start_date DESC`, a.accountID)
	if err != nil {
		return nil, fmt.Errorf("listing cycles for %s: %w", a.accountID, err)
	}
	defer rows.Close()
	return scanCycles(rows)
}

// SetOpenDate stores an open date derived from transactions and flags it as inferred.
func (a *accountTx) SetOpenDate(ctx context.Context, openDate time.Time) error {
	_, err := a.tx.ExecContext(ctx, `UPDATE credit_accounts SET open_date = $1, open_date_inferred = TRUE, updated_at = $2 WHERE id = $3`,
		models.Day(openDate), a.now().UTC(), a.accountID)
	if err != nil {
		return fmt.Errorf("setting open date for %s: %w", a.accountID, err)
	}
	return nil
}

func (a *accountTx) InsertCycle(ctx context.Context, cycle *models.BillingCycle) error {
	if err := a.checkCycle(*cycle); err != nil {
		return err
	}
	if cycle.ID == "" {
		cycle.ID = uuid.New().String()
	}
	now := a.now().UTC()
	_, err := a.tx.ExecContext(ctx, `
		INSERT INTO billing_cycles (id, account_id, start_date, end_date, total_spend,
			statement_balance, due_date, transaction_count, is_current, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		cycle.ID, a.accountID, models.Day(cycle.StartDate), models.Day(cycle.EndDate), cycle.TotalSpend,
		cycle.StatementBalance, nullDate(cycle.DueDate), cycle.TransactionCount, cycle.IsCurrent, now, now)
	if err != nil {
		return fmt.Errorf("inserting cycle %s..%s: %w",
			cycle.StartDate.Format(models.DateLayout), cycle.EndDate.Format(models.DateLayout), err)
	}
	return nil
}

func (a *accountTx) UpdateCycle(ctx context.Context, cycle models.BillingCycle) error {
	if err := a.checkCycle(cycle); err != nil {
		return err
	}
	if cycle.ID == "" {
		return models.NewError(models.KindDataIntegrity, "update cycle", a.accountID, fmt.Errorf("cycle has no id"))
	}
	result, err := a.tx.ExecContext(ctx, `
		UPDATE billing_cycles
		SET total_spend = $1, statement_balance = $2, due_date = $3, transaction_count = $4,
			is_current = $5, updated_at = $6
		WHERE id = $7 AND account_id = $8`,
		cycle.TotalSpend, cycle.StatementBalance, nullDate(cycle.DueDate), cycle.TransactionCount,
		cycle.IsCurrent, a.now().UTC(), cycle.ID, a.accountID)
	if err != nil {
		return fmt.Errorf("updating cycle %s: %w", cycle.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.NewError(models.KindDataIntegrity, "update cycle", a.accountID,
			fmt.Errorf("cycle %s not found", cycle.ID))
	}
	return nil
}

func (a *accountTx) DeleteCycle(ctx context.Context, cycleID string) error {
	if _, err := a.tx.ExecContext(ctx, `DELETE FROM billing_cycles WHERE id = $1 AND account_id = $2`,
		cycleID, a.accountID); err != nil {
		return fmt.Errorf("deleting cycle %s: %w", cycleID, err)
	}
	return nil
}

func (a *accountTx) checkCycle(c models.BillingCycle) error {
	switch {
	case c.AccountID != a.accountID:
		return models.NewError(models.KindDataIntegrity, "write cycle", a.accountID,
			fmt.Errorf("cycle belongs to account %q", c.AccountID))
	case c.StartDate.IsZero() || c.EndDate.IsZero():
		return models.NewError(models.KindDataIntegrity, "write cycle", a.accountID, fmt.Errorf("cycle has no date range"))
	case c.TotalSpend.IsNegative():
		return models.NewError(models.KindDataIntegrity, "write cycle", a.accountID, fmt.Errorf("negative total spend"))
	}
	return nil
}
