package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cardcycle/backend/internal/models"
)

// Store persists credit accounts, their transactions and billing cycles in Postgres.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

const accountColumns = `id, user_id, institution_id, institution_name, open_date, open_date_inferred,
	last_statement_issue_date, last_statement_balance, next_payment_due_date,
	balance_current, balance_limit, sync_status, sync_error_code, updated_at`

const transactionColumns = `id, account_id, txn_date, amount, description, merchant_name, pending, category`

const cycleColumns = `id, account_id, start_date, end_date, total_spend, statement_balance, due_date, transaction_count, is_current`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// GetAccount loads one account by id.
func (s *Store) GetAccount(ctx context.Context, accountID string) (*models.CreditAccount, error) {
	return getAccount(ctx, s.db, accountID, false)
}

func getAccount(ctx context.Context, q queryer, accountID string, forUpdate bool) (*models.CreditAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM credit_accounts WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := q.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying account %s: %w", accountID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("querying account %s: %w", accountID, err)
		}
		return nil, models.NewError(models.KindNotFound, "get account", accountID, sql.ErrNoRows)
	}
	account, err := scanAccount(rows)
	if err != nil {
		return nil, models.NewError(models.KindDataIntegrity, "scan account", accountID, err)
	}
	return account, nil
}

func scanAccount(row rowScanner) (*models.CreditAccount, error) {
	var (
		a               models.CreditAccount
		open, stmt, due sql.NullTime
		errCode         sql.NullString
	)
	err := row.Scan(
		&a.ID, &a.UserID, &a.InstitutionID, &a.InstitutionName, &open, &a.OpenDateInferred,
		&stmt, &a.LastStatementBalance, &due,
		&a.BalanceCurrent, &a.BalanceLimit, &a.SyncStatus, &errCode, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.OpenDate = datePtr(open)
	a.LastStatementIssueDate = datePtr(stmt)
	a.NextPaymentDueDate = datePtr(due)
	a.SyncErrorCode = errCode.String
	return &a, nil
}

// ListAccountIDs returns every account id, in id order.
func (s *Store) ListAccountIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM credit_accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, models.NewError(models.KindDataIntegrity, "scan account id", "", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ApplySync writes refreshed account metadata and upserts transactions in
// one database transaction. Metadata fields the issuer did not report keep
// their stored value.
func (s *Store) ApplySync(ctx context.Context, meta models.AccountMetadata, txns []models.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	result, err := tx.ExecContext(ctx, `
		UPDATE credit_accounts
		SET last_statement_issue_date = COALESCE($1, last_statement_issue_date),
			last_statement_balance = COALESCE($2, last_statement_balance),
			next_payment_due_date = COALESCE($3, next_payment_due_date),
			balance_current = COALESCE($4, balance_current),
			balance_limit = COALESCE($5, balance_limit),
			sync_status = $6, sync_error_code = NULL, updated_at = $7
		WHERE id = $8`,
		nullDate(meta.LastStatementIssueDate), meta.LastStatementBalance, nullDate(meta.NextPaymentDueDate),
		meta.BalanceCurrent, meta.BalanceLimit, models.SyncStatusOK, now, meta.AccountID)
	if err != nil {
		return fmt.Errorf("updating account metadata: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return models.NewError(models.KindNotFound, "apply sync", meta.AccountID, sql.ErrNoRows)
	}

	for _, t := range txns {
		if t.AccountID != meta.AccountID {
			return models.NewError(models.KindDataIntegrity, "apply sync", meta.AccountID,
				fmt.Errorf("transaction %s belongs to account %s", t.ID, t.AccountID))
		}
		if err := upsertTransaction(ctx, tx, t, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func upsertTransaction(ctx context.Context, tx *sql.Tx, t models.Transaction, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, txn_date, amount, description, merchant_name, pending, category, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			txn_date = EXCLUDED.txn_date,
			amount = EXCLUDED.amount,
			description = EXCLUDED.description,
			merchant_name = EXCLUDED.merchant_name,
			pending = EXCLUDED.pending,
			category = EXCLUDED.category,
			updated_at = EXCLUDED.updated_at`,
		t.ID, t.AccountID, models.Day(t.Date), t.Amount, t.Description,
		nullString(t.MerchantName), t.Pending, nullString(t.Category), now)
	if err != nil {
		return fmt.Errorf("upserting transaction %s: %w", t.ID, err)
	}
	return nil
}

// MarkAccountError records a failed sync on the account.
func (s *Store) MarkAccountError(ctx context.Context, accountID, code string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE credit_accounts SET sync_status = $1, sync_error_code = $2, updated_at = $3
		WHERE id = $4`,
		models.SyncStatusError, code, s.now().UTC(), accountID)
	if err != nil {
		return fmt.Errorf("marking account %s: %w", accountID, err)
	}
	return nil
}

// ListCyclesForUser returns every stored cycle across the user's accounts,
// newest end date first.
func (s *Store) ListCyclesForUser(ctx context.Context, userID string) ([]models.BillingCycle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.account_id, c.start_date, c.end_date, c.total_spend,
			c.statement_balance, c.due_date, c.transaction_count, c.is_current
		FROM billing_cycles c
		JOIN credit_accounts a ON a.id = c.account_id
		WHERE a.user_id = $1
		ORDER BY c.end_date DESC, c.account_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cycles for user %s: %w", userID, err)
	}
	defer rows.Close()
	return scanCycles(rows)
}

func listTransactions(ctx context.Context, q queryer, accountID string) ([]models.Transaction, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+transactionColumns+`
		FROM transactions WHERE account_id = $1 ORDER BY txn_date, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for %s: %w", accountID, err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var (
			t                  models.Transaction
			merchant, category sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Date, &t.Amount, &t.Description, &merchant, &t.Pending, &category); err != nil {
			return nil, models.NewError(models.KindDataIntegrity, "scan transaction", accountID, err)
		}
		t.Date = models.Day(t.Date)
		t.MerchantName = merchant.String
		t.Category = category.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanCycles(rows *sql.Rows) ([]models.BillingCycle, error) {
	var out []models.BillingCycle
	for rows.Next() {
		var (
			c   models.BillingCycle
			due sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.AccountID, &c.StartDate, &c.EndDate, &c.TotalSpend,
			&c.StatementBalance, &due, &c.TransactionCount, &c.IsCurrent); err != nil {
			return nil, models.NewError(models.KindDataIntegrity, "scan cycle", "", err)
		}
		c.StartDate = models.Day(c.StartDate)
		c.EndDate = models.Day(c.EndDate)
		c.DueDate = datePtr(due)
		out = append(out, c)
	}
	return out, rows.Err()
}

func datePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	d := models.Day(t.Time)
	return &d
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: models.Day(*t), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// IsNotFound reports whether err is a missing-row error from the store.
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
