package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cardcycle/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountRowColumns = []string{
	"id", "user_id", "institution_id", "institution_name", "open_date", "open_date_inferred",
	"last_statement_issue_date", "last_statement_balance", "next_payment_due_date",
	"balance_current", "balance_limit", "sync_status", "sync_error_code", "updated_at",
}

var cycleRowColumns = []string{
	"id", "account_id", "start_date", "end_date", "total_spend", "statement_balance", "due_date", "transaction_count", "is_current",
}

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewStore(db)
	store.now = func() time.Time { return time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC) }
	return store, mock
}

func accountRow() *sqlmock.Rows {
	return sqlmock.NewRows(accountRowColumns).AddRow(
		"acc_1", "user_1", "ins_chase", "Chase", nil, false,
		models.Date(2025, 8, 5), "1462.84", models.Date(2025, 9, 1),
		"-1617.84", "5000.00", "ok", nil, time.Now(),
	)
}

func TestStore_GetAccount(t *testing.T) {
	store, mock := newTestStore(t)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM credit_accounts WHERE id = \\$1").
			WithArgs("acc_1").
			WillReturnRows(accountRow())

		account, err := store.GetAccount(context.Background(), "acc_1")
		require.NoError(t, err)
		assert.Equal(t, "user_1", account.UserID)
		assert.Nil(t, account.OpenDate)
		require.NotNil(t, account.LastStatementIssueDate)
		assert.Equal(t, "2025-08-05", account.LastStatementIssueDate.Format(models.DateLayout))
		assert.True(t, account.LastStatementBalance.Valid)
		assert.Equal(t, "1462.84", account.LastStatementBalance.Decimal.StringFixed(2))
		assert.Equal(t, "-1617.84", account.BalanceCurrent.Decimal.StringFixed(2))
		assert.Equal(t, "", account.SyncErrorCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM credit_accounts WHERE id = \\$1").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(accountRowColumns))

		_, err := store.GetAccount(context.Background(), "missing")
		assert.True(t, IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null required column is a data integrity error", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM credit_accounts WHERE id = \\$1").
			WithArgs("acc_1").
			WillReturnRows(sqlmock.NewRows(accountRowColumns).AddRow(
				"acc_1", nil, "ins_chase", "Chase", nil, false, nil, nil, nil, nil, nil, "ok", nil, time.Now()))

		_, err := store.GetAccount(context.Background(), "acc_1")
		assert.True(t, errors.Is(err, models.ErrDataIntegrity))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_ListAccountIDs(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT id FROM credit_accounts ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("acc_1").AddRow("acc_2"))

	ids, err := store.ListAccountIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"acc_1", "acc_2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ApplySync(t *testing.T) {
	stmt := models.Date(2025, 8, 5)
	meta := models.AccountMetadata{
		AccountID:              "acc_1",
		LastStatementIssueDate: &stmt,
		LastStatementBalance:   decimal.NewNullDecimal(decimal.RequireFromString("1462.84")),
	}
	txns := []models.Transaction{
		{ID: "t1", AccountID: "acc_1", Date: models.Date(2025, 8, 10), Amount: decimal.RequireFromString("45.00"), Description: "PHARMACY"},
		{ID: "t2", AccountID: "acc_1", Date: models.Date(2025, 8, 11), Amount: decimal.RequireFromString("-500.00"), Description: "PAYMENT", Pending: true},
	}

	t.Run("updates metadata and upserts transactions", func(t *testing.T) {
		store, mock := newTestStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE credit_accounts SET last_statement_issue_date = COALESCE").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				models.SyncStatusOK, sqlmock.AnyArg(), "acc_1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")+"(.+)ON CONFLICT \\(id\\) DO UPDATE").
			WithArgs("t1", "acc_1", models.Date(2025, 8, 10), sqlmock.AnyArg(), "PHARMACY", sqlmock.AnyArg(), false, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
			WithArgs("t2", "acc_1", models.Date(2025, 8, 11), sqlmock.AnyArg(), "PAYMENT", sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, store.ApplySync(context.Background(), meta, txns))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account rolls back", func(t *testing.T) {
		store, mock := newTestStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE credit_accounts").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.ApplySync(context.Background(), meta, txns)
		assert.True(t, IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign transaction rolls back", func(t *testing.T) {
		store, mock := newTestStore(t)
		foreign := []models.Transaction{{ID: "tx", AccountID: "acc_2", Date: models.Date(2025, 8, 1), Amount: decimal.NewFromInt(1)}}

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE credit_accounts").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		err := store.ApplySync(context.Background(), meta, foreign)
		assert.True(t, errors.Is(err, models.ErrDataIntegrity))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_MarkAccountError(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("UPDATE credit_accounts SET sync_status = \\$1, sync_error_code = \\$2").
		WithArgs(models.SyncStatusError, "rate_limited", sqlmock.AnyArg(), "acc_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.MarkAccountError(context.Background(), "acc_1", "rate_limited"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListCyclesForUser(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("FROM billing_cycles c JOIN credit_accounts a ON a.id = c.account_id WHERE a.user_id = \\$1 ORDER BY c.end_date DESC").
		WithArgs("user_1").
		WillReturnRows(sqlmock.NewRows(cycleRowColumns).
			AddRow("c1", "acc_1", models.Date(2025, 8, 6), models.Date(2025, 8, 20), "155.00", nil, nil, 1, true).
			AddRow("c2", "acc_1", models.Date(2025, 7, 12), models.Date(2025, 8, 5), "1462.84", "1462.84", models.Date(2025, 9, 1), 4, false))

	cycles, err := store.ListCyclesForUser(context.Background(), "user_1")
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	assert.Equal(t, "c1", cycles[0].ID)
	assert.True(t, cycles[0].IsCurrent)
	assert.False(t, cycles[1].IsCurrent)
	assert.False(t, cycles[0].StatementBalance.Valid)
	assert.Nil(t, cycles[0].DueDate)
	assert.Equal(t, "1462.84", cycles[1].StatementBalance.Decimal.StringFixed(2))
	require.NotNil(t, cycles[1].DueDate)
	assert.Equal(t, 4, cycles[1].TransactionCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
