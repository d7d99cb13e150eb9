package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/cardcycle/backend/internal/aggregator"
	"github.com/cardcycle/backend/internal/config"
	"github.com/cardcycle/backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSyncService(store *memStore, fetcher *MockFetcher, repairer Repairer) *SyncService {
	log := zerolog.New(io.Discard)
	svc := NewSyncService(store, fetcher, repairer, testPolicies(), NewAuditLogger(log), log)
	svc.now = func() time.Time { return testToday.Add(9 * time.Hour) }
	return svc
}

func liabilityFor(accountID string) *aggregator.LiabilityRecord {
	return &aggregator.LiabilityRecord{
		AccountID:              accountID,
		LastStatementBalance:   decimal.NewNullDecimal(money("-1462.84")),
		LastStatementIssueDate: "2025-08-05",
		NextPaymentDueDate:     "2025-09-01",
		BalanceCurrent:         decimal.NewNullDecimal(money("1617.84")),
		BalanceLimit:           decimal.NewNullDecimal(money("5000")),
	}
}

func TestSyncService_SyncAccount(t *testing.T) {
	store := newMemStore()
	store.putAccount(models.CreditAccount{ID: "acc_1", UserID: "user_1", InstitutionID: "ins_chase"})
	fetcher := &MockFetcher{}
	repairer := &MockRepairer{}
	svc := newTestSyncService(store, fetcher, repairer)

	wantPolicy := aggregator.FetchPolicy{InstitutionID: "ins_chase", BackoffBase: time.Second, RequestWindowDays: 90}
	fetcher.On("FetchLiabilities", "acc_1", wantPolicy).Return(liabilityFor("acc_1"), nil)
	fetcher.On("FetchTransactions", "acc_1", wantPolicy, models.Date(2025, 5, 20), testToday).
		Return([]aggregator.TransactionRecord{
			{ID: "t1", AccountID: "acc_1", Amount: money("40.00"), Date: "2025-07-20", Name: "GROCER", Category: []string{"Food", "Groceries"}},
			{ID: "t2", AccountID: "acc_1", Amount: money("12.00"), Date: "2025-08-10", MerchantName: "Corner Deli", Pending: true},
		}, nil)
	report := &models.RepairReport{AccountID: "acc_1", Inserted: 2}
	repairer.On("Repair", "acc_1", config.ModePreview).Return(report, nil)

	got, err := svc.SyncAccount(context.Background(), "acc_1", config.ModePreview)
	require.NoError(t, err)
	assert.Same(t, report, got)

	account := store.account("acc_1")
	require.True(t, account.LastStatementBalance.Valid)
	assert.Equal(t, "1462.84", account.LastStatementBalance.Decimal.StringFixed(2))
	require.NotNil(t, account.LastStatementIssueDate)
	assert.Equal(t, models.Date(2025, 8, 5), *account.LastStatementIssueDate)
	assert.Equal(t, models.SyncStatusOK, account.SyncStatus)

	txns := store.transactions["acc_1"]
	require.Len(t, txns, 2)
	assert.Equal(t, "Food > Groceries", txns[0].Category)
	assert.Equal(t, "Corner Deli", txns[1].Description)
	assert.True(t, txns[1].Pending)

	fetcher.AssertExpectations(t)
	repairer.AssertExpectations(t)
}

func TestSyncService_SyncAccountReingestsIdempotently(t *testing.T) {
	store := newMemStore()
	store.putAccount(models.CreditAccount{ID: "acc_1", InstitutionID: "ins_chase"})
	fetcher := &MockFetcher{}
	repairer := &MockRepairer{}
	svc := newTestSyncService(store, fetcher, repairer)

	fetcher.On("FetchLiabilities", "acc_1", mock.Anything).Return(liabilityFor("acc_1"), nil)
	fetcher.On("FetchTransactions", "acc_1", mock.Anything, mock.Anything, mock.Anything).
		Return([]aggregator.TransactionRecord{
			{ID: "t1", AccountID: "acc_1", Amount: money("40.00"), Date: "2025-07-20", Name: "GROCER", Pending: true},
		}, nil).Once()
	fetcher.On("FetchTransactions", "acc_1", mock.Anything, mock.Anything, mock.Anything).
		Return([]aggregator.TransactionRecord{
			{ID: "t1", AccountID: "acc_1", Amount: money("40.00"), Date: "2025-07-20", Name: "GROCER"},
		}, nil).Once()
	repairer.On("Repair", "acc_1", config.ModeBackfill).Return(&models.RepairReport{}, nil)

	for i := 0; i < 2; i++ {
		_, err := svc.SyncAccount(context.Background(), "acc_1", config.ModeBackfill)
		require.NoError(t, err)
	}

	txns := store.transactions["acc_1"]
	require.Len(t, txns, 1)
	assert.False(t, txns[0].Pending)
}

func TestSyncService_FetchFailureLeavesCyclesUntouched(t *testing.T) {
	store := newMemStore()
	account := seedStatementAccount(store)
	store.putCycles(account.ID, models.BillingCycle{ID: "c-1", StartDate: models.Date(2025, 7, 12), EndDate: models.Date(2025, 8, 5), TotalSpend: money("1462.84")})
	fetcher := &MockFetcher{}
	repairer := &MockRepairer{}
	svc := newTestSyncService(store, fetcher, repairer)

	upstream := models.NewError(models.KindUpstreamFetch, "list transactions", account.ID, errors.New("429"))
	upstream.Code = aggregator.CodeRateLimited
	fetcher.On("FetchLiabilities", account.ID, mock.Anything).Return(liabilityFor(account.ID), nil)
	fetcher.On("FetchTransactions", account.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil, upstream)

	_, err := svc.SyncAccount(context.Background(), account.ID, config.ModeBackfill)
	assert.ErrorIs(t, err, models.ErrUpstreamFetch)

	assert.Equal(t, aggregator.CodeRateLimited, store.markedErrors[account.ID])
	assert.Equal(t, models.SyncStatusError, store.account(account.ID).SyncStatus)
	assert.Zero(t, store.syncs)
	assert.Len(t, store.storedCycles(account.ID), 1)
	repairer.AssertNotCalled(t, "Repair", mock.Anything, mock.Anything)
}

func TestSyncService_InvalidRecordsAbortBeforeWriting(t *testing.T) {
	tests := []struct {
		name      string
		liability *aggregator.LiabilityRecord
		records   []aggregator.TransactionRecord
	}{
		{
			name:      "malformed transaction date",
			liability: liabilityFor("acc_1"),
			records:   []aggregator.TransactionRecord{{ID: "t1", AccountID: "acc_1", Date: "20/07/2025", Amount: money("1")}},
		},
		{
			name:      "transaction without id",
			liability: liabilityFor("acc_1"),
			records:   []aggregator.TransactionRecord{{AccountID: "acc_1", Date: "2025-07-20", Amount: money("1")}},
		},
		{
			name:      "transaction for another account",
			liability: liabilityFor("acc_1"),
			records:   []aggregator.TransactionRecord{{ID: "t1", AccountID: "acc_9", Date: "2025-07-20", Amount: money("1")}},
		},
		{
			name:      "liability for another account",
			liability: liabilityFor("acc_9"),
		},
		{
			name: "malformed statement date",
			liability: &aggregator.LiabilityRecord{
				AccountID:              "acc_1",
				LastStatementIssueDate: "Aug 5",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.putAccount(models.CreditAccount{ID: "acc_1", InstitutionID: "ins_chase"})
			fetcher := &MockFetcher{}
			repairer := &MockRepairer{}
			svc := newTestSyncService(store, fetcher, repairer)

			fetcher.On("FetchLiabilities", "acc_1", mock.Anything).Return(tt.liability, nil)
			fetcher.On("FetchTransactions", "acc_1", mock.Anything, mock.Anything, mock.Anything).Return(tt.records, nil)

			_, err := svc.SyncAccount(context.Background(), "acc_1", config.ModeBackfill)
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.Equal(t, CodeValidation, store.markedErrors["acc_1"])
			assert.Zero(t, store.syncs)
			repairer.AssertNotCalled(t, "Repair", mock.Anything, mock.Anything)
		})
	}
}

func TestSyncService_UnknownAccount(t *testing.T) {
	svc := newTestSyncService(newMemStore(), &MockFetcher{}, &MockRepairer{})

	_, err := svc.SyncAccount(context.Background(), "missing", config.ModeBackfill)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.SyncAccount(context.Background(), "", config.ModeBackfill)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSyncService_EndToEndWithRepair(t *testing.T) {
	store := newMemStore()
	store.putAccount(models.CreditAccount{ID: "acc_1", UserID: "user_1", InstitutionID: "ins_chase", OpenDate: day(2025, 1, 1)})
	fetcher := &MockFetcher{}
	repairer := newTestRepairService(store)
	svc := newTestSyncService(store, fetcher, repairer)

	fetcher.On("FetchLiabilities", "acc_1", mock.Anything).Return(liabilityFor("acc_1"), nil)
	fetcher.On("FetchTransactions", "acc_1", mock.Anything, mock.Anything, mock.Anything).
		Return([]aggregator.TransactionRecord{
			{ID: "t1", AccountID: "acc_1", Amount: money("-1000.00"), Date: "2025-07-28", Name: "Payment Thank You-Mobile"},
			{ID: "t2", AccountID: "acc_1", Amount: money("80.00"), Date: "2025-06-30", Name: "HARDWARE STORE"},
		}, nil)

	report, err := svc.SyncAccount(context.Background(), "acc_1", config.ModeBackfill)
	require.NoError(t, err)
	assert.Equal(t, 9, report.Inserted)

	stored := store.storedCycles("acc_1")
	require.Len(t, stored, 9)
	assert.Equal(t, "155.00", stored[0].TotalSpend.StringFixed(2))
	assert.Equal(t, "1462.84", stored[1].TotalSpend.StringFixed(2))
	assert.Equal(t, "80.00", stored[2].TotalSpend.StringFixed(2))
}
