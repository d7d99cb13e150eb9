package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cardcycle/backend/internal/aggregator"
	"github.com/cardcycle/backend/internal/config"
	"github.com/cardcycle/backend/internal/database"
	"github.com/cardcycle/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory stand-in for database.Store. WithAccountLock works
// on a snapshot and publishes it only when fn succeeds; it does not serialise
// callers, so the service's own locking is what keeps writes apart.
type memStore struct {
	mu           sync.Mutex
	accounts     map[string]models.CreditAccount
	transactions map[string][]models.Transaction
	cycles       map[string][]models.BillingCycle
	failInsert   error
	markedErrors map[string]string
	syncs        int
}

func newMemStore() *memStore {
	return &memStore{
		accounts:     make(map[string]models.CreditAccount),
		transactions: make(map[string][]models.Transaction),
		cycles:       make(map[string][]models.BillingCycle),
		markedErrors: make(map[string]string),
	}
}

func (m *memStore) putAccount(a models.CreditAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
}

func (m *memStore) putTransactions(accountID string, txns ...models.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[accountID] = append(m.transactions[accountID], txns...)
}

func (m *memStore) putCycles(accountID string, cs ...models.BillingCycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cs {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		c.AccountID = accountID
		m.cycles[accountID] = append(m.cycles[accountID], c)
	}
}

func (m *memStore) storedCycles(accountID string) []models.BillingCycle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.BillingCycle(nil), m.cycles[accountID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.After(out[j].EndDate) })
	return out
}

func (m *memStore) account(accountID string) models.CreditAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[accountID]
}

func (m *memStore) WithAccountLock(ctx context.Context, accountID string, fn func(database.AccountTx) error) error {
	m.mu.Lock()
	account, ok := m.accounts[accountID]
	tx := &memTx{
		store:   m,
		account: account,
		found:   ok,
		txns:    append([]models.Transaction(nil), m.transactions[accountID]...),
		cycles:  append([]models.BillingCycle(nil), m.cycles[accountID]...),
	}
	m.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[accountID] = tx.account
	m.cycles[accountID] = tx.cycles
	return nil
}

func (m *memStore) GetAccount(ctx context.Context, accountID string) (*models.CreditAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return nil, models.NewError(models.KindNotFound, "get account", accountID, nil)
	}
	return &a, nil
}

func (m *memStore) ApplySync(ctx context.Context, meta models.AccountMetadata, txns []models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[meta.AccountID]
	if !ok {
		return models.NewError(models.KindNotFound, "apply sync", meta.AccountID, nil)
	}
	if meta.LastStatementIssueDate != nil {
		a.LastStatementIssueDate = meta.LastStatementIssueDate
	}
	if meta.LastStatementBalance.Valid {
		a.LastStatementBalance = meta.LastStatementBalance
	}
	if meta.NextPaymentDueDate != nil {
		a.NextPaymentDueDate = meta.NextPaymentDueDate
	}
	if meta.BalanceCurrent.Valid {
		a.BalanceCurrent = meta.BalanceCurrent
	}
	if meta.BalanceLimit.Valid {
		a.BalanceLimit = meta.BalanceLimit
	}
	a.SyncStatus = models.SyncStatusOK
	a.SyncErrorCode = ""
	m.accounts[a.ID] = a

	byID := make(map[string]int)
	existing := m.transactions[a.ID]
	for i, t := range existing {
		byID[t.ID] = i
	}
	for _, t := range txns {
		if i, ok := byID[t.ID]; ok {
			existing[i] = t
			continue
		}
		byID[t.ID] = len(existing)
		existing = append(existing, t)
	}
	m.transactions[a.ID] = existing
	m.syncs++
	return nil
}

func (m *memStore) MarkAccountError(ctx context.Context, accountID, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markedErrors[accountID] = code
	if a, ok := m.accounts[accountID]; ok {
		a.SyncStatus = models.SyncStatusError
		a.SyncErrorCode = code
		m.accounts[accountID] = a
	}
	return nil
}

func (m *memStore) ListAccountIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type memTx struct {
	store   *memStore
	account models.CreditAccount
	found   bool
	txns    []models.Transaction
	cycles  []models.BillingCycle
}

func (t *memTx) Account(ctx context.Context) (*models.CreditAccount, error) {
	if !t.found {
		return nil, models.NewError(models.KindNotFound, "get account", t.account.ID, nil)
	}
	a := t.account
	return &a, nil
}

func (t *memTx) Transactions(ctx context.Context) ([]models.Transaction, error) {
	return append([]models.Transaction(nil), t.txns...), nil
}

func (t *memTx) Cycles(ctx context.Context) ([]models.BillingCycle, error) {
	return append([]models.BillingCycle(nil), t.cycles...), nil
}

func (t *memTx) SetOpenDate(ctx context.Context, openDate time.Time) error {
	d := models.Day(openDate)
	t.account.OpenDate = &d
	t.account.OpenDateInferred = true
	return nil
}

func (t *memTx) InsertCycle(ctx context.Context, cycle *models.BillingCycle) error {
	if t.store.failInsert != nil {
		return t.store.failInsert
	}
	for _, c := range t.cycles {
		if c.Key() == cycle.Key() {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	if cycle.ID == "" {
		cycle.ID = uuid.New().String()
	}
	t.cycles = append(t.cycles, *cycle)
	return nil
}

func (t *memTx) UpdateCycle(ctx context.Context, cycle models.BillingCycle) error {
	for i, c := range t.cycles {
		if c.ID == cycle.ID {
			t.cycles[i] = cycle
			return nil
		}
	}
	return models.NewError(models.KindDataIntegrity, "update cycle", t.account.ID, errors.New("cycle not found"))
}

func (t *memTx) DeleteCycle(ctx context.Context, cycleID string) error {
	for i, c := range t.cycles {
		if c.ID == cycleID {
			t.cycles = append(t.cycles[:i], t.cycles[i+1:]...)
			return nil
		}
	}
	return nil
}

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchTransactions(ctx context.Context, accountID string, p aggregator.FetchPolicy, start, end time.Time) ([]aggregator.TransactionRecord, error) {
	args := m.Called(accountID, p, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]aggregator.TransactionRecord), args.Error(1)
}

func (m *MockFetcher) FetchLiabilities(ctx context.Context, accountID string, p aggregator.FetchPolicy) (*aggregator.LiabilityRecord, error) {
	args := m.Called(accountID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aggregator.LiabilityRecord), args.Error(1)
}

type MockRepairer struct {
	mock.Mock
}

func (m *MockRepairer) Repair(ctx context.Context, accountID string, mode config.Mode) (*models.RepairReport, error) {
	args := m.Called(accountID, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RepairReport), args.Error(1)
}

type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) SyncAccount(ctx context.Context, accountID string, mode config.Mode) (*models.RepairReport, error) {
	args := m.Called(accountID, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RepairReport), args.Error(1)
}
