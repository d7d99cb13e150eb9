package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cardcycle/backend/internal/aggregator"
	"github.com/cardcycle/backend/internal/config"
	"github.com/cardcycle/backend/internal/logger"
	"github.com/cardcycle/backend/internal/models"
	"github.com/rs/zerolog"
)

// CodeValidation is stored on an account whose upstream data failed validation.
const CodeValidation = "validation"

// AccountStore is the account and transaction side of the persistent store.
type AccountStore interface {
	GetAccount(ctx context.Context, accountID string) (*models.CreditAccount, error)
	ApplySync(ctx context.Context, meta models.AccountMetadata, txns []models.Transaction) error
	MarkAccountError(ctx context.Context, accountID, code string) error
}

// Fetcher pulls liabilities and transactions from the aggregator.
type Fetcher interface {
	FetchTransactions(ctx context.Context, accountID string, p aggregator.FetchPolicy, start, end time.Time) ([]aggregator.TransactionRecord, error)
	FetchLiabilities(ctx context.Context, accountID string, p aggregator.FetchPolicy) (*aggregator.LiabilityRecord, error)
}

// Repairer recomputes and persists an account's cycles.
type Repairer interface {
	Repair(ctx context.Context, accountID string, mode config.Mode) (*models.RepairReport, error)
}

// SyncService ingests upstream data for an account and then repairs its cycles.
type SyncService struct {
	store     AccountStore
	fetcher   Fetcher
	repairer  Repairer
	policies  *config.PolicyTable
	validator *ValidationHelper
	audit     *AuditLogger
	log       zerolog.Logger
	now       func() time.Time
}

func NewSyncService(store AccountStore, fetcher Fetcher, repairer Repairer, policies *config.PolicyTable,
	audit *AuditLogger, log zerolog.Logger) *SyncService {
	if audit == nil {
		audit = NewAuditLogger(log)
	}
	return &SyncService{
		store:     store,
		fetcher:   fetcher,
		repairer:  repairer,
		policies:  policies,
		validator: NewValidationHelper(),
		audit:     audit,
		log:       logger.Component(log, "sync"),
		now:       time.Now,
	}
}

// SyncAccount refreshes the account's metadata and transactions over the
// mode's lookback window, then repairs its cycles. A failed fetch or an
// invalid record marks the account and returns before anything is written.
func (s *SyncService) SyncAccount(ctx context.Context, accountID string, mode config.Mode) (*models.RepairReport, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, models.Validationf("sync account", "account id is required")
	}

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	policy := s.policies.Lookup(account.InstitutionID)
	fetchPolicy := aggregator.FetchPolicy{
		InstitutionID:     account.InstitutionID,
		BackoffBase:       policy.BackoffBase,
		RequestWindowDays: policy.RequestWindowDays,
	}
	today := models.Day(s.now())
	start := today.AddDate(0, -policy.LookbackMonths(mode), 0)

	log := s.log.With().
		Str("account_id", accountID).
		Str("institution_id", account.InstitutionID).
		Str("mode", string(mode)).
		Logger()

	liability, err := s.fetcher.FetchLiabilities(ctx, accountID, fetchPolicy)
	if err != nil {
		return nil, s.fail(ctx, log, accountID, models.CodeOf(err), err)
	}
	records, err := s.fetcher.FetchTransactions(ctx, accountID, fetchPolicy, start, today)
	if err != nil {
		return nil, s.fail(ctx, log, accountID, models.CodeOf(err), err)
	}

	meta, err := s.toMetadata(accountID, liability)
	if err != nil {
		return nil, s.fail(ctx, log, accountID, CodeValidation, err)
	}
	txns := make([]models.Transaction, 0, len(records))
	for _, rec := range records {
		txn, err := s.toTransaction(accountID, rec)
		if err != nil {
			return nil, s.fail(ctx, log, accountID, CodeValidation, err)
		}
		txns = append(txns, txn)
	}

	if err := s.store.ApplySync(ctx, meta, txns); err != nil {
		s.audit.LogError(accountID, "apply sync", err)
		return nil, err
	}
	log.Info().Int("transactions", len(txns)).Msg("Account synced")

	return s.repairer.Repair(ctx, accountID, mode)
}

func (s *SyncService) fail(ctx context.Context, log zerolog.Logger, accountID, code string, err error) error {
	if code == "" {
		code = aggregator.CodeUpstreamUnavailable
	}
	if markErr := s.store.MarkAccountError(ctx, accountID, code); markErr != nil {
		log.Error().Err(markErr).Msg("Failed to record sync error on account")
	}
	log.Warn().Err(err).Str("error_code", code).Msg("Account sync failed, stored cycles left untouched")
	s.audit.LogError(accountID, "sync", err)
	return err
}

// toMetadata validates a liability record and normalises the statement
// balance to a non-negative owed amount.
func (s *SyncService) toMetadata(accountID string, rec *aggregator.LiabilityRecord) (models.AccountMetadata, error) {
	if rec == nil {
		return models.AccountMetadata{}, models.Validationf("map liabilities", "no liability record for account %s", accountID)
	}
	if err := s.validator.ValidateStruct(rec); err != nil {
		return models.AccountMetadata{}, models.NewError(models.KindValidation, "map liabilities", accountID, err)
	}
	if rec.AccountID != accountID {
		return models.AccountMetadata{}, models.Validationf("map liabilities", "liability for account %s returned for %s", rec.AccountID, accountID)
	}

	meta := models.AccountMetadata{
		AccountID:      accountID,
		BalanceCurrent: rec.BalanceCurrent,
		BalanceLimit:   rec.BalanceLimit,
	}
	if rec.LastStatementBalance.Valid {
		meta.LastStatementBalance = rec.LastStatementBalance
		meta.LastStatementBalance.Decimal = rec.LastStatementBalance.Decimal.Abs()
	}
	var err error
	if meta.LastStatementIssueDate, err = optionalDate(rec.LastStatementIssueDate); err != nil {
		return models.AccountMetadata{}, models.NewError(models.KindValidation, "map liabilities", accountID, err)
	}
	if meta.NextPaymentDueDate, err = optionalDate(rec.NextPaymentDueDate); err != nil {
		return models.AccountMetadata{}, models.NewError(models.KindValidation, "map liabilities", accountID, err)
	}
	return meta, nil
}

func (s *SyncService) toTransaction(accountID string, rec aggregator.TransactionRecord) (models.Transaction, error) {
	if err := s.validator.ValidateStruct(&rec); err != nil {
		return models.Transaction{}, models.NewError(models.KindValidation, "map transaction", accountID,
			fmt.Errorf("transaction %q: %w", rec.ID, err))
	}
	if rec.AccountID != accountID {
		return models.Transaction{}, models.Validationf("map transaction",
			"transaction %s belongs to account %s, not %s", rec.ID, rec.AccountID, accountID)
	}
	date, err := models.ParseDate(rec.Date)
	if err != nil {
		return models.Transaction{}, models.NewError(models.KindValidation, "map transaction", accountID, err)
	}
	return models.Transaction{
		ID:           rec.ID,
		AccountID:    accountID,
		Date:         date,
		Amount:       rec.Amount,
		Description:  rec.Description(),
		MerchantName: rec.MerchantName,
		Pending:      rec.Pending,
		Category:     strings.Join(rec.Category, " > "),
	}, nil
}

func optionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
