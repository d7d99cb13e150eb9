package aggregator

import (
	"context"
	"errors"
	"time"

	"github.com/cardcycle/backend/internal/logger"
	"github.com/cardcycle/backend/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Error codes recorded on an account after a failed fetch.
const (
	CodeRateLimited         = "rate_limited"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeUpstreamRejected    = "upstream_rejected"
	CodeInvalidResponse     = "invalid_response"
)

// FetchPolicy is the institution-specific pacing of upstream calls.
type FetchPolicy struct {
	InstitutionID     string
	BackoffBase       time.Duration
	RequestWindowDays int
}

// Fetcher paces, chunks and retries calls to a Client. Failures come back
// as models.Error values of kind upstream_fetch carrying an error code.
type Fetcher struct {
	client      Client
	limiter     *rate.Limiter
	cooldown    Cooldown
	maxAttempts int
	log         zerolog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewFetcher wraps client. interval is the minimum delay between requests;
// zero disables pacing. cooldown may be nil.
func NewFetcher(client Client, interval time.Duration, maxAttempts int, cooldown Cooldown, log zerolog.Logger) *Fetcher {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Fetcher{
		client:      client,
		limiter:     rate.NewLimiter(limit, 1),
		cooldown:    cooldown,
		maxAttempts: maxAttempts,
		log:         logger.Component(log, "fetcher"),
		sleep:       sleepContext,
	}
}

// FetchTransactions lists the account's transactions dated start..end,
// splitting the range into request windows. Records are de-duplicated by id.
func (f *Fetcher) FetchTransactions(ctx context.Context, accountID string, p FetchPolicy, start, end time.Time) ([]TransactionRecord, error) {
	window := p.RequestWindowDays
	if window <= 0 {
		window = 90
	}

	seen := make(map[string]bool)
	var out []TransactionRecord
	for from := models.Day(start); !from.After(models.Day(end)); from = models.AddDays(from, window) {
		to := models.AddDays(from, window-1)
		if to.After(models.Day(end)) {
			to = models.Day(end)
		}

		var page []TransactionRecord
		err := f.call(ctx, accountID, p, "list transactions", func(ctx context.Context) error {
			var err error
			page, err = f.client.ListTransactions(ctx, accountID, from, to)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, r := range page {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	return out, nil
}

// FetchLiabilities returns the account's liability snapshot.
func (f *Fetcher) FetchLiabilities(ctx context.Context, accountID string, p FetchPolicy) (*LiabilityRecord, error) {
	var rec *LiabilityRecord
	err := f.call(ctx, accountID, p, "get liabilities", func(ctx context.Context) error {
		var err error
		rec, err = f.client.GetLiabilities(ctx, accountID)
		return err
	})
	return rec, err
}

func (f *Fetcher) call(ctx context.Context, accountID string, p FetchPolicy, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := f.waitCooldown(ctx, p.InstitutionID); err != nil {
			return upstreamError(op, accountID, err)
		}
		if err := f.limiter.Wait(ctx); err != nil {
			return upstreamError(op, accountID, err)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}

		backoff := p.BackoffBase << (attempt - 1)
		var se *StatusError
		if errors.As(err, &se) && se.RateLimited() && f.cooldown != nil {
			if cerr := f.cooldown.Set(ctx, p.InstitutionID, backoff); cerr != nil {
				f.log.Warn().Err(cerr).Str("institution_id", p.InstitutionID).Msg("Failed to record cooldown")
			}
		}
		if attempt == f.maxAttempts {
			break
		}

		f.log.Warn().Err(err).
			Str("account_id", accountID).
			Str("institution_id", p.InstitutionID).
			Str("op", op).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Upstream call failed, retrying")
		if err := f.sleep(ctx, backoff); err != nil {
			return upstreamError(op, accountID, err)
		}
	}
	return upstreamError(op, accountID, lastErr)
}

func (f *Fetcher) waitCooldown(ctx context.Context, institutionID string) error {
	if f.cooldown == nil {
		return nil
	}
	wait, err := f.cooldown.Remaining(ctx, institutionID)
	if err != nil {
		f.log.Warn().Err(err).Str("institution_id", institutionID).Msg("Cooldown lookup failed")
		return nil
	}
	if wait <= 0 {
		return nil
	}
	return f.sleep(ctx, wait)
}

func upstreamError(op, accountID string, err error) error {
	e := models.NewError(models.KindUpstreamFetch, op, accountID, err)
	e.Code = errorCode(err)
	return e
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var de *DecodeError
	return !errors.As(err, &de)
}

func errorCode(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.RateLimited():
			return CodeRateLimited
		case se.StatusCode >= 500:
			return CodeUpstreamUnavailable
		default:
			return CodeUpstreamRejected
		}
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return CodeInvalidResponse
	}
	return CodeUpstreamUnavailable
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
