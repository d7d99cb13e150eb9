package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cardcycle/backend/internal/models"
	"github.com/go-redis/redis/v8"
)

// ReportCache keeps the last repair report per account in Redis. A nil
// client turns Put into a no-op and Get into a not-found.
type ReportCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{redis: client, ttl: ttl}
}

func reportKey(accountID string) string {
	return "cycles:report:" + accountID
}

// Put stores the report, replacing any earlier one.
func (c *ReportCache) Put(ctx context.Context, report *models.RepairReport) error {
	if c == nil || c.redis == nil {
		return nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding repair report: %w", err)
	}
	return c.redis.Set(ctx, reportKey(report.AccountID), data, c.ttl).Err()
}

// Get returns the last stored report for the account.
func (c *ReportCache) Get(ctx context.Context, accountID string) (*models.RepairReport, error) {
	if c == nil || c.redis == nil {
		return nil, models.NewError(models.KindNotFound, "get repair report", accountID, nil)
	}
	data, err := c.redis.Get(ctx, reportKey(accountID)).Bytes()
	if err == redis.Nil {
		return nil, models.NewError(models.KindNotFound, "get repair report", accountID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("reading repair report: %w", err)
	}

	var report models.RepairReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, models.NewError(models.KindDataIntegrity, "decode repair report", accountID, err)
	}
	return &report, nil
}
