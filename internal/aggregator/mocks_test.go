package aggregator

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) ListTransactions(ctx context.Context, accountID string, start, end time.Time) ([]TransactionRecord, error) {
	args := m.Called(accountID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]TransactionRecord), args.Error(1)
}

func (m *MockClient) GetLiabilities(ctx context.Context, accountID string) (*LiabilityRecord, error) {
	args := m.Called(accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LiabilityRecord), args.Error(1)
}
