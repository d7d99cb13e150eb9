package services

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/cardcycle/backend/internal/config"
	"github.com/cardcycle/backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Sweep(t *testing.T) {
	store := newMemStore()
	for _, id := range []string{"acc_1", "acc_2", "acc_3"} {
		store.putAccount(models.CreditAccount{ID: id})
	}
	syncer := &MockSyncer{}
	syncer.On("SyncAccount", "acc_1", config.ModeBackfill).Return(&models.RepairReport{}, nil)
	syncer.On("SyncAccount", "acc_2", config.ModeBackfill).Return(nil, errors.New("upstream down"))
	syncer.On("SyncAccount", "acc_3", config.ModeBackfill).Return(&models.RepairReport{}, nil)

	s := NewScheduler(store, syncer, 2, zerolog.New(io.Discard))
	result, err := s.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SweepResult{Accounts: 3, Failed: 1}, result)
	syncer.AssertExpectations(t)
}

func TestScheduler_SweepWithNoAccounts(t *testing.T) {
	s := NewScheduler(newMemStore(), &MockSyncer{}, 0, zerolog.New(io.Discard))
	result, err := s.Sweep(context.Background())

	require.NoError(t, err)
	assert.Zero(t, result.Accounts)
}
