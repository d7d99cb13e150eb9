package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cardcycle/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_ListTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/list", r.URL.Path)
		var req listTransactionsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "acc_1", req.AccountID)
		assert.Equal(t, "2025-07-01", req.StartDate)
		assert.Equal(t, "2025-07-31", req.EndDate)
		assert.Equal(t, "client", req.ClientID)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"transactions":[{"id":"t1","account_id":"acc_1","amount":12.5,"date":"2025-07-03","pending":false,"name":"COFFEE","merchant_name":"Blue Bottle","category":["Food","Coffee"]}]}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "client", "secret", time.Second)
	records, err := c.ListTransactions(context.Background(), "acc_1", models.Date(2025, 7, 1), models.Date(2025, 7, 31))

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "12.50", records[0].Amount.StringFixed(2))
	assert.Equal(t, []string{"Food", "Coffee"}, records[0].Category)
}

func TestHTTPClient_GetLiabilities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/liabilities/get", r.URL.Path)
		w.Write([]byte(`{"liability":{"account_id":"acc_1","last_statement_balance":1462.84,"last_statement_issue_date":"2025-08-05","next_payment_due_date":"2025-09-01","balance_current":null}}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "client", "secret", time.Second)
	rec, err := c.GetLiabilities(context.Background(), "acc_1")

	require.NoError(t, err)
	assert.True(t, rec.LastStatementBalance.Valid)
	assert.Equal(t, "1462.84", rec.LastStatementBalance.Decimal.StringFixed(2))
	assert.False(t, rec.BalanceCurrent.Valid)
	assert.Equal(t, "2025-08-05", rec.LastStatementIssueDate)
}

func TestHTTPClient_StatusErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "client", "secret", time.Second)
	_, err := c.GetLiabilities(context.Background(), "acc_1")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.RateLimited())
	assert.True(t, se.Retryable())
}

func TestHTTPClient_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "client", "secret", time.Second)
	_, err := c.ListTransactions(context.Background(), "acc_1", models.Date(2025, 7, 1), models.Date(2025, 7, 31))

	var de *DecodeError
	assert.True(t, errors.As(err, &de))
}
