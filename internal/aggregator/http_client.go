package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusError is a non-2xx response from the aggregator.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("aggregator returned %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the aggregator asked us to slow down.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.RateLimited() || e.StatusCode >= 500
}

// HTTPClient calls the aggregator's JSON API.
type HTTPClient struct {
	baseURL  string
	clientID string
	secret   string
	http     *http.Client
}

func NewHTTPClient(baseURL, clientID, secret string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
		http:     &http.Client{Timeout: timeout},
	}
}

type listTransactionsRequest struct {
	ClientID  string `json:"client_id"`
	Secret    string `json:"secret"`
	AccountID string `json:"account_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type listTransactionsResponse struct {
	Transactions []TransactionRecord `json:"transactions"`
}

type liabilitiesRequest struct {
	ClientID  string `json:"client_id"`
	Secret    string `json:"secret"`
	AccountID string `json:"account_id"`
}

type liabilitiesResponse struct {
	Liability *LiabilityRecord `json:"liability"`
}

func (c *HTTPClient) ListTransactions(ctx context.Context, accountID string, start, end time.Time) ([]TransactionRecord, error) {
	req := listTransactionsRequest{
		ClientID:  c.clientID,
		Secret:    c.secret,
		AccountID: accountID,
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
	}
	var resp listTransactionsResponse
	if err := c.post(ctx, "/transactions/list", req, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (c *HTTPClient) GetLiabilities(ctx context.Context, accountID string) (*LiabilityRecord, error) {
	req := liabilitiesRequest{ClientID: c.clientID, Secret: c.secret, AccountID: accountID}
	var resp liabilitiesResponse
	if err := c.post(ctx, "/liabilities/get", req, &resp); err != nil {
		return nil, err
	}
	if resp.Liability == nil {
		return nil, fmt.Errorf("no liability in response for account %s", accountID)
	}
	return resp.Liability, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// DecodeError is a 2xx response whose body could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decoding aggregator response: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }
