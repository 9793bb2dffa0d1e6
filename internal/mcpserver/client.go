package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mbd888/gavel/internal/retry"
)

// Config holds the configuration for connecting to the Gavel platform.
type Config struct {
	APIURL       string // Base URL, e.g. "http://localhost:8080"
	APIKey       string // API key, e.g. "gk_..."
	AgentAddress string // Agent's address, e.g. "0x..."
}

// GavelClient is a pure HTTP client for the Gavel platform API.
type GavelClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewGavelClient creates a new client for the Gavel platform.
func NewGavelClient(cfg Config) *GavelClient {
	return &GavelClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the platform.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the platform and returns the response body.
// GET requests are retried on transient failures; anything that mutates
// state (bids, withdrawals) gets exactly one attempt.
func (c *GavelClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var data []byte
	if body != nil {
		data, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts = 3
	}

	var result json.RawMessage
	err = retry.Do(ctx, attempts, 200*time.Millisecond, func() error {
		var reqBody io.Reader
		if data != nil {
			reqBody = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}

		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			var apiErr apiError
			reqErr := fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
				reqErr = fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
			}
			if resp.StatusCode < 500 {
				return retry.Permanent(reqErr)
			}
			return reqErr
		}

		result = json.RawMessage(respBody)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ListAuctions lists auctions, optionally filtered by status.
func (c *GavelClient) ListAuctions(ctx context.Context, status string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/auctions", q, nil)
}

// GetAuction returns one auction by ID.
func (c *GavelClient) GetAuction(ctx context.Context, id string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/auctions/"+id, nil, nil)
}

// GetRefundable returns the agent's withdrawable amount for an auction.
func (c *GavelClient) GetRefundable(ctx context.Context, auctionID string) (json.RawMessage, error) {
	path := "/v1/auctions/" + auctionID + "/refundable/" + c.cfg.AgentAddress
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}

// CreateAuction registers a new auction for one of the agent's assets.
func (c *GavelClient) CreateAuction(ctx context.Context, assetID, startingPrice string) (json.RawMessage, error) {
	body := map[string]string{
		"assetId":       assetID,
		"seller":        c.cfg.AgentAddress,
		"startingPrice": startingPrice,
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/auctions", nil, body)
}

// StartAuction opens the bidding window on an auction the agent created.
func (c *GavelClient) StartAuction(ctx context.Context, auctionID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/auctions/"+auctionID+"/start", nil, nil)
}

// PlaceBid submits a bid on a live auction.
func (c *GavelClient) PlaceBid(ctx context.Context, auctionID, amount string) (json.RawMessage, error) {
	body := map[string]string{"amount": amount}
	return c.doRequest(ctx, http.MethodPost, "/v1/auctions/"+auctionID+"/bids", nil, body)
}

// WithdrawRefund reclaims the agent's superseded bids for an auction.
func (c *GavelClient) WithdrawRefund(ctx context.Context, auctionID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/auctions/"+auctionID+"/withdrawals", nil, nil)
}

// SettleAuction triggers settlement for an expired auction.
func (c *GavelClient) SettleAuction(ctx context.Context, auctionID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/auctions/"+auctionID+"/end", nil, nil)
}

// GetBalance returns the agent's current USDC balance.
func (c *GavelClient) GetBalance(ctx context.Context) (json.RawMessage, error) {
	path := "/v1/agents/" + c.cfg.AgentAddress + "/balance"
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}
