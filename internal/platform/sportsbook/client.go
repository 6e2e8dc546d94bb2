// Package sportsbook is the REST client for the operator's bet-builder API.
package sportsbook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/marketgroups/internal/betbuilder"
	"github.com/alanyoungcy/marketgroups/internal/domain"
)

const (
	grayoutsPath    = "/betbuilder/grayouts"
	maxResponseSize = 4 << 20
)

// Client calls the bet-builder grayouts endpoint. It implements
// betbuilder.Fetcher.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ betbuilder.Fetcher = (*Client)(nil)

// NewClient creates a bet-builder client.
//
// baseURL is the API root, e.g. "https://sportsbook.example.com/api". A zero
// timeout defaults to 10 seconds.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(slog.String("component", "sportsbook_client")),
	}
}

type grayoutsRequest struct {
	SelectionIDs []string `json:"selectionIds"`
}

// FetchGrayouts posts the current selection list and decodes the grayouts
// the operator returns. Entries the operator sent malformed are dropped and
// logged.
func (c *Client) FetchGrayouts(ctx context.Context, requestID string, selectionIDs []string) (domain.GrayoutsState, error) {
	body, err := c.doPost(ctx, grayoutsPath, requestID, grayoutsRequest{SelectionIDs: selectionIDs})
	if err != nil {
		return domain.GrayoutsState{}, fmt.Errorf("sportsbook: fetch grayouts: %w", err)
	}

	state, dropped, err := betbuilder.Decode(body)
	if err != nil {
		return domain.GrayoutsState{}, fmt.Errorf("sportsbook: fetch grayouts: %w", err)
	}
	if len(dropped) > 0 {
		c.logger.Warn("dropped malformed grayout entries",
			slog.String("request_id", requestID),
			slog.Any("keys", dropped),
		)
	}
	return state, nil
}

func (c *Client) doPost(ctx context.Context, path, requestID string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps a non-2xx response to ErrBetBuilderUnavailable,
// wrapping the more specific sentinel where one applies.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w: %s", domain.ErrBetBuilderUnavailable, domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w: %s", domain.ErrBetBuilderUnavailable, domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrBetBuilderUnavailable, statusCode, bodyStr)
	}
}
