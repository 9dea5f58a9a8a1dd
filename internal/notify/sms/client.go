// Package sms sends text messages through a form-post HTTP gateway.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
)

// Statuses reported back to the caller.
const (
	StatusSent  = "sent"
	StatusError = "error"
)

var _ booking.SMSSender = (*Client)(nil)

// Config holds the gateway settings
type Config struct {
	URL    string
	APIKey string
}

// Client is a booking.SMSSender.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an SMS gateway client. A nil httpClient uses http.DefaultClient.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

type gatewayResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
}

// Send delivers one message. The returned status is StatusSent or StatusError.
func (c *Client) Send(ctx context.Context, from, to, message string) (string, error) {
	if strings.TrimSpace(to) == "" {
		return StatusError, fmt.Errorf("sms: empty recipient")
	}

	form := url.Values{}
	form.Set("apiKey", c.apiKey)
	form.Set("from", from)
	form.Set("recipient", to)
	form.Set("text", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return StatusError, fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return StatusError, fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return StatusError, fmt.Errorf("failed to read sms response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return StatusError, fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode, body)
	}

	var result gatewayResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return StatusError, fmt.Errorf("failed to parse sms response: %w", err)
	}
	if result.Code != 0 {
		return StatusError, fmt.Errorf("sms gateway error: %s (code %d)", result.Message, result.Code)
	}

	c.logger.Debug("SMS accepted by gateway",
		slog.String("recipient", to),
		slog.String("message_id", result.Data.MessageID),
	)
	return StatusSent, nil
}
