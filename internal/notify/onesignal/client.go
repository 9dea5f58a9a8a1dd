// Package onesignal sends push batches through the OneSignal REST API,
// targeting users by their lowercase email tag.
package onesignal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
	"github.com/cuongbtq/booking-dispatch/internal/notify"
)

// DefaultURL is the notifications endpoint.
const DefaultURL = "https://onesignal.com/api/v1/notifications"

// SendAfterLayout is the send_after format OneSignal accepts.
const SendAfterLayout = "2006-01-02 15:04:05 GMT-0700"

var _ booking.Pusher = (*Client)(nil)

// Config holds OneSignal REST credentials
type Config struct {
	AppID  string
	APIKey string
	URL    string
}

// Client is a booking.Pusher backed by OneSignal.
type Client struct {
	appID      string
	apiKey     string
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a OneSignal client. A nil httpClient uses http.DefaultClient.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		appID:      cfg.AppID,
		apiKey:     cfg.APIKey,
		url:        url,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Payload is the notification request body.
type Payload struct {
	AppID         string              `json:"app_id"`
	Tags          []map[string]string `json:"tags"`
	Data          map[string]string   `json:"data"`
	Title         map[string]string   `json:"title"`
	Contents      map[string]string   `json:"contents"`
	IOSBadgeType  string              `json:"ios_badgeType"`
	IOSBadgeCount int                 `json:"ios_badgeCount"`
	AndroidSound  string              `json:"android_sound"`
	IOSSound      string              `json:"ios_sound"`
	SendAfter     string              `json:"send_after,omitempty"`
}

// NewPayload renders p for the given app.
func NewPayload(appID string, p booking.Push) Payload {
	android, ios := notify.Sounds(p.Sound)

	payload := Payload{
		AppID:         appID,
		Tags:          emailTags(p.Recipients),
		Data:          p.Data,
		Title:         map[string]string{"en": notify.Title},
		Contents:      map[string]string{"en": p.Message},
		IOSBadgeType:  "Increase",
		IOSBadgeCount: 1,
		AndroidSound:  android,
		IOSSound:      ios,
	}
	if p.SendAfter != nil {
		payload.SendAfter = p.SendAfter.Format(SendAfterLayout)
	}
	return payload
}

// emailTags builds the OR-joined tag filter.
func emailTags(recipients []string) []map[string]string {
	tags := make([]map[string]string, 0, len(recipients)*2)
	for i, r := range recipients {
		if i > 0 {
			tags = append(tags, map[string]string{"operator": "OR"})
		}
		tags = append(tags, map[string]string{"key": "email", "relation": "=", "value": r})
	}
	return tags
}

// Push posts one batch and returns the raw response body.
func (c *Client) Push(ctx context.Context, p booking.Push) (string, error) {
	body, err := json.Marshal(NewPayload(c.appID, p))
	if err != nil {
		return "", fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send push: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read push response: %w", err)
	}

	c.logger.Debug("OneSignal request completed",
		slog.Int64("job_id", p.JobID),
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return string(raw), fmt.Errorf("onesignal returned status %d", resp.StatusCode)
	}
	return string(raw), nil
}
