// Package feedback relays user feedback to an external collector. The
// collector's response body is opaque; reaching it at all counts as success.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const appVersion = "v1"

// ErrNotConfigured is returned when no collector URL is set.
var ErrNotConfigured = errors.New("feedback collector not configured")

// Submission is the user-provided part of a feedback payload.
type Submission struct {
	Message string `json:"message"`
	Mood    string `json:"mood,omitempty"`
	Contact string `json:"contact,omitempty"`
}

type payload struct {
	Submission
	UserAgent  string `json:"userAgent"`
	AppVersion string `json:"appVersion"`
}

// Client posts feedback submissions.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a client for the given collector URL. An empty URL
// yields a client whose Submit always returns ErrNotConfigured.
func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Submit sends one feedback payload. The response body is discarded; any
// 2xx status (or the collector's redirect dance) counts as delivered.
func (c *Client) Submit(ctx context.Context, sub Submission, userAgent string) error {
	if c.url == "" {
		return ErrNotConfigured
	}
	if userAgent == "" {
		userAgent = "unknown"
	}

	body, err := json.Marshal(payload{
		Submission: sub,
		UserAgent:  userAgent,
		AppVersion: appVersion,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send feedback: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("feedback collector returned %d", resp.StatusCode)
	}
	log.Printf("💌 [FEEDBACK] Feedback relayed")
	return nil
}
