package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Dispatch tuning. Backoff is linear: baseRetryDelay × attempt number.
const (
	maxRetries     = 2
	baseRetryDelay = 1500 * time.Millisecond
)

// ErrQuotaExceeded aborts the whole dispatch and routes to the local
// fallback path.
var ErrQuotaExceeded = errors.New("model quota exceeded")

// errModelNotFound advances dispatch to the next candidate.
var errModelNotFound = errors.New("model not found")

// modelCandidate pairs a model name with the API version it lives under.
type modelCandidate struct {
	Name       string
	APIVersion string
}

// Candidates are tried in order; the first that answers wins.
var modelCandidates = []modelCandidate{
	{Name: "gemini-2.5-flash", APIVersion: "v1"},
	{Name: "gemini-2.5-flash-latest", APIVersion: "v1"},
	{Name: "gemini-2.5-flash", APIVersion: "v1beta"},
	{Name: "gemini-1.5-flash-latest", APIVersion: "v1beta"},
}

// Client calls the Gemini generateContent API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	sleep      func(time.Duration)
}

// NewClient creates a client for the given API key.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    "https://generativelanguage.googleapis.com",
		httpClient: &http.Client{Timeout: 60 * time.Second},
		sleep:      time.Sleep,
	}
}

type generateRequest struct {
	Contents       []content       `json:"contents"`
	SafetySettings []safetySetting `json:"safetySettings"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// The journal owner already consented to seeing their own words back; every
// harm category is disabled so the model never censors their entries.
var safetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// GenerateText runs the prompt through the candidate list and returns the
// response text and the model that produced it.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, string, error) {
	var lastErr error
	for _, candidate := range modelCandidates {
		text, err := c.generateWithRetries(ctx, candidate, prompt)
		if err == nil {
			return text, candidate.Name, nil
		}
		if errors.Is(err, errModelNotFound) {
			log.Printf("⚠️ [SUMMARY] Model %s (%s) not available, trying next candidate", candidate.Name, candidate.APIVersion)
			lastErr = err
			continue
		}
		// Quota and non-retryable errors abort the whole dispatch.
		return "", candidate.Name, err
	}
	return "", "", fmt.Errorf("all model candidates exhausted: %w", lastErr)
}

func (c *Client) generateWithRetries(ctx context.Context, candidate modelCandidate, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		text, err := c.generateOnce(ctx, candidate, prompt)
		if err == nil {
			return text, nil
		}
		if !isRetryable(err) {
			return "", err
		}
		lastErr = err
		if attempt < maxRetries {
			c.sleep(baseRetryDelay * time.Duration(attempt))
		}
	}
	return "", fmt.Errorf("retries exhausted for %s: %w", candidate.Name, lastErr)
}

func (c *Client) generateOnce(ctx context.Context, candidate modelCandidate, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents:       []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		SafetySettings: safetySettings,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
		c.baseURL, candidate.APIVersion, candidate.Name, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		return "", classifyAPIError(resp.StatusCode, parsed.Error)
	}

	if len(parsed.Candidates) == 0 {
		return "", errors.New("model returned no candidates")
	}
	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("model returned empty text")
	}
	return text, nil
}

// classifyAPIError maps provider errors onto the dispatch state machine:
// quota aborts to fallback, not-found advances the candidate list, auth
// problems fail fast, everything else is retryable.
func classifyAPIError(status int, apiErr *apiError) error {
	msg := ""
	if apiErr != nil {
		msg = apiErr.Message
	}
	lower := strings.ToLower(msg)

	switch {
	case status == http.StatusTooManyRequests,
		strings.Contains(lower, "quota"),
		strings.Contains(lower, "rate limit"):
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, msg)
	case status == http.StatusNotFound, strings.Contains(lower, "not found"):
		return fmt.Errorf("%w: %s", errModelNotFound, msg)
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		strings.Contains(lower, "api key"),
		strings.Contains(lower, "permission"),
		strings.Contains(lower, "unauthorized"):
		return &fatalError{msg: fmt.Sprintf("model auth error (%d): %s", status, msg)}
	default:
		return fmt.Errorf("model error (%d): %s", status, msg)
	}
}

// fatalError is never retried.
type fatalError struct{ msg string }

func (e *fatalError) Error() string { return e.msg }

func isRetryable(err error) bool {
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, errModelNotFound) {
		return false
	}
	var fatal *fatalError
	if errors.As(err, &fatal) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
