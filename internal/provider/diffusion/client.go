package diffusion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"avatarlab.app/studio/core/config"
)

// ErrNotConfigured indicates the worker endpoint was not set up.
var ErrNotConfigured = errors.New("diffusion: worker base url is required")

// Request captures the inputs for one asynchronous generation submission.
// WebhookURL and WebhookToken tell the worker where to deliver the result;
// the token is the capability the completion endpoint validates.
type Request struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Seed           *int64
	WebhookURL     string
	WebhookToken   string
}

// Submission is the worker's acknowledgment of an accepted generation.
type Submission struct {
	ExternalID string
}

// Client submits generation requests to the external diffusion worker. The
// worker processes asynchronously and calls back over the webhook; Submit
// only covers the enqueue round trip.
type Client struct {
	baseURL    string
	apiKey     string
	webhookKey string
	httpClient *http.Client
}

func NewClient(cfg config.GeneratorConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		webhookKey: cfg.WebhookKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type submitRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	Seed           *int64 `json:"seed,omitempty"`
	Webhook        struct {
		URL   string `json:"url"`
		Token string `json:"token"`
		Key   string `json:"key,omitempty"`
	} `json:"webhook"`
}

type submitResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Submit enqueues a generation with the worker and returns its external id.
func (c *Client) Submit(ctx context.Context, req Request) (*Submission, error) {
	body := submitRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          req.Width,
		Height:         req.Height,
		Seed:           req.Seed,
	}
	body.Webhook.URL = req.WebhookURL
	body.Webhook.Token = req.WebhookToken
	body.Webhook.Key = c.webhookKey

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("diffusion: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("diffusion: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("diffusion: submitting generation: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("diffusion: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("diffusion: worker returned %d: %s", resp.StatusCode, truncateBody(raw))
	}

	var decoded submitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("diffusion: decoding response: %w", err)
	}
	if decoded.ID == "" {
		return nil, fmt.Errorf("diffusion: worker response missing id")
	}

	return &Submission{ExternalID: decoded.ID}, nil
}

func truncateBody(raw []byte) string {
	const max = 256
	s := string(raw)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
