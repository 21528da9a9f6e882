// Package replicate is a thin client for the Replicate prediction API: it
// creates prediction jobs and reads their status, nothing more. The studio
// never reimplements the provider's job semantics.
package replicate

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
)

const (
	// TextToImageModel is the model-scoped endpoint used for plain
	// text-to-image generation.
	TextToImageModel = "stability-ai/stable-diffusion-3.5-large"
	// InpaintingVersion pins the stable-diffusion inpainting build the
	// studio submits masked edits to.
	InpaintingVersion = "95b7223104132402a9ae91cc677285bc5eb997834bd2349fa486f53910fd68b3"
)

// Remote prediction statuses. Replicate also reports starting/processing,
// which the poller treats as non-terminal.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.replicate.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.Token),
	}
}

// Prediction is the subset of the remote job record the poller consumes.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Terminal reports whether the remote job finished one way or the other.
func (p *Prediction) Terminal() bool {
	return p != nil && (p.Status == StatusSucceeded || p.Status == StatusFailed)
}

// APIError is a non-2xx response from the prediction API. Detail carries
// the structured reason when the error body provides one.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("replicate: http %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("replicate: http %d", e.StatusCode)
}

// Reason extracts the most useful human-readable message from a client
// error: the remote detail field when present, the raw error otherwise.
func Reason(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}

// CreatePrediction starts a job against a pinned model version.
func (c *Client) CreatePrediction(ctx context.Context, version string, input map[string]any) (*Prediction, error) {
	payload := map[string]any{"version": version, "input": input}
	return c.create(ctx, c.baseURL+"/predictions", payload)
}

// CreateModelPrediction starts a job on a model-scoped endpoint
// (models/{owner}/{name}/predictions) where no version pin is needed.
func (c *Client) CreateModelPrediction(ctx context.Context, model string, input map[string]any) (*Prediction, error) {
	payload := map[string]any{"input": input}
	return c.create(ctx, c.baseURL+"/models/"+model+"/predictions", payload)
}

// GetPrediction reads the current remote status of a job.
func (c *Client) GetPrediction(ctx context.Context, remoteID string) (*Prediction, error) {
	if strings.TrimSpace(remoteID) == "" {
		return nil, errors.New("replicate: prediction id required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/predictions/"+remoteID, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) create(ctx context.Context, endpoint string, payload map[string]any) (*Prediction, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Prediction, error) {
	if c.token == "" {
		return nil, errors.New("replicate: API token is missing")
	}
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(raw)}
	}
	var out Prediction
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&out); err != nil {
		return nil, fmt.Errorf("replicate: decode response: %w", err)
	}
	if out.ID == "" {
		return nil, errors.New("replicate: response missing prediction id")
	}
	return &out, nil
}

func errorDetail(raw []byte) string {
	var body struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Detail != "" {
			return body.Detail
		}
		if body.Title != "" {
			return body.Title
		}
	}
	return strings.TrimSpace(string(raw))
}
