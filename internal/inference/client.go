package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	apperrors "github.com/serbia-gov/clinical-dx/internal/shared/errors"
)

const (
	completionsPath = "/v1/completions"
	healthPath      = "/health"
	maxErrorBody    = 4 << 10
)

var _ Generator = (*Client)(nil)

// ClientConfig configures the model server client
type ClientConfig struct {
	// BaseURL of an OpenAI-compatible completions server (no trailing slash)
	BaseURL string
	Model   string
	APIKey  string
	// Timeout of zero disables the client-side timeout
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to a vLLM-style completions server. It is built once at
// startup and shared by every request.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new model server client
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

type completionRequest struct {
	Model            string  `json:"model"`
	Prompt           string  `json:"prompt"`
	MaxTokens        int     `json:"max_tokens"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	TopK             int     `json:"top_k"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
	N                int     `json:"n"`
}

type completionResponse struct {
	Choices []completionChoice `json:"choices"`
}

type completionChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

// errorResponse covers both the vLLM and the OpenAI error shapes
type errorResponse struct {
	Message string `json:"message"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate requests exactly one sequence and returns its text. Only the
// first choice is read.
func (c *Client) Generate(ctx context.Context, prompt string, cfg SamplingConfig) (Completion, error) {
	body, err := json.Marshal(completionRequest{
		Model:            c.model,
		Prompt:           prompt,
		MaxTokens:        cfg.MaxTokens,
		Temperature:      cfg.Temperature,
		TopP:             cfg.TopP,
		TopK:             cfg.TopK,
		FrequencyPenalty: cfg.FrequencyPenalty,
		N:                1,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID(ctx))
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("model server request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Completion{}, statusError(resp)
	}

	var result completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Completion{}, fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(result.Choices) == 0 {
		return Completion{}, fmt.Errorf("model server returned no choices")
	}

	return Completion{Text: result.Choices[0].Text}, nil
}

// Health checks the model server's liveness endpoint
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model server unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server health returned %d", resp.StatusCode)
	}
	return nil
}

// statusError maps a non-200 answer onto the error taxonomy. Rejected
// sampling parameters are the caller's fault; capacity problems on the
// model server are reported as resource exhaustion.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := errorMessage(raw)
	cause := fmt.Errorf("model server returned %d: %s", resp.StatusCode, msg)

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.Invalidf("model rejected request: %s", msg)
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusInsufficientStorage,
		isOutOfMemory(msg):
		return apperrors.ResourceExhausted(cause)
	default:
		return cause
	}
}

func errorMessage(raw []byte) string {
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil {
		if er.Error != nil && er.Error.Message != "" {
			return er.Error.Message
		}
		if er.Message != "" {
			return er.Message
		}
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return "empty response body"
	}
	return msg
}

func isOutOfMemory(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "out of memory") || strings.Contains(lower, "outofmemory")
}

// requestID forwards the inbound request id so model server logs can be
// correlated; calls made outside a request get a fresh one.
func requestID(ctx context.Context) string {
	if id := chimw.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
