package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pixelgate/pixelgate/internal/circuitbreaker"
)

// ErrUnavailable is returned when the upstream cannot be reached or the
// breaker is open. Handlers surface it as a generic 502.
var ErrUnavailable = errors.New("image service unavailable")

var errUpstreamServerError = errors.New("upstream returned a server error")

// GenerateRequest is the caller-facing image generation payload,
// forwarded to the provider unchanged.
type GenerateRequest struct {
	Prompt         string `json:"prompt" binding:"required"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// Result carries the provider response verbatim plus its status code.
type Result struct {
	StatusCode int
	Body       json.RawMessage
}

// Client calls the third-party image API with a pool credential. Every
// call is bounded by a fixed timeout and wrapped in a circuit breaker.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
		},
		breaker: circuitbreaker.New(circuitbreaker.Config{
			MaxFailures:     5,
			Cooldown:        30 * time.Second,
			HalfOpenSuccess: 1,
		}),
		logger: logger.With("component", "upstream"),
	}
}

// Generate performs one image generation call using the given provider
// credential. Provider 4xx/5xx responses are returned as results so the
// caller can relay and log them; transport failures and an open breaker
// map to ErrUnavailable.
func (c *Client) Generate(ctx context.Context, credential string, req GenerateRequest) (*Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}

	var result *Result
	callErr := c.breaker.Call(func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generations", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+credential)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		result = &Result{
			StatusCode: resp.StatusCode,
			Body:       body,
		}

		// 5xx counts against the breaker, but the response is still
		// relayed to the caller.
		if resp.StatusCode >= 500 {
			return errUpstreamServerError
		}

		return nil
	})

	if result != nil {
		return result, nil
	}

	if errors.Is(callErr, circuitbreaker.ErrCircuitOpen) {
		c.logger.Warn("upstream circuit open, failing fast")
		return nil, ErrUnavailable
	}

	c.logger.Error("upstream call failed", "error", callErr)
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, callErr)
}

// TestCredential validates a pool credential with a cheap model-listing
// request. Used by the admin probe endpoint.
func (c *Client) TestCredential(ctx context.Context, credential string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("probe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("probe returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}
