// Package correct talks to the remote correction API.
package correct

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"

	"github.com/langquence/correct-tray/internal/config"
)

const (
	endpointPath = "correct"

	// CodeNotJSON marks a 2xx response whose body was not a JSON object.
	CodeNotJSON = 999

	maxResponseBytes = 1 << 20
)

// Answer is the corrected text returned by the API
type Answer struct {
	Text string `json:"text"`
}

// NetworkError is any failed correction request. Code is the HTTP status,
// CodeNotJSON for a malformed body, or 0 when no response was received.
type NetworkError struct {
	Code    int
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network error (code=%d): %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("network error (code=%d): %s", e.Code, e.Message)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Client posts WAV streams to the correction endpoint
type Client struct {
	endpoint string
	http     *http.Client
	log      zerolog.Logger
}

// New creates a Client for cfg.BaseURL
func New(cfg config.APIConfig, log zerolog.Logger) (*Client, error) {
	endpoint, err := url.JoinPath(cfg.BaseURL, endpointPath)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", cfg.BaseURL, err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.HTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			return nil, fmt.Errorf("failed to enable http2: %w", err)
		}
	}

	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout(),
		},
		log: log,
	}, nil
}

// Endpoint returns the resolved request URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Correct sends one WAV stream and returns the corrected text. There is no retry.
func (c *Client) Correct(ctx context.Context, wav []byte) (Answer, error) {
	requestID := uuid.NewString()
	log := c.log.With().Str("request_id", requestID).Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(wav))
	if err != nil {
		return Answer{}, &NetworkError{Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	log.Info().Int("bytes", len(wav)).Str("url", c.endpoint).Msg("Starting correction request")
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Correction request failed")
		return Answer{}, &NetworkError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Answer{}, &NetworkError{Code: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	log.Info().
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Correction response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Answer{}, &NetworkError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var answer Answer
	if err := json.Unmarshal(body, &answer); err != nil {
		log.Error().Str("body", truncate(string(body), 200)).Msg("Not a JSON response")
		return Answer{}, &NetworkError{Code: CodeNotJSON, Message: "not json type", Err: err}
	}

	return answer, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
