package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smera-app/smera/internal/api/shared"
	"github.com/smera-app/smera/internal/retry"
)

// DefaultTimeout bounds a single HTTP request when Config.Timeout is zero.
const DefaultTimeout = 20 * time.Second

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// ErrInvalidBaseURL is returned by New for an unusable server URL.
var ErrInvalidBaseURL = errors.New("invalid server URL")

// Config holds the connection settings of a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the smera HTTP API.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	retry   *retry.Executor
	logger  *slog.Logger
}

// New creates a Client. Task parsing is retried by exec.
func New(cfg Config, exec *retry.Executor, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if exec == nil {
		exec = retry.NewExecutor(retry.DefaultConfig(), logger)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		http:    httpClient,
		retry:   exec,
		logger:  logger.With(slog.String("component", "api_client")),
	}, nil
}

// Health checks that the backend is reachable. It implements
// connectivity.Prober.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, nil)
	return err
}

// Probe is Health under the connectivity.Prober name.
func (c *Client) Probe(ctx context.Context) error {
	return c.Health(ctx)
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil. It returns the response status. Non-2xx responses become a
// *retry.StatusError carrying the server's error message; transport failures
// are returned wrapped so retry.Classify still sees the net.Error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return 0, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "smera-cli")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return resp.StatusCode, nil
}

// decodeError turns an error response into a *retry.StatusError.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var envelope shared.ErrorResponse
	message := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
		message = envelope.Error
	}
	return retry.NewStatusError(resp.StatusCode, message)
}

// StatusCode returns the HTTP status behind err, or 0 when err did not come
// from an HTTP response.
func StatusCode(err error) int {
	var statusErr *retry.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
