// Package alpaca is the upstream brokerage client. One Client serves one
// trading mode; paper and live differ in base URL and credential set only.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/exchangetower/tower/internal/model"
	"github.com/exchangetower/tower/internal/retry"
)

// Default endpoints per mode. The market data host is shared.
const (
	PaperBaseURL   = "https://paper-api.alpaca.markets"
	LiveBaseURL    = "https://api.alpaca.markets"
	DataBaseURL    = "https://data.alpaca.markets"
	defaultTimeout = 30 * time.Second
)

// Credentials is one mode's API key pair.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Options overrides the client defaults. Zero values keep the defaults
// derived from the mode.
type Options struct {
	BaseURL     string
	DataBaseURL string
	Timeout     time.Duration
	Policy      retry.Policy
}

// Client issues authenticated requests against the trading and market data
// APIs, retrying rate-limit and server-error responses per its policy.
type Client struct {
	mode    model.Mode
	baseURL string
	dataURL string
	creds   Credentials
	httpc   *http.Client
	policy  retry.Policy
	logger  *slog.Logger
}

// New builds a client for the given mode.
func New(mode model.Mode, creds Credentials, opts Options, logger *slog.Logger) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		if mode == model.ModeLive {
			baseURL = LiveBaseURL
		} else {
			baseURL = PaperBaseURL
		}
	}
	dataURL := opts.DataBaseURL
	if dataURL == "" {
		dataURL = DataBaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	policy := opts.Policy
	if policy.BaseDelay == 0 {
		policy = retry.Default()
	}
	return &Client{
		mode:    mode,
		baseURL: baseURL,
		dataURL: dataURL,
		creds:   creds,
		httpc:   &http.Client{Timeout: timeout},
		policy:  policy,
		logger:  logger.With("mode", string(mode)),
	}
}

// Mode returns the trading mode this client is bound to.
func (c *Client) Mode() model.Mode { return c.mode }

// APIError is a non-2xx upstream response after retries are exhausted
// (or for outcomes that are never retried).
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("upstream %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("upstream %d: %s", e.StatusCode, e.Message)
}

// ErrorType maps the failure onto the response record taxonomy.
func (e *APIError) ErrorType() model.ErrorType {
	switch retry.Classify(e.StatusCode) {
	case retry.ClassAuth:
		return model.ErrTypeAuth
	case retry.ClassRateLimited:
		return model.ErrTypeRateLimit
	default:
		return model.ErrTypeAPI
	}
}

// do runs one logical request through the retry loop. A nil body means no
// request body. On success the raw response body is returned (empty for 204).
func (c *Client) do(ctx context.Context, method, url string, body []byte) (json.RawMessage, error) {
	for attempt := 1; ; attempt++ {
		raw, apiErr, err := c.doOnce(ctx, method, url, body)
		if err != nil {
			// Transport failure: same budget as a server error.
			again, delay := c.policy.Decide(retry.ClassServerError, attempt, 0)
			if !again {
				return nil, errors.Wrapf(err, "%s %s", method, url)
			}
			c.logger.Warn("dispatch_retry", "method", method, "url", url,
				"attempt", attempt, "delay", delay, "error", err)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}
		if apiErr == nil {
			return raw, nil
		}
		class := retry.Classify(apiErr.StatusCode)
		again, delay := c.policy.Decide(class, attempt, apiErr.retryAfter)
		if !again {
			return nil, &apiErr.APIError
		}
		c.logger.Warn("dispatch_retry", "method", method, "url", url,
			"status", apiErr.StatusCode, "attempt", attempt, "delay", delay)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// doOnce issues a single HTTP attempt. The second return is set for non-2xx
// statuses; the third only for transport-level failures.
func (c *Client) doOnce(ctx context.Context, method, url string, body []byte) (json.RawMessage, *attemptError, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("APCA-API-KEY-ID", c.creds.APIKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.creds.APISecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil, nil
	}
	ae := &attemptError{
		APIError:   APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)},
		retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
	var errBody struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &errBody) == nil && errBody.Message != "" {
		ae.Code = errBody.Code
		ae.Message = errBody.Message
	}
	return nil, ae, nil
}

// attemptError pairs an APIError with the Retry-After hint of that attempt.
// Decide honors the hint when it exceeds the computed backoff.
type attemptError struct {
	APIError
	retryAfter time.Duration
}

// parseRetryAfter accepts the delta-seconds and HTTP-date forms.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// getJSON is a convenience for GET endpoints decoded into a generic value.
func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	raw, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// FindOrderByClientID reports whether upstream already knows an order with
// this client order id. A 404 is a definitive "no", not an error.
func (c *Client) FindOrderByClientID(ctx context.Context, clientOrderID string) (bool, error) {
	url := c.baseURL + "/v2/orders:by_client_order_id?client_order_id=" + clientOrderID
	_, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
