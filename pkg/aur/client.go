// Package aur provides AUR (Arch User Repository) RPC and .SRCINFO access.
package aur

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the default AUR RPC API endpoint
	DefaultBaseURL = "https://aur.archlinux.org/rpc/v5"

	// DefaultSRCINFOURL serves the .SRCINFO of a package base via ?h=<pkgbase>
	DefaultSRCINFOURL = "https://aur.archlinux.org/cgit/aur.git/plain/.SRCINFO"

	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize bounds the number of names per info request, keeping
	// the query string under aurweb's URI length limit.
	DefaultBatchSize = 150

	userAgent = "archupdates/1.0"
)

var (
	// ErrNotFound is returned when the AUR has no such package or package base.
	ErrNotFound = errors.New("not found in the AUR")

	// ErrMalformedResponse is returned when a response cannot be decoded.
	ErrMalformedResponse = errors.New("malformed AUR response")

	// ErrMaxRetriesExceeded is returned when all retry attempts have failed.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// StatusError reports a non-success HTTP status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200]
	}
	if body == "" {
		return fmt.Sprintf("AUR request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("AUR request failed with status %d: %s", e.StatusCode, body)
}

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts
	MaxRetries int
	// BaseDelay is the initial delay before first retry
	BaseDelay time.Duration
	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
// Uses exponential backoff with delays of 500ms, 1s, 2s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   4 * time.Second,
	}
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL    string
	SRCINFOURL string
	Timeout    time.Duration
	BatchSize  int
	Retry      *RetryConfig
	HTTPClient *http.Client
}

// Client is an AUR RPC API client.
type Client struct {
	baseURL    string
	srcinfoURL string
	httpClient *http.Client
	batchSize  int
	retry      RetryConfig
	// sleep waits between retries; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// Package represents an AUR package from the RPC API.
type Package struct {
	ID            int    `json:"ID"`
	Name          string `json:"Name"`
	PackageBaseID int    `json:"PackageBaseID"`
	PackageBase   string `json:"PackageBase"`
	Version       string `json:"Version"`
	Description   string `json:"Description"`
	URL           string `json:"URL"`
	OutOfDate     *int64 `json:"OutOfDate"` // Unix timestamp, nil if not out of date
	Maintainer    string `json:"Maintainer"`
	LastModified  int64  `json:"LastModified"`
}

// Response is the AUR RPC API response structure.
type Response struct {
	Version     int       `json:"version"`
	Type        string    `json:"type"`
	ResultCount int       `json:"resultcount"`
	Results     []Package `json:"results"`
	Error       string    `json:"error,omitempty"`
}

// NewClient creates a new AUR client with default settings.
func NewClient() *Client {
	return NewClientWithOptions(Options{})
}

// NewClientWithOptions creates a new AUR client with custom settings.
func NewClientWithOptions(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.SRCINFOURL == "" {
		opts.SRCINFOURL = DefaultSRCINFOURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	retry := DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		srcinfoURL: opts.SRCINFOURL,
		httpClient: httpClient,
		batchSize:  opts.BatchSize,
		retry:      retry,
		sleep:      sleepContext,
	}
}

// Info retrieves information about packages by name. Names are split into
// batches of at most the configured batch size; the results of all batches
// are merged. Names unknown to the AUR are simply absent from the result.
// Any failed batch fails the whole call.
func (c *Client) Info(ctx context.Context, names ...string) ([]Package, error) {
	var all []Package
	for start := 0; start < len(names); start += c.batchSize {
		end := min(start+c.batchSize, len(names))
		pkgs, err := c.info(ctx, names[start:end])
		if err != nil {
			return nil, err
		}
		all = append(all, pkgs...)
	}
	return all, nil
}

// FetchSRCINFO downloads and parses the .SRCINFO of a package base.
func (c *Client) FetchSRCINFO(ctx context.Context, pkgbase string) (*SRCINFO, error) {
	endpoint := c.srcinfoURL + "?h=" + url.QueryEscape(pkgbase)

	body, err := c.get(ctx, endpoint, "text/plain")
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", pkgbase, ErrNotFound)
		}
		return nil, err
	}

	info, err := ParseSRCINFOContent(string(body))
	if err != nil {
		return nil, err
	}
	if info.PkgBase == "" && info.PkgVer == "" {
		// cgit answers unknown branches with an empty page
		return nil, fmt.Errorf("%s: %w", pkgbase, ErrNotFound)
	}
	return info, nil
}

func (c *Client) info(ctx context.Context, names []string) ([]Package, error) {
	if len(names) == 0 {
		return nil, nil
	}

	// Build query string with multiple arg[] parameters
	params := make([]string, len(names))
	for i, name := range names {
		params[i] = "arg[]=" + url.QueryEscape(name)
	}

	endpoint := fmt.Sprintf("%s/info?%s", c.baseURL, strings.Join(params, "&"))

	body, err := c.get(ctx, endpoint, "application/json")
	if err != nil {
		return nil, err
	}

	var aurResp Response
	if err := json.Unmarshal(body, &aurResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if aurResp.Error != "" || aurResp.Type == "error" {
		return nil, fmt.Errorf("AUR API error: %s", aurResp.Error)
	}

	return aurResp.Results, nil
}

// get performs an HTTP GET with retries on network errors, 429 and 5xx
// responses, backing off exponentially between attempts.
func (c *Client) get(ctx context.Context, endpoint, accept string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.calculateDelay(attempt)); err != nil {
				return nil, err
			}
		}

		body, retry, err := c.doRequest(ctx, endpoint, accept)
		if err == nil {
			return body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr)
}

// doRequest performs a single HTTP GET request. The boolean reports whether
// the failure is worth retrying.
func (c *Client) doRequest(ctx context.Context, endpoint, accept string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, false, nil
}

// calculateDelay returns baseDelay * 2^(attempt-1), capped at MaxDelay.
func (c *Client) calculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := c.retry.BaseDelay * time.Duration(1<<(attempt-1))
	if c.retry.MaxDelay > 0 && delay > c.retry.MaxDelay {
		delay = c.retry.MaxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsOutOfDate returns true if the package is flagged out of date.
func (p *Package) IsOutOfDate() bool {
	return p.OutOfDate != nil
}
