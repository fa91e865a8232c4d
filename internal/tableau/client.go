package tableau

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

	"golang.org/x/time/rate"
)

// ErrAuthentication is returned when the server rejects the credentials or
// the session token.
var ErrAuthentication = errors.New("tableau authentication failed")

// discoveryAPIVersion is the REST version used to ask the server which
// version it actually speaks.
const discoveryAPIVersion = "2.4"

// Config configures a Client.
type Config struct {
	// ServerURL is the server root, e.g. https://10az.online.tableau.com/.
	ServerURL string

	// APIVersion pins the REST API version. Empty asks the server.
	APIVersion string

	// Site is the site content URL ("" for the default site).
	Site string

	// TokenName and TokenSecret are the personal access token.
	TokenName   string
	TokenSecret string

	// Timeout for individual requests (default: 60s).
	Timeout time.Duration

	// RateLimit in requests per second (default: 5) and RateBurst (default: 2).
	RateLimit float64
	RateBurst int

	// UserAgent (default: "leapexpose").
	UserAgent string

	// Transport allows injecting a custom HTTP transport (for tests).
	Transport http.RoundTripper
}

// Client talks to one Tableau site. It is not safe for concurrent SignIn
// calls; once signed in, concurrent queries are fine.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger

	apiVersion string
	token      string
	siteID     string
}

// New creates a client. A nil logger discards output.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 2
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "leapexpose"
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:     logger,
		apiVersion: cfg.APIVersion,
	}
}

// APIVersion returns the REST API version in use.
func (c *Client) APIVersion() string {
	return c.apiVersion
}

// SignedIn reports whether the client holds a session token.
func (c *Client) SignedIn() bool {
	return c.token != ""
}

// apiError is the REST API error envelope.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Summary string `json:"summary"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

// restPath builds /api/<version>/<path>.
func (c *Client) restPath(version, path string) string {
	return "api/" + version + "/" + strings.TrimPrefix(path, "/")
}

// do sends one request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	fullURL := strings.TrimSuffix(c.cfg.ServerURL, "/") + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("X-Tableau-Auth", c.token)
	}

	c.logger.Debug("tableau request", slog.String("method", method), slog.String("path", path))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Summary != "" {
			msg = apiErr.Error.Summary
			if apiErr.Error.Detail != "" {
				msg += ": " + apiErr.Error.Detail
			}
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", ErrAuthentication, msg)
		}
		return fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, msg)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
