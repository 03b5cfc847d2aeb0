package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"topstories/services/frontend/models"
)

const (
	DefaultBaseURL = "https://api.nytimes.com/svc"
	DefaultSection = "arts"
)

// Options configures a Client. APIKey is the only required field.
type Options struct {
	BaseURL string
	Section string
	APIKey  string
	// Timeout bounds the whole request; zero leaves the transport default.
	Timeout time.Duration
	// RatePerSecond throttles outbound calls; zero disables the limiter.
	RatePerSecond float64
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client fetches top stories from the New York Times Top Stories API.
type Client struct {
	baseURL string
	section string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a Client, filling unset options with defaults.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Section == "" {
		opts.Section = DefaultSection
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		section: opts.Section,
		apiKey:  opts.APIKey,
		http:    opts.HTTPClient,
		logger:  opts.Logger.With("module", "adapters", "section", opts.Section),
	}
	if opts.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	return c
}

// URL returns the request URL, credential included.
func (c *Client) URL() string {
	q := url.Values{}
	q.Set("api-key", c.apiKey)
	return fmt.Sprintf("%s/topstories/v2/%s.json?%s", c.baseURL, url.PathEscape(c.section), q.Encode())
}

// redactedURL is URL without the credential, for logs and error text.
func (c *Client) redactedURL() string {
	return fmt.Sprintf("%s/topstories/v2/%s.json", c.baseURL, url.PathEscape(c.section))
}

// Fetch performs the single request and returns its Result.
func (c *Client) Fetch(ctx context.Context) Result {
	stories, err := c.TopStories(ctx)
	if err != nil {
		return Failure(err)
	}
	return Success(stories)
}

// TopStories requests the section, then drops the records without a title.
// Errors are *NetworkError, *HTTPStatusError or *ParseError.
func (c *Client) TopStories(ctx context.Context) ([]models.Story, error) {
	start := time.Now()
	stories, dropped, err := c.fetch(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "top stories fetch failed",
			"outcome", "failure",
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err.Error(),
		)
		return nil, err
	}
	c.logger.InfoContext(ctx, "top stories fetched",
		"outcome", "success",
		"kept", len(stories),
		"dropped", dropped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return stories, nil
}

func (c *Client) fetch(ctx context.Context) ([]models.Story, int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, &NetworkError{URL: c.redactedURL(), Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &NetworkError{URL: c.redactedURL(), Err: stripCredential(err)}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, 0, &HTTPStatusError{StatusCode: res.StatusCode, Status: http.StatusText(res.StatusCode)}
	}

	var env models.Envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, 0, &ParseError{Err: err}
	}
	if env.Results == nil {
		return nil, 0, &ParseError{Err: errMissingResults}
	}

	stories := models.FilterTitled(*env.Results)
	return stories, len(*env.Results) - len(stories), nil
}

// stripCredential unwraps *url.Error so the api key in its URL is never
// surfaced to the view or the logs.
func stripCredential(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
