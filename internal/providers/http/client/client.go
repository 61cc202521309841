package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/resilience"
	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/tracing"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent identifies the browser on fallback fetches
	DefaultUserAgent = "DefcommBrowser/0.1"

	// MaxBodySize caps how much of a response body is read
	MaxBodySize = 10 * 1024 * 1024

	acceptEncoding = "gzip, deflate, zstd"
)

var ErrHostUnavailable = errors.New("host unavailable: circuit breaker open")

// Options configures a Client
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
	RateLimit    float64 // requests per second, <= 0 is unlimited
	Retries      int
	Breaker      resilience.Settings
}

// DefaultOptions mirrors the browser's fallback fetch behaviour
func DefaultOptions() Options {
	return Options{
		UserAgent:    DefaultUserAgent,
		Timeout:      10 * time.Second,
		MaxRedirects: 5,
		Retries:      1,
		Breaker:      resilience.DefaultSettings(),
	}
}

// Client wraps resty with a retrying transport, rate limiting and a
// circuit breaker per host. It is shared by all fetches so connections are
// reused.
type Client struct {
	Resty    *resty.Client
	Limiter  *rate.Limiter
	Breakers *resilience.Group

	logger *zap.Logger
}

// New creates a client
func New(opts Options, logger *zap.Logger) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRedirects < 0 {
		opts.MaxRedirects = 0
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.Retries
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = time.Second
	retryClient.Logger = nil
	// Hand back the last response instead of an error so error pages still parse
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	// Redirects are followed by the outer client so the hop limit applies
	retryClient.HTTPClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(opts.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(opts.MaxRedirects)).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Encoding", acceptEncoding)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	breaker := opts.Breaker
	prev := breaker.OnTransition
	breaker.OnTransition = func(name string, from, to resilience.State) {
		logger.Warn("fetch breaker state changed",
			zap.String("host", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		if prev != nil {
			prev(name, from, to)
		}
	}

	return &Client{
		Resty:    restyClient,
		Limiter:  limiter,
		Breakers: resilience.NewGroup(breaker),
		logger:   logger,
	}
}

// Fetch performs a GET of rawURL following redirects and returns the final
// page. Non-2xx statuses are not errors; only transport failures are.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	page, err := resilience.Do(c.Breakers.Get(u.Host), func() (*Page, error) {
		return c.get(ctx, u.String())
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrHostUnavailable, u.Host)
	}
	return page, err
}

func (c *Client) get(ctx context.Context, target string) (*Page, error) {
	req := c.Resty.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	tracing.Inject(ctx, req.Header)

	start := time.Now()
	resp, err := req.Get(target)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	body, err := io.ReadAll(io.LimitReader(raw, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	encoding := resp.Header().Get("Content-Encoding")
	body, err = decodeContent(encoding, body)
	if err != nil {
		return nil, fmt.Errorf("decode %s body: %w", encoding, err)
	}

	final := target
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		final = resp.RawResponse.Request.URL.String()
	}

	page := newPage(final, resp.StatusCode(), resp.Header().Get("Content-Type"), body)
	c.logger.Debug("fetched page",
		zap.String("url", final),
		zap.Int("status", page.Status),
		zap.String("content_type", page.ContentType),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return page, nil
}
