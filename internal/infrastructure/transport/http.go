package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/GriffinCanCode/casdk/internal/infrastructure/resilience"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// HTTPFetcher reads paths relative to a base URL. Requests are rate
// limited, retried on transient errors and guarded by a circuit breaker.
type HTTPFetcher struct {
	base    string
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*httpOptions)

type httpOptions struct {
	timeout   time.Duration
	retries   int
	minWait   time.Duration
	maxWait   time.Duration
	rps       float64
	settings  resilience.Settings
	userAgent string
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) HTTPOption {
	return func(o *httpOptions) { o.timeout = d }
}

// WithRetry configures transient error retries.
func WithRetry(max int, minWait, maxWait time.Duration) HTTPOption {
	return func(o *httpOptions) {
		o.retries = max
		o.minWait = minWait
		o.maxWait = maxWait
	}
}

// WithRateLimit caps requests per second. Zero or less means unlimited.
func WithRateLimit(rps float64) HTTPOption {
	return func(o *httpOptions) { o.rps = rps }
}

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(settings resilience.Settings) HTTPOption {
	return func(o *httpOptions) { o.settings = settings }
}

// NewHTTPFetcher creates a fetcher for base.
func NewHTTPFetcher(base string, opts ...HTTPOption) *HTTPFetcher {
	o := httpOptions{
		timeout:   5 * time.Second,
		retries:   2,
		minWait:   100 * time.Millisecond,
		maxWait:   2 * time.Second,
		userAgent: "casdk/1.0",
		settings: resilience.Settings{
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts resilience.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = o.retries
	retryClient.RetryWaitMin = o.minWait
	retryClient.RetryWaitMax = o.maxWait
	retryClient.Logger = nil

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(o.timeout).
		SetHeader("User-Agent", o.userAgent)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if o.rps > 0 {
		burst := int(o.rps)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(o.rps), burst)
	}

	return &HTTPFetcher{
		base:    strings.TrimRight(base, "/"),
		resty:   restyClient,
		limiter: limiter,
		breaker: resilience.New("http:"+base, o.settings),
	}
}

// Breaker exposes the fetcher's circuit breaker.
func (f *HTTPFetcher) Breaker() *resilience.Breaker {
	return f.breaker
}

// URL returns the absolute URL for path.
func (f *HTTPFetcher) URL(path string) string {
	return f.base + "/" + strings.TrimLeft(path, "/")
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	url := f.URL(path)
	resp, err := resilience.Call(ctx, f.breaker, func(ctx context.Context) (*resty.Response, error) {
		resp, err := f.resty.R().SetContext(ctx).Get(url)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, fmt.Errorf("GET %s: %s", url, resp.Status())
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.IsError():
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status())
	}

	body := resp.Body()
	if strings.HasSuffix(path, ".gz") {
		return Gunzip(body)
	}
	return body, nil
}
