package httpfetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fenwicklabs/pagesched/pkg/httpfetch/cache"
	"github.com/fenwicklabs/pagesched/pkg/httpfetch/ratelimit"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagesched_fetch_requests_total",
		Help: "Total fetches by endpoint and outcome status.",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pagesched_fetch_duration_seconds",
		Help:    "Fetch duration in seconds by endpoint.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagesched_fetch_errors_total",
		Help: "Total fetch errors by class.",
	}, []string{"class"})
)

// Client is a cache- and rate-limit-aware HTTP client for a single
// paginated JSON API. It is a collaborator built to sit behind a
// scheduler.FetchFunc, not a part of the scheduler itself: the scheduler
// core only ever sees the Response/error that a FetchFunc returns.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds Client configuration.
type Config struct {
	// Redis backs both the response cache and the rate limit tracker.
	Redis *redis.Client

	// BaseURL is prefixed to every path passed to Get, e.g.
	// "https://api.example.com".
	BaseURL string

	// UserAgent identifies this client to the upstream API. Most
	// paginated JSON APIs expect a contactable User-Agent; this mirrors
	// that convention rather than any one API's specific requirement.
	UserAgent string

	// ErrorThreshold is the minimum NeedsCriticalBlock threshold this
	// client will accept; values below ratelimit.ThresholdCritical are
	// rejected by New since they would never actually block anything.
	ErrorThreshold int

	// RateLimitHeaders names the response headers carrying the
	// remaining-error count and reset-in-seconds value.
	RateLimitHeaders ratelimit.HeaderNames

	// RespectExpires, when true (the only supported mode), derives
	// cache TTL from the upstream Expires header rather than a fixed
	// duration.
	RespectExpires bool

	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration for the given Redis
// client and identifying User-Agent string.
func DefaultConfig(redisClient *redis.Client, userAgent string) Config {
	return Config{
		Redis:            redisClient,
		UserAgent:        userAgent,
		ErrorThreshold:   ratelimit.ThresholdCritical,
		RateLimitHeaders: ratelimit.DefaultHeaderNames(),
		RespectExpires:   true,
		Timeout:          30 * time.Second,
	}
}

// New constructs a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("httpfetch: redis client is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("httpfetch: user agent is required")
	}
	if !cfg.RespectExpires {
		return nil, fmt.Errorf("httpfetch: RespectExpires must be true")
	}
	if cfg.ErrorThreshold < ratelimit.ThresholdCritical {
		return nil, fmt.Errorf("httpfetch: error threshold must be >= %d (got %d)", ratelimit.ThresholdCritical, cfg.ErrorThreshold)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "httpfetch").Logger()

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: ratelimit.NewTracker(cfg.Redis, logger, cfg.RateLimitHeaders),
		cache:       cache.NewManager(cfg.Redis),
		config:      cfg,
		logger:      logger,
	}, nil
}

// Do executes req with rate limiting, conditional-request caching, and
// retry with backoff. Network failures and 5xx/429 responses are retried;
// 4xx responses are returned to the caller untouched.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, ErrRateLimited
	}

	cacheKey := cache.Key{Endpoint: endpoint, QueryParams: req.URL.Query()}
	cachedEntry, err := c.cache.Get(ctx, cacheKey)
	if err != nil && err != cache.ErrCacheMiss {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("cache get error")
	}

	if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		c.logger.Debug().Str("endpoint", endpoint).Str("etag", cachedEntry.ETag).Msg("making conditional request")
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	var resp *http.Response
	var errClass ErrorClass

	retryErr := retryWithBackoff(ctx, c.logger, ErrorClassNone, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			errClass = ErrorClassNetwork
			errorsTotal.WithLabelValues(errClass.String()).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &FetchError{Class: errClass, Message: reqErr.Error(), Err: reqErr}
		}

		if updateErr := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); updateErr != nil {
			c.logger.Warn().Err(updateErr).Msg("failed to update rate limit from headers")
		}

		if resp.StatusCode == http.StatusNotModified {
			return nil
		}

		if resp.StatusCode >= 400 {
			errClass = classifyStatus(resp.StatusCode)
			errorsTotal.WithLabelValues(errClass.String()).Inc()
			requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

			if shouldRetry(errClass) {
				fe := &FetchError{StatusCode: resp.StatusCode, Class: errClass, Message: resp.Status}
				resp.Body.Close()
				return fe
			}
			return nil
		}

		requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return nil
	})

	if retryErr != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, retryErr
	}

	if resp.StatusCode == http.StatusNotModified {
		requestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModified.Inc()
		if expiresStr := resp.Header.Get("Expires"); expiresStr != "" && cachedEntry != nil {
			if newExpires, parseErr := http.ParseTime(expiresStr); parseErr == nil {
				if updateErr := c.cache.UpdateTTL(ctx, cacheKey, newExpires); updateErr != nil {
					c.logger.Warn().Err(updateErr).Msg("failed to update cache ttl")
				}
			}
		}
		resp.Body.Close()
		return cache.EntryToResponse(cachedEntry), nil
	}

	if resp.StatusCode == http.StatusOK {
		entry, convErr := cache.ResponseToEntry(resp)
		if convErr != nil {
			c.logger.Warn().Err(convErr).Msg("failed to build cache entry")
		} else if entry.TTL() > 0 {
			if setErr := c.cache.Set(ctx, cacheKey, entry); setErr != nil {
				c.logger.Warn().Err(setErr).Msg("failed to cache response")
			}
		}
	}

	return resp, nil
}

// Get performs a GET request against path, resolved relative to BaseURL.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.Do(req)
}

// SetHTTPClient overrides the underlying *http.Client, primarily for tests.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// Cache exposes the underlying cache.Manager, primarily for tests.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// Collectors returns the package-level Prometheus collectors so a caller
// can register them alongside a scheduler's own.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{requestsTotal, requestDuration, errorsTotal}
}
