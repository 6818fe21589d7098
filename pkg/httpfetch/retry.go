package httpfetch

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagesched_fetch_retries_total",
		Help: "Total number of fetch retries, by error class.",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pagesched_fetch_retry_backoff_seconds",
		Help:    "Backoff duration slept before a retry attempt.",
		Buckets: prometheus.DefBuckets,
	})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagesched_fetch_retry_exhausted_total",
		Help: "Total number of fetches that exhausted all retry attempts.",
	}, []string{"error_class"})
)

// RetryConfig controls exponential backoff between fetch attempts.
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns a conservative general-purpose policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigForErrorClass tunes the backoff profile by failure cause: rate
// limiting warrants a longer initial wait than a transient server error,
// and network errors back off fastest since they're often a blip.
func RetryConfigForErrorClass(class ErrorClass) RetryConfig {
	switch class {
	case ErrorClassRateLimit:
		return RetryConfig{MaxAttempts: 5, InitialBackoff: 2 * time.Second, MaxBackoff: 60 * time.Second, BackoffMultiplier: 2.0}
	case ErrorClassServer:
		return RetryConfig{MaxAttempts: 4, InitialBackoff: 1 * time.Second, MaxBackoff: 30 * time.Second, BackoffMultiplier: 2.0}
	case ErrorClassNetwork:
		return RetryConfig{MaxAttempts: 3, InitialBackoff: 250 * time.Millisecond, MaxBackoff: 10 * time.Second, BackoffMultiplier: 1.5}
	default:
		return DefaultRetryConfig()
	}
}

// retryWithBackoff calls fn until it succeeds, fn's error class says not to
// retry, attempts are exhausted, or ctx is cancelled. Backoff grows
// exponentially with +/-20% jitter to avoid synchronized retries across
// concurrent fetches.
func retryWithBackoff(ctx context.Context, logger zerolog.Logger, class ErrorClass, fn func() error) error {
	cfg := RetryConfigForErrorClass(class)
	backoff := cfg.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var fe *FetchError
		attemptClass := class
		if errors.As(lastErr, &fe) {
			attemptClass = fe.Class
		}
		if !shouldRetry(attemptClass) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		jitter := 1 + (rand.Float64()*0.4 - 0.2)
		sleep := time.Duration(float64(backoff) * jitter)
		if sleep > cfg.MaxBackoff {
			sleep = cfg.MaxBackoff
		}

		logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Dur("backoff", sleep).
			Str("error_class", attemptClass.String()).
			Msg("fetch failed, retrying")

		retriesTotal.WithLabelValues(attemptClass.String()).Inc()
		retryBackoffSeconds.Observe(sleep.Seconds())

		select {
		case <-ctx.Done():
			return ErrContextCancelled
		case <-time.After(sleep):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	retryExhaustedTotal.WithLabelValues(class.String()).Inc()
	logger.Error().Err(lastErr).Int("max_attempts", cfg.MaxAttempts).Msg("retry attempts exhausted")
	return ErrRetryExhausted
}
