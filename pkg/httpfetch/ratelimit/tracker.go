package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	errorsRemainingGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pagesched_errors_remaining",
		Help: "Number of errors remaining in the current rate limit window.",
	})

	blocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagesched_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to critical error budget.",
	})

	throttlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagesched_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to warning error budget.",
	})
)

// HeaderNames configures which response headers carry the remaining-error
// count and the reset-in-seconds value. Generalized from the teacher's
// hard-coded X-ESI-Error-Limit-* pair, since other APIs use different names
// for the same convention (e.g. X-RateLimit-Remaining / X-RateLimit-Reset).
type HeaderNames struct {
	Remaining string
	ResetIn   string
}

// DefaultHeaderNames mirrors the common "X-RateLimit-*" convention.
func DefaultHeaderNames() HeaderNames {
	return HeaderNames{Remaining: "X-RateLimit-Remaining", ResetIn: "X-RateLimit-Reset"}
}

// Redis keys used to persist State across client instances.
const (
	redisKeyErrorsRemaining = "pagesched:rate_limit:errors_remaining"
	redisKeyResetTimestamp  = "pagesched:rate_limit:reset_timestamp"
	redisKeyLastUpdate      = "pagesched:rate_limit:last_update"
)

// Tracker monitors an upstream's error rate limit headers and gates
// requests against them.
type Tracker struct {
	redis   *redis.Client
	logger  zerolog.Logger
	headers HeaderNames
}

// NewTracker constructs a Tracker. A zero-value headers argument defaults
// to DefaultHeaderNames.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger, headers HeaderNames) *Tracker {
	if headers.Remaining == "" {
		headers = DefaultHeaderNames()
	}
	return &Tracker{redis: redisClient, logger: logger, headers: headers}
}

// GetState retrieves the current rate limit state from Redis, returning a
// default healthy state if none exists yet.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	errorsRemaining, err := t.redis.Get(ctx, redisKeyErrorsRemaining).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get errors remaining: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, redisKeyResetTimestamp).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, redisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	if err == redis.Nil {
		t.logger.Debug().Msg("no rate limit state in redis, returning default healthy state")
		return &State{
			ErrorsRemaining: 100,
			ResetAt:         time.Now().Add(60 * time.Second),
			LastUpdate:      time.Now(),
			IsHealthy:       true,
		}, nil
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &State{
		ErrorsRemaining: errorsRemaining,
		ResetAt:         time.Unix(resetTimestamp, 0),
		LastUpdate:      lastUpdate,
	}
	state.UpdateHealth()
	return state, nil
}

// UpdateFromHeaders parses the configured rate limit headers from an HTTP
// response and persists the resulting state to Redis. A response with
// neither header present is left untouched (not every endpoint reports a
// budget).
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(t.headers.Remaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", t.headers.Remaining, err)
	}

	resetStr := headers.Get(t.headers.ResetIn)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", t.headers.ResetIn)
	}

	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", t.headers.ResetIn, err)
	}

	now := time.Now()
	state := &State{
		ErrorsRemaining: remain,
		ResetAt:         now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate:      now,
	}
	state.UpdateHealth()

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, redisKeyErrorsRemaining, remain, 0)
	pipe.Set(ctx, redisKeyResetTimestamp, state.ResetAt.Unix(), 0)

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}
	pipe.Set(ctx, redisKeyLastUpdate, lastUpdateJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	errorsRemainingGauge.Set(float64(remain))

	logEvent := t.logger.Info().
		Int("errors_remaining", remain).
		Time("reset_at", state.ResetAt).
		Bool("is_healthy", state.IsHealthy)
	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().Int("errors_remaining", remain).Msg("error budget critical, requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().Int("errors_remaining", remain).Msg("error budget low, requests will be throttled")
	default:
		logEvent.Msg("rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest reports whether a request should proceed given the
// current state. It blocks outright below ThresholdCritical; between that
// and ThresholdWarning it sleeps briefly before allowing the request
// through, matching spec.md's note that only a concurrency cap (not
// upstream-aware rate limiting) lives inside the scheduler core itself -
// this throttle is entirely the caller-side collaborator's business.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("errors_remaining", state.ErrorsRemaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("error budget critical, blocking request")
		blocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().Int("errors_remaining", state.ErrorsRemaining).Msg("error budget low, throttling request")
		throttlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}

	return true, nil
}
