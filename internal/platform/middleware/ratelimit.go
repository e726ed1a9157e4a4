package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// RouteClass buckets endpoints into independent rate-limit budgets so a
// client exhausting one class cannot starve another.
type RouteClass string

const (
	ClassAPI    RouteClass = "api"
	ClassAuth   RouteClass = "auth"
	ClassPublic RouteClass = "public"
)

// CounterStore persists window counters. The memory store serves a single
// node; the Redis store shares counters across instances.
type CounterStore interface {
	// Get returns the current value of key, 0 when absent.
	Get(ctx context.Context, key string) (int64, error)
	// Incr increments key by one, setting ttl on first increment.
	Incr(ctx context.Context, key string, ttl time.Duration) error
}

// RateLimiter applies a sliding-window limit per (route class, client).
// The effective count weighs the previous window by the unelapsed fraction of
// the current one, so the limit cannot be doubled by straddling a window
// boundary. A rejected request does not consume a slot: the counter is only
// incremented after the check passes, so a throttled client's budget recovers
// as soon as it backs off.
type RateLimiter struct {
	store  CounterStore
	window time.Duration
	limits map[RouteClass]int
	now    func() time.Time
}

func NewRateLimiter(store CounterStore, window time.Duration, limits map[RouteClass]int) *RateLimiter {
	return &RateLimiter{
		store:  store,
		window: window,
		limits: limits,
		now:    time.Now,
	}
}

// Allow reports whether one more request from client in class fits the
// budget, and the suggested retry delay when it does not. Store failures
// fail open with a logged warning so a counter outage cannot take down the
// data path.
func (r *RateLimiter) Allow(ctx context.Context, class RouteClass, client string) (bool, time.Duration) {
	limit, ok := r.limits[class]
	if !ok || limit <= 0 {
		return true, 0
	}

	now := r.now()
	windowStart := now.Truncate(r.window)
	elapsed := now.Sub(windowStart)

	currKey := counterKey(class, client, windowStart)
	prevKey := counterKey(class, client, windowStart.Add(-r.window))

	curr, err := r.store.Get(ctx, currKey)
	if err != nil {
		log.Warn().Err(err).Msg("rate limit counter unavailable, failing open")
		return true, 0
	}
	prev, err := r.store.Get(ctx, prevKey)
	if err != nil {
		log.Warn().Err(err).Msg("rate limit counter unavailable, failing open")
		return true, 0
	}

	prevWeight := 1 - float64(elapsed)/float64(r.window)
	effective := float64(curr) + float64(prev)*prevWeight
	if effective >= float64(limit) {
		retry := r.window - elapsed
		if retry < time.Second {
			retry = time.Second
		}
		return false, retry
	}

	// Counters expire two windows out so the previous window is still
	// readable for the weighted check.
	if err := r.store.Incr(ctx, currKey, 2*r.window); err != nil {
		log.Warn().Err(err).Msg("rate limit counter increment failed")
	}
	return true, 0
}

func counterKey(class RouteClass, client string, windowStart time.Time) string {
	return "rl:" + string(class) + ":" + client + ":" + strconv.FormatInt(windowStart.Unix(), 10)
}

// Middleware returns the echo middleware enforcing the given class budget,
// keyed by client IP.
func (r *RateLimiter) Middleware(class RouteClass) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, retry := r.Allow(c.Request().Context(), class, c.RealIP())
			if !ok {
				c.Response().Header().Set("Retry-After",
					strconv.Itoa(int(retry.Round(time.Second).Seconds())))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

// MemoryCounterStore is a process-local CounterStore for development and
// single-node deployments.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]memoryCounter
}

type memoryCounter struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]memoryCounter)}
}

func (s *MemoryCounterStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[key]
	if !ok || time.Now().After(c.expiresAt) {
		return 0, nil
	}
	return c.count, nil
}

func (s *MemoryCounterStore) Incr(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c, ok := s.counters[key]
	if !ok || now.After(c.expiresAt) {
		s.counters[key] = memoryCounter{count: 1, expiresAt: now.Add(ttl)}
	} else {
		c.count++
		s.counters[key] = c
	}

	// Opportunistic sweep keeps the map from accumulating dead windows.
	if len(s.counters) > 4096 {
		for k, v := range s.counters {
			if now.After(v.expiresAt) {
				delete(s.counters, k)
			}
		}
	}
	return nil
}
