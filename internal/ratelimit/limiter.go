package ratelimit

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sessionforge/authgate/internal/quota"
)

const (
	// DefaultLimit is the request threshold per key per window.
	DefaultLimit = 100
	// DefaultWindow is the fixed window length.
	DefaultWindow = 15 * time.Minute
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
}

// Limiter is a fixed-window counter keyed by (caller, route) on top of a
// quota.Store. Infrastructure failures in the store fail open: the request is
// allowed and the failure is only logged, so rate limiting can never become a
// total outage.
type Limiter struct {
	store  quota.Store
	limit  int
	window time.Duration
}

// NewLimiter constructs a Limiter. Non-positive limit or window fall back to
// the defaults.
func NewLimiter(store quota.Store, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{store: store, limit: limit, window: window}
}

// Check increments the counter for (caller, route) and decides allow/deny.
// The window expiry is armed only on the 0->1 transition, so a burst
// straddling a window boundary does not re-arm it repeatedly.
func (l *Limiter) Check(ctx context.Context, caller, route string) Result {
	key := Key(caller, route)

	count, errIncr := l.store.Increment(ctx, key)
	if errIncr != nil {
		log.WithError(errIncr).WithField("key", key).Warn("rate limit: quota store failed, allowing request")
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit}
	}
	if count == 1 {
		if errExpire := l.store.ExpireAfter(ctx, key, l.window); errExpire != nil {
			log.WithError(errExpire).WithField("key", key).Warn("rate limit: arming window expiry failed")
		}
	}

	// The deny decision looks at the pre-increment count so the threshold-th
	// request is still allowed.
	if count-1 >= int64(l.limit) {
		return Result{Allowed: false, Limit: l.limit, Remaining: 0}
	}
	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Limit: l.limit, Remaining: remaining}
}
