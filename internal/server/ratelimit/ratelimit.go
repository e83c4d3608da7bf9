// Package ratelimit counts requests per key in fixed windows. Redis backs
// the counters when the service runs with a Redis refresh-token store, an
// in-process map otherwise.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps failures of the counter store.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Rule allows Limit requests per key within Window. A zero Limit disables
// the rule.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Enabled reports whether the rule limits anything.
func (r Rule) Enabled() bool {
	return r.Limit > 0 && r.Window > 0
}

// Limiter records one request for key and reports whether it is within the
// rule.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
