package search

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter gates message fetches. It is shared by every worker of a
// search. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewLimiter allows rps fetches per second with a burst of rps. A
// non-positive rps never blocks.
func NewLimiter(rps int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), rps)
}
