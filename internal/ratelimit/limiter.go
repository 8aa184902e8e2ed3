package ratelimit

import "context"

// RateLimiter controls outbound push throughput per reminder kind.
type RateLimiter interface {
	Allow(ctx context.Context, kind string) (bool, error)
	Wait(ctx context.Context, kind string) error
}
