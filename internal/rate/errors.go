package rate

import "errors"

var (
	// ErrRateLimited means the issue/tag pair used up its dispatch budget for the window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps store failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
