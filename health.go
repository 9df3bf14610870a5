package goRelay

import (
	"context"
	"time"
)

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisConfigured bool
	RedisAvailable  bool
	RedisLatency    time.Duration
	AppAuthEnabled  bool
}

// Health pings Redis when the dispatch throttle uses it. It does not call GitHub.
func (r *Relay) Health(ctx context.Context) HealthStatus {
	if r == nil {
		return HealthStatus{}
	}

	status := HealthStatus{
		AppAuthEnabled: r.assembler != nil,
	}
	if r.redis == nil {
		return status
	}
	status.RedisConfigured = true

	start := time.Now()
	err := r.redis.Ping(ctx).Err()
	status.RedisLatency = time.Since(start)
	status.RedisAvailable = err == nil

	return status
}
