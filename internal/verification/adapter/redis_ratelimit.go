package adapter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	redisclient "github.com/zonixt/eauction/internal/redis"
	"github.com/zonixt/eauction/internal/verification/app"
)

// rateLimitScript increments a fixed-window counter and sets its TTL only on
// the first hit, so the window never slides forward.
var rateLimitScript = redisclient.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`)

var _ app.RateLimiter = (*RateLimiter)(nil)

// RateLimiter implements fixed-window rate limiting backed by Redis.
type RateLimiter struct {
	cmd redisclient.Cmdable
}

// NewRateLimiter creates a RateLimiter that uses cmd for Redis operations.
func NewRateLimiter(cmd redisclient.Cmdable) *RateLimiter {
	return &RateLimiter{cmd: cmd}
}

// CheckAndIncrement counts one hit against key and reports whether the count
// is still within limit for the current window of windowSeconds. On Redis
// failure it returns (false, err); the caller decides whether to fail open.
func (r *RateLimiter) CheckAndIncrement(ctx context.Context, key string, limit, windowSeconds int) (bool, error) {
	ctx, span := tracer.Start(ctx, "redis.ratelimit.check")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "EVALSHA"),
	)

	count, err := rateLimitScript.Run(ctx, r.cmd, []string{key}, windowSeconds).Int64()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("rate limit check %q: %w", key, err)
	}

	return count <= int64(limit), nil
}
