package repo

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Redis struct{ C *redis.Client }

func NewRedis(addr string) *Redis {
	return &Redis{C: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.C.Close() }

func revokedKey(jti string) string { return "auth:revoked:" + jti }

// Revoke denylists a token id until its own expiry; after that the token is
// rejected by its exp claim anyway.
func (r *Redis) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if jti == "" || ttl <= 0 {
		return nil
	}
	return r.C.Set(ctx, revokedKey(jti), 1, ttl).Err()
}

func (r *Redis) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := r.C.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	r      *Redis
	limit  int
	window time.Duration
}

func (r *Redis) Limiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{r: r, limit: limit, window: window}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	k := "auth:rl:" + key
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.r.C.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		ttl = p.TTL(ctx, k)
		return nil
	})
	if err != nil {
		return false, err
	}
	n := incr.Val()
	// a window without expiry is repaired on the next hit, whichever call
	// created it
	if ttl.Val() < 0 {
		if err := l.r.C.Expire(ctx, k, l.window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(l.limit), nil
}
