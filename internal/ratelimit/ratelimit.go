// Package ratelimit counts requests per client in Redis and blocks a client
// for a fixed period once it exceeds the limit inside a window.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	block  time.Duration
	prefix string
	lg     *zap.SugaredLogger
}

// New returns a Limiter. A nil rdb yields a limiter that allows everything.
func New(rdb *redis.Client, limit int, window, block time.Duration, prefix string, lg *zap.SugaredLogger) *Limiter {
	if lg == nil {
		lg = zap.NewNop().Sugar()
	}
	return &Limiter{rdb: rdb, limit: limit, window: window, block: block, prefix: prefix, lg: lg}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Allow counts one hit for clientID. Redis failures allow the request.
func (l *Limiter) Allow(ctx context.Context, clientID string) Decision {
	if l == nil || l.rdb == nil || l.limit <= 0 {
		return Decision{Allowed: true, Remaining: -1}
	}
	key := l.prefix + ":" + clientID
	blockKey := key + ":blocked"

	if blocked, _ := l.rdb.Get(ctx, blockKey).Result(); blocked == "1" {
		ttl, _ := l.rdb.TTL(ctx, blockKey).Result()
		return Decision{RetryAfter: ttl}
	}

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		l.lg.Warnw("rate limiter unavailable, allowing request", "key", key, "error", err)
		return Decision{Allowed: true, Remaining: -1}
	}
	if count == 1 {
		// A counter without a TTL would never reset; drop it and let the
		// request through.
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			l.lg.Warnw("rate limiter expire failed, allowing request", "key", key, "error", err)
			l.rdb.Del(ctx, key)
			return Decision{Allowed: true, Remaining: -1}
		}
	}
	if count > int64(l.limit) {
		if err := l.rdb.Set(ctx, blockKey, "1", l.block).Err(); err != nil {
			l.lg.Warnw("rate limiter block failed", "key", key, "error", err)
		}
		l.lg.Infow("client blocked", "key", key, "for", l.block.String())
		return Decision{RetryAfter: l.block}
	}
	return Decision{Allowed: true, Remaining: l.limit - int(count)}
}

// ClientIP returns RemoteAddr without its port. Forwarding headers are left
// to middleware.RealIP in front of the limiter.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Middleware limits requests by client IP. deny writes the rejection.
func (l *Limiter) Middleware(deny func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Allow(r.Context(), "ip:"+ClientIP(r))
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter.Seconds())))
				deny(w, r, d.RetryAfter)
				return
			}
			if d.Remaining >= 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Connect parses url and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
