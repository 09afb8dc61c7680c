package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more request for key fits in the budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter shared by every instance of the service.
type RedisLimiter struct {
	Redis  *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
}

func NewRedisLimiter(r *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{Redis: r, Prefix: prefix, Limit: limit, Window: window}
}

// Allow counts the hit and arms the window TTL in one MULTI/EXEC. EXPIRE NX
// only sets the TTL when the key has none, so the window starts at the first
// hit and is never extended. Requires Redis 7.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", r.Prefix, key)
	var (
		incr   *redis.IntCmd
		expire *redis.BoolCmd
	)
	_, err := r.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		expire = pipe.ExpireNX(ctx, redisKey, r.Window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", redisKey, err)
	}
	count, err := incr.Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if err := expire.Err(); err != nil {
		return false, fmt.Errorf("rate limit expire: %w", err)
	}
	return count <= int64(r.Limit), nil
}

// MemoryLimiter keeps a token bucket per key in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	ttl      time.Duration
	swept    time.Time
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLimiter(perMinute, burst int) *MemoryLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		ttl:      3 * time.Minute,
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	if now.Sub(l.swept) > l.ttl {
		for k, other := range l.visitors {
			if now.Sub(other.lastSeen) > l.ttl {
				delete(l.visitors, k)
			}
		}
		l.swept = now
	}
	return v.limiter.AllowN(now, 1), nil
}

// RateLimit throttles by session user when one is attached and by client IP
// otherwise. A limiter error lets the request through.
func RateLimit(l Limiter, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, err := l.Allow(c.UserContext(), limitKey(c))
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		if !ok {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}

func limitKey(c *fiber.Ctx) string {
	if id, ok := IdentityFrom(c); ok {
		return "user:" + id.UserID
	}
	return "ip:" + c.IP()
}
