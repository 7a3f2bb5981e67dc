package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/catalog-api/utils/response"
)

// AttemptStore keeps login attempt counters; cache.RedisCache implements it
type AttemptStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// BruteForceProtection locks out IPs after repeated failed logins. A nil
// store disables it.
type BruteForceProtection struct {
	store AttemptStore
}

// NewBruteForceProtection creates a new brute force protection instance
func NewBruteForceProtection(store AttemptStore) *BruteForceProtection {
	return &BruteForceProtection{
		store: store,
	}
}

func attemptKey(ip string) string { return fmt.Sprintf("brute_force:attempts:%s", ip) }
func lockKey(ip string) string    { return fmt.Sprintf("brute_force:lock:%s", ip) }

// CheckAndRecordAttempt middleware checks if IP is locked out
func (b *BruteForceProtection) CheckAndRecordAttempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if b == nil || b.store == nil {
			return c.Next()
		}
		ctx := c.UserContext()
		key := lockKey(c.IP())

		locked, err := b.store.Exists(ctx, key)
		if err != nil {
			// Don't block legitimate users due to cache issues
			return c.Next()
		}

		if locked {
			ttl, _ := b.store.TTL(ctx, key)
			retryAfter := int(ttl.Seconds())
			if retryAfter <= 0 {
				retryAfter = 60
			}

			c.Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			return response.TooManyRequests(c, fmt.Sprintf("Too many failed attempts. Try again in %d seconds", retryAfter))
		}

		return c.Next()
	}
}

// RecordFailedAttempt records a failed login attempt and applies progressive lockouts
func (b *BruteForceProtection) RecordFailedAttempt(ctx context.Context, ip string) error {
	if b == nil || b.store == nil {
		return nil
	}

	attempts, err := b.store.Increment(ctx, attemptKey(ip))
	if err != nil {
		// If Redis is down, just return without blocking
		return nil
	}

	// 15 minute window
	if attempts == 1 {
		_ = b.store.Expire(ctx, attemptKey(ip), 15*time.Minute)
	}

	var lockDuration time.Duration
	switch {
	case attempts >= 25:
		lockDuration = 24 * time.Hour
	case attempts >= 10:
		lockDuration = time.Hour
	case attempts >= 5:
		lockDuration = 2 * time.Minute
	default:
		return nil
	}

	return b.store.Set(ctx, lockKey(ip), "locked", lockDuration)
}

// RecordSuccessfulAttempt clears failed attempts on successful login
func (b *BruteForceProtection) RecordSuccessfulAttempt(ctx context.Context, ip string) error {
	if b == nil || b.store == nil {
		return nil
	}
	return b.store.Delete(ctx, attemptKey(ip), lockKey(ip))
}
