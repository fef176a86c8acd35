package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const resetThrottlePrefix = "pwreset:throttle:"

// ResetThrottle counts password-reset requests per email in a fixed window.
type ResetThrottle struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewResetThrottle returns a throttle allowing limit requests per window.
// A non-positive limit disables throttling.
func NewResetThrottle(r *Redis, limit int, window time.Duration) *ResetThrottle {
	var client *redis.Client
	if r != nil {
		client = r.Client
	}
	return &ResetThrottle{client: client, limit: int64(limit), window: window}
}

// Allow increments the counter for email and reports whether another
// message may be sent. Emails are stored hashed.
func (t *ResetThrottle) Allow(ctx context.Context, email string) (bool, error) {
	if t == nil || t.client == nil || t.limit <= 0 {
		return true, nil
	}

	key := resetThrottleKey(email)
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= t.limit, nil
}

func resetThrottleKey(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return resetThrottlePrefix + hex.EncodeToString(sum[:])
}
