package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited = errors.New("too many login attempts")
	ErrUnavailable = errors.New("rate limit store unavailable")
)

const keyPrefix = "auth:login:"

// LoginLimiter counts failed logins per email and per client IP in fixed
// windows. A limiter without a client allows everything.
type LoginLimiter struct {
	client      redis.UniversalClient
	maxAttempts int
	window      time.Duration
}

func NewLoginLimiter(client redis.UniversalClient, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

func (l *LoginLimiter) enabled() bool {
	return l != nil && l.client != nil && l.maxAttempts > 0
}

// Check reports ErrRateLimited once either counter has used its budget.
func (l *LoginLimiter) Check(ctx context.Context, email, ip string) error {
	if !l.enabled() {
		return nil
	}
	for _, key := range keys(email, ip) {
		n, err := l.client.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if n >= int64(l.maxAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

func (l *LoginLimiter) Fail(ctx context.Context, email, ip string) error {
	if !l.enabled() {
		return nil
	}
	for _, key := range keys(email, ip) {
		n, err := l.client.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if n == 1 {
			if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
	}
	return nil
}

// Reset clears the email counter. The IP counter keeps running so one
// valid account cannot be used to launder guesses against others.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if !l.enabled() {
		return nil
	}
	if err := l.client.Del(ctx, emailKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func keys(email, ip string) []string {
	out := []string{emailKey(email)}
	if ip != "" {
		out = append(out, keyPrefix+"ip:"+ip)
	}
	return out
}

func emailKey(email string) string {
	return keyPrefix + "email:" + strings.ToLower(strings.TrimSpace(email))
}
