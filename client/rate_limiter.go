package client

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket over requests. A nil *RateLimiter never waits.
type RateLimiter struct {
	mu     sync.Mutex
	rate   float64 // requests per second
	tokens float64 // current available tokens
	last   time.Time
}

// NewRateLimiter returns a limiter allowing perSecond requests per second,
// or nil when perSecond is not positive.
func NewRateLimiter(perSecond int) *RateLimiter {
	if perSecond <= 0 {
		return nil
	}
	return &RateLimiter{rate: float64(perSecond), tokens: float64(perSecond), last: time.Now()}
}

// SetRate changes the allowed rate and clamps the bucket to it.
func (l *RateLimiter) SetRate(perSecond int) {
	if l == nil || perSecond <= 0 {
		return
	}
	l.mu.Lock()
	l.rate = float64(perSecond)
	l.tokens = min(l.tokens, l.rate)
	l.last = time.Now()
	l.mu.Unlock()
}

// Wait blocks until a request may be sent or ctx is done.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	for {
		l.mu.Lock()
		now := time.Now()
		if elapsed := now.Sub(l.last).Seconds(); elapsed > 0 {
			l.tokens = min(l.tokens+elapsed*l.rate, l.rate)
			l.last = now
		}
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
