package safety

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements token bucket rate limiting in front of a venue's REST API
type RateLimiter struct {
	capacity   int        // Maximum number of tokens
	tokens     int        // Current number of tokens
	refillRate int        // Tokens added per second
	lastRefill time.Time  // Last time tokens were added
	mutex      sync.Mutex // Protects token count
	name       string
	now        func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(name string, capacity, refillRate int) *RateLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	if refillRate <= 0 {
		refillRate = 1
	}

	return &RateLimiter{
		capacity:   capacity,
		tokens:     capacity, // Start with full capacity
		refillRate: refillRate,
		lastRefill: time.Now(),
		name:       name,
		now:        time.Now,
	}
}

// Allow checks if an operation is allowed under the rate limit
func (rl *RateLimiter) Allow() bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refillTokens()

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.Allow() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rl.calculateWaitTime()):
		}
	}
}

// refillTokens adds tokens based on elapsed time. Caller holds the mutex.
func (rl *RateLimiter) refillTokens() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefill)
	if elapsed < time.Second {
		return
	}

	tokensToAdd := int(elapsed.Seconds()) * rl.refillRate
	if tokensToAdd > 0 {
		rl.tokens += tokensToAdd
		if rl.tokens > rl.capacity {
			rl.tokens = rl.capacity
		}
		rl.lastRefill = now
	}
}

func (rl *RateLimiter) calculateWaitTime() time.Duration {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refillTokens()
	if rl.tokens >= 1 {
		return 0
	}

	secondsToWait := 1.0 / float64(rl.refillRate)
	// small buffer for timer precision
	return time.Duration(secondsToWait*1000+50) * time.Millisecond
}

// GetStats returns current statistics about the rate limiter
func (rl *RateLimiter) GetStats() RateLimiterStats {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refillTokens()

	return RateLimiterStats{
		Name:       rl.name,
		Capacity:   rl.capacity,
		Tokens:     rl.tokens,
		RefillRate: rl.refillRate,
		LastRefill: rl.lastRefill,
	}
}

// RateLimiterStats holds statistics about a rate limiter
type RateLimiterStats struct {
	Name       string
	Capacity   int
	Tokens     int
	RefillRate int
	LastRefill time.Time
}
