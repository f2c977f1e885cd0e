package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Action string

const (
	ActionSendMessage Action = "send_message"
	ActionCreateChat  Action = "create_chat"
	ActionTyping      Action = "typing"
	ActionUpload      Action = "upload"
	ActionRegister    Action = "register"
)

// Policy is a token bucket: Burst tokens, one refilled every Every.
type Policy struct {
	Burst int
	Every time.Duration
}

var DefaultPolicies = map[Action]Policy{
	// 30 messages per minute
	ActionSendMessage: {Burst: 30, Every: 2 * time.Second},
	// 10 group creations per hour
	ActionCreateChat: {Burst: 10, Every: 6 * time.Minute},
	// 60 typing=true writes per minute
	ActionTyping: {Burst: 60, Every: time.Second},
	// 20 uploads per 10 minutes
	ActionUpload: {Burst: 20, Every: 30 * time.Second},
	// 5 sign-ups per hour, keyed by client IP
	ActionRegister: {Burst: 5, Every: 12 * time.Minute},
}

var fallbackPolicy = Policy{Burst: 20, Every: 3 * time.Second}

type tokenBucket struct {
	tokens     int
	policy     Policy
	lastRefill time.Time
	lastUsed   time.Time
}

func (b *tokenBucket) allow(now time.Time) (bool, time.Duration) {
	if refills := int(now.Sub(b.lastRefill) / b.policy.Every); refills > 0 {
		b.tokens += refills
		if b.tokens > b.policy.Burst {
			b.tokens = b.policy.Burst
		}
		b.lastRefill = b.lastRefill.Add(time.Duration(refills) * b.policy.Every)
	}
	b.lastUsed = now

	if b.tokens > 0 {
		b.tokens--
		return true, 0
	}
	return false, b.lastRefill.Add(b.policy.Every).Sub(now)
}

// RateLimiter keeps one bucket per user and action.
type RateLimiter struct {
	policies map[Action]Policy
	now      func() time.Time

	mutex   sync.Mutex
	buckets map[string]*tokenBucket
}

// NewRateLimiter uses DefaultPolicies for actions missing from policies.
func NewRateLimiter(policies map[Action]Policy) *RateLimiter {
	merged := make(map[Action]Policy, len(DefaultPolicies))
	for action, p := range DefaultPolicies {
		merged[action] = p
	}
	for action, p := range policies {
		merged[action] = p
	}

	return &RateLimiter{
		policies: merged,
		now:      time.Now,
		buckets:  make(map[string]*tokenBucket),
	}
}

// Allow consumes a token for userID's action. When denied it also returns how
// long until the next token.
func (rl *RateLimiter) Allow(userID string, action Action) (bool, time.Duration) {
	key := userID + ":" + string(action)
	now := rl.now()

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	bucket, ok := rl.buckets[key]
	if !ok {
		policy, known := rl.policies[action]
		if !known {
			policy = fallbackPolicy
		}
		bucket = &tokenBucket{tokens: policy.Burst, policy: policy, lastRefill: now}
		rl.buckets[key] = bucket
	}

	return bucket.allow(now)
}

// Cleanup drops buckets idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	now := rl.now()

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	for key, bucket := range rl.buckets {
		if now.Sub(bucket.lastUsed) > idle {
			delete(rl.buckets, key)
		}
	}
}

// Run cleans up idle buckets every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rl.Cleanup(time.Hour)
		}
	}
}
