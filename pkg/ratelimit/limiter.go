// Package ratelimit throttles background LLM calls per thread with token
// buckets from golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

var ErrLimited = errors.New("background llm call rate limited")

// Config holds rate limiter configuration. A non-positive CallsPerMinute
// disables limiting.
type Config struct {
	CallsPerMinute int
	Burst          int
}

func DefaultConfig() Config {
	return Config{CallsPerMinute: 12, Burst: 2}
}

// Limiter keeps one bucket per key, created on first use.
type Limiter struct {
	config  Config
	buckets sync.Map // map[string]*rate.Limiter
}

func NewLimiter(config Config) *Limiter {
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &Limiter{config: config}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.config.CallsPerMinute > 0
}

// Allow takes one token for key without waiting.
func (l *Limiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}
	return l.bucket(key).Allow()
}

// Wait blocks until a token for key is available or ctx is done. It fails
// fast with ErrLimited when the wait would outlast the context deadline.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	if err := l.bucket(key).Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Join(ErrLimited, err)
	}
	return nil
}

// Tokens reports the tokens currently available for key.
func (l *Limiter) Tokens(key string) float64 {
	if !l.Enabled() {
		return float64(l.config.Burst)
	}
	return l.bucket(key).Tokens()
}

// Forget drops the bucket for key.
func (l *Limiter) Forget(key string) {
	l.buckets.Delete(key)
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	if cached, ok := l.buckets.Load(key); ok {
		return cached.(*rate.Limiter)
	}
	every := rate.Limit(float64(l.config.CallsPerMinute) / 60.0)
	actual, _ := l.buckets.LoadOrStore(key, rate.NewLimiter(every, l.config.Burst))
	return actual.(*rate.Limiter)
}
