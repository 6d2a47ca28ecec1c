// Package ratelimit throttles chat users, outgoing LINE replies and
// report exports.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Bucket is a token bucket: it holds up to capacity tokens and regains
// rate tokens per second. Each request spends one token.
type Bucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	last     time.Time
	now      func() time.Time
}

// NewBucket returns a full bucket.
func NewBucket(capacity, perSecond float64) *Bucket {
	return newBucket(capacity, perSecond, time.Now)
}

func newBucket(capacity, perSecond float64, now func() time.Time) *Bucket {
	return &Bucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     perSecond,
		last:     now(),
		now:      now,
	}
}

// advance credits tokens earned since the last call. mu must be held.
func (b *Bucket) advance() {
	t := b.now()
	if elapsed := t.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.rate)
	}
	b.last = t
}

// Allow spends a token if one is available.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.spend()
}

func (b *Bucket) spend() bool {
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// ready reports whether a token is available without spending it.
func (b *Bucket) ready() bool {
	return b.Tokens() >= 1
}

// delay is how long until the next token. mu must be held.
func (b *Bucket) delay() time.Duration {
	if b.rate <= 0 {
		return time.Second
	}
	return time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
}

// Wait blocks until a token is spent or ctx is done.
func (b *Bucket) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		b.advance()
		if b.spend() {
			b.mu.Unlock()
			return nil
		}
		d := b.delay()
		b.mu.Unlock()

		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tokens returns the tokens currently available.
func (b *Bucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.tokens
}

func (b *Bucket) full() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.tokens >= b.capacity
}
