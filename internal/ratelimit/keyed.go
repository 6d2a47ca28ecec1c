package ratelimit

import (
	"sync"
	"time"

	"github.com/garyellow/geo-linebot-go/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	Name       string  // metrics label, e.g. "user" or "export"
	Burst      float64 // bucket capacity per key
	RefillRate float64 // tokens per second per key

	// DailyLimit caps requests per key over a rolling 24h period. 0 disables it.
	DailyLimit int

	// CleanupPeriod is how often idle keys are forgotten. Defaults to 5m.
	CleanupPeriod time.Duration

	Metrics *metrics.Metrics
}

// KeyedLimiter gives every key (a chat, a user) its own bucket and optional
// daily quota. Keys whose bucket has refilled and whose quota is unused are
// dropped by a background sweep.
type KeyedLimiter struct {
	cfg  KeyedConfig
	now  func() time.Time
	mu   sync.Mutex
	keys map[string]*keyState
	stop chan struct{}
	once sync.Once
}

type keyState struct {
	mu     sync.Mutex // serializes check-then-spend across both limits
	bucket *Bucket
	daily  *window
}

// NewKeyedLimiter starts the idle-key sweep. Call Stop when done.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	kl := newKeyed(cfg, time.Now)
	go kl.sweepLoop()
	return kl
}

func newKeyed(cfg KeyedConfig, now func() time.Time) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	return &KeyedLimiter{
		cfg:  cfg,
		now:  now,
		keys: make(map[string]*keyState),
		stop: make(chan struct{}),
	}
}

// Allow spends one request for key. Both the bucket and the daily quota
// must have room; neither is charged when either refuses.
// An empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	ks := kl.state(key)

	ks.mu.Lock()
	defer ks.mu.Unlock()
	if !ks.daily.ready() || !ks.bucket.ready() {
		if kl.cfg.Metrics != nil {
			kl.cfg.Metrics.RecordRateLimiterDrop(kl.cfg.Name)
		}
		return false
	}
	ks.daily.add()
	ks.bucket.Allow()
	return true
}

func (kl *KeyedLimiter) state(key string) *keyState {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	ks, ok := kl.keys[key]
	if !ok {
		ks = &keyState{
			bucket: newBucket(kl.cfg.Burst, kl.cfg.RefillRate, kl.now),
			daily:  newWindow(kl.cfg.DailyLimit, 24*time.Hour, kl.now),
		}
		kl.keys[key] = ks
	}
	return ks
}

func (kl *KeyedLimiter) lookup(key string) (*keyState, bool) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	ks, ok := kl.keys[key]
	return ks, ok
}

// Tokens returns the bucket tokens left for key.
func (kl *KeyedLimiter) Tokens(key string) float64 {
	if ks, ok := kl.lookup(key); ok {
		return ks.bucket.Tokens()
	}
	return kl.cfg.Burst
}

// DailyRemaining returns the daily quota left for key, or -1 when no daily
// limit is configured.
func (kl *KeyedLimiter) DailyRemaining(key string) int {
	if kl.cfg.DailyLimit <= 0 {
		return -1
	}
	if ks, ok := kl.lookup(key); ok {
		return ks.daily.remaining()
	}
	return kl.cfg.DailyLimit
}

// Len returns the number of tracked keys.
func (kl *KeyedLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.keys)
}

// sweep forgets idle keys and returns how many are left.
func (kl *KeyedLimiter) sweep() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	for key, ks := range kl.keys {
		if ks.bucket.full() && ks.daily.empty() {
			delete(kl.keys, key)
		}
	}
	n := len(kl.keys)
	if kl.cfg.Metrics != nil {
		kl.cfg.Metrics.SetRateLimiterUsers(kl.cfg.Name, n)
	}
	return n
}

func (kl *KeyedLimiter) sweepLoop() {
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-kl.stop:
			return
		case <-ticker.C:
			kl.sweep()
		}
	}
}

// Stop ends the sweep. It is safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.once.Do(func() { close(kl.stop) })
}
