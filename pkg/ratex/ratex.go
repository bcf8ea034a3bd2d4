// Package ratex provides per-key token-bucket rate limiting built on
// golang.org/x/time/rate. Keys are arbitrary strings (subject IDs,
// device identifiers) and limiters are created lazily on first use.
package ratex

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Keyed manages an independent token bucket per key.
type Keyed struct {
	limiters sync.Map // map[string]*rate.Limiter
	limit    rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

// NewKeyed creates a keyed limiter allowing events per window, with the
// given burst per key. Window must be positive.
func NewKeyed(events int, window time.Duration, burst int) *Keyed {
	return &Keyed{
		limit:       rate.Limit(float64(events) / window.Seconds()),
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

// Allow reports whether an event for key may proceed now.
func (k *Keyed) Allow(key string) bool {
	return k.limiter(key).Allow()
}

func (k *Keyed) limiter(key string) *rate.Limiter {
	if l, ok := k.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}

	l := rate.NewLimiter(k.limit, k.burst)
	actual, _ := k.limiters.LoadOrStore(key, l)

	k.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose buckets are full again. A full
// bucket means the key has been idle for at least one refill period, so
// dropping it and recreating later is equivalent.
func (k *Keyed) maybeCleanup() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if time.Since(k.lastCleanup) < 5*time.Minute {
		return
	}
	k.lastCleanup = time.Now()

	k.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(k.burst) {
			k.limiters.Delete(key)
		}
		return true
	})
}
