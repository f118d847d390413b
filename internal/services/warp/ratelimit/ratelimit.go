// Package ratelimit implements a fixed-window request limiter keyed by
// caller identity. Windows reset lazily on the first request after expiry;
// there is no background timer. Stale keys are swept opportunistically
// during Allow calls.
package ratelimit

import (
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

var rejectedTotal = metrics.NewCounter(`warppoint_ratelimit_rejected_total`)

const sweepInterval = 5 * time.Minute

type record struct {
	windowStart atomic.Int64 // unix millis
	count       atomic.Int64
}

// Limiter allows up to limit requests per key per window.
type Limiter struct {
	limit   int64
	window  time.Duration
	now     func() time.Time
	records *xsync.MapOf[string, *record]

	lastSweep atomic.Int64 // unix millis
}

// New creates a Limiter. A nil now falls back to time.Now.
func New(limit int, window time.Duration, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	l := &Limiter{
		limit:   int64(limit),
		window:  window,
		now:     now,
		records: xsync.NewMapOf[string, *record](),
	}
	l.lastSweep.Store(now().UnixMilli())
	return l
}

// Allow reports whether a request for key fits inside the current window.
// Counting is first-come: once limit requests have been admitted, every
// further call in the same window is rejected.
func (l *Limiter) Allow(key string) bool {
	nowMillis := l.now().UnixMilli()
	l.maybeSweep(nowMillis)

	fresh := &record{}
	fresh.windowStart.Store(nowMillis)
	rec, _ := l.records.LoadOrStore(key, fresh)

	start := rec.windowStart.Load()
	if nowMillis-start >= l.window.Milliseconds() {
		if rec.windowStart.CompareAndSwap(start, nowMillis) {
			// Won the reset. Claim the first slot of the new window.
			rec.count.Store(1)
			if l.limit < 1 {
				rejectedTotal.Inc()
				return false
			}
			return true
		}
		// Lost the reset race; another caller opened the new window.
		// Fall through and count against it.
	}

	if rec.count.Add(1) > l.limit {
		rejectedTotal.Inc()
		return false
	}
	return true
}

// maybeSweep drops records whose window expired more than a full sweep
// interval ago. At most one caller sweeps at a time.
func (l *Limiter) maybeSweep(nowMillis int64) {
	last := l.lastSweep.Load()
	if nowMillis-last < sweepInterval.Milliseconds() {
		return
	}
	if !l.lastSweep.CompareAndSwap(last, nowMillis) {
		return
	}
	stale := l.window.Milliseconds() + sweepInterval.Milliseconds()
	l.records.Range(func(key string, rec *record) bool {
		if nowMillis-rec.windowStart.Load() > stale {
			l.records.Delete(key)
		}
		return true
	})
}

// Size reports how many keys are currently tracked.
func (l *Limiter) Size() int {
	return l.records.Size()
}
