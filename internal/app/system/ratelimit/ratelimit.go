// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net/http"
	"strings"
	"sync"
	"time"

	wrl "github.com/dalemusser/waffle/pantry/ratelimit"
)

// Limiter gives every key a token bucket holding limit events that refills
// completely over window. Safe for concurrent use. Call Stop to end the
// background sweeper.
type Limiter struct {
	mu     sync.Mutex
	keys   map[string]*entry
	limit  int
	window time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

type entry struct {
	bucket *wrl.Limiter
	seen   time.Time
}

// New returns a limiter allowing bursts of limit events per key, refilled at
// limit per window.
func New(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		keys:   make(map[string]*entry),
		limit:  limit,
		window: window,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go l.sweep(window)
	return l
}

// Allow takes one token for key and reports whether one was available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.keys[key]
	if !ok {
		e = &entry{bucket: wrl.New(float64(l.limit)/l.window.Seconds(), l.limit)}
		l.keys[key] = e
	}
	e.seen = time.Now()
	return e.bucket.Allow()
}

// Remaining reports how many whole tokens key has left.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.keys[key]
	if !ok {
		return l.limit
	}
	return int(e.bucket.Tokens())
}

// Reset forgets key, giving it a full bucket.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
}

// Stop ends the sweeper goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	<-l.done
}

// sweep drops keys idle for a full window; their buckets would be full again.
func (l *Limiter) sweep(every time.Duration) {
	defer close(l.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-t.C:
			l.mu.Lock()
			now := time.Now()
			for k, e := range l.keys {
				if now.Sub(e.seen) >= l.window {
					delete(l.keys, k)
				}
			}
			l.mu.Unlock()
		}
	}
}

// LoginLimiter guards admin sign-in by client IP and by target email.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter allows 10 attempts per IP per minute and 5 per email per
// 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return NewLoginLimiterWithConfig(10, time.Minute, 5, 5*time.Minute)
}

func NewLoginLimiterWithConfig(ipLimit int, ipWindow time.Duration, emailLimit int, emailWindow time.Duration) *LoginLimiter {
	return &LoginLimiter{
		ip:    New(ipLimit, ipWindow),
		email: New(emailLimit, emailWindow),
	}
}

// Check records an attempt. When it is refused, reason is a user-facing
// message. The IP is ClientIP(r), so forwarding headers only count once
// RealIP has vouched for them.
func (ll *LoginLimiter) Check(r *http.Request, email string) (ok bool, reason string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, "too many login attempts, wait a minute and try again"
	}
	if key := emailKey(email); key != "" && !ll.email.Allow(key) {
		return false, "too many login attempts for this account, wait a few minutes"
	}
	return true, ""
}

// ResetEmail clears the per-email counter after a successful login.
func (ll *LoginLimiter) ResetEmail(email string) {
	if key := emailKey(email); key != "" {
		ll.email.Reset(key)
	}
}

// Stop ends both sweepers.
func (ll *LoginLimiter) Stop() {
	ll.ip.Stop()
	ll.email.Stop()
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
