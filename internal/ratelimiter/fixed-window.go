package ratelimiter

import (
	"sync"
	"time"
)

type window struct {
	count     int
	startedAt time.Time
}

type FixedWindowRateLimiter struct {
	sync.Mutex
	windows map[string]*window // client IP -> current window
	limit   int
	frame   time.Duration
}

func NewFixedWindowLimiter(limit int, frame time.Duration) *FixedWindowRateLimiter {
	rl := &FixedWindowRateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		frame:   frame,
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether the client may proceed. When denied, the second
// return value is how long is left in the client's current window.
func (rl *FixedWindowRateLimiter) Allow(ip string) (bool, time.Duration) {
	rl.Lock()
	defer rl.Unlock()

	now := time.Now()
	w, ok := rl.windows[ip]
	if !ok || now.Sub(w.startedAt) >= rl.frame {
		rl.windows[ip] = &window{count: 1, startedAt: now}
		return true, 0
	}

	if w.count < rl.limit {
		w.count++
		return true, 0
	}

	return false, rl.frame - now.Sub(w.startedAt)
}

func (rl *FixedWindowRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.frame)
	for range ticker.C {
		rl.Lock()
		now := time.Now()
		for ip, w := range rl.windows {
			if now.Sub(w.startedAt) >= rl.frame {
				delete(rl.windows, ip)
			}
		}
		rl.Unlock()
	}
}
