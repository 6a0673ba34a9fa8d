package http

import (
	"sync"
	"time"
)

const (
	mutationsPerMinute = 60
	staleVisitorAfter  = 10 * time.Minute
	sweepInterval      = 5 * time.Minute
)

// rateLimiter caps mutating requests per client IP. Counters reset a
// minute after the client's last request, and idle clients are swept by
// a background goroutine so the map does not grow without bound.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	lastSeen time.Time
	count    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		done:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-staleVisitorAfter)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

// stop terminates the sweep goroutine. Safe to call more than once.
func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() {
		close(rl.done)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[clientIP]
	if !ok || now.Sub(v.lastSeen) > time.Minute {
		rl.visitors[clientIP] = &visitor{lastSeen: now, count: 1}
		return true
	}

	v.count++
	v.lastSeen = now
	return v.count <= mutationsPerMinute
}
