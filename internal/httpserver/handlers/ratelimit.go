package handlers

import (
	"sync"

	"golang.org/x/time/rate"
)

// LoginLimiter throttles credential attempts per remote address. It guards
// the only unauthenticated mutation surface; authenticated routes rely on
// the token check instead.
type LoginLimiter struct {
	mu    sync.Mutex
	perIP map[string]*rate.Limiter
	rate  rate.Limit
	burst int
}

func NewLoginLimiter(perSecond float64, burst int) *LoginLimiter {
	return &LoginLimiter{
		perIP: make(map[string]*rate.Limiter),
		rate:  rate.Limit(perSecond),
		burst: burst,
	}
}

func (l *LoginLimiter) allow(ip string) bool {
	l.mu.Lock()
	lim, ok := l.perIP[ip]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.perIP[ip] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
