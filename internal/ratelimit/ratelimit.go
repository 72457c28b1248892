// Package ratelimit enforces a minimum interval between two invocations of the
// same command by the same user.
package ratelimit

import (
	"osu-tracker/internal/config"
	"osu-tracker/internal/metrics"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type key struct {
	command string
	user    string
}

type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[key]*rate.Limiter
}

func New(cfg *config.Config) *Gate {
	return NewGate(cfg.CommandInterval)
}

// NewGate with a zero interval allows everything.
func NewGate(interval time.Duration) *Gate {
	return &Gate{interval: interval, limiters: make(map[key]*rate.Limiter)}
}

// Allow reports whether user may run command now and consumes the slot if so.
func (g *Gate) Allow(command, user string) bool {
	if g.interval <= 0 {
		return true
	}

	g.mu.Lock()
	k := key{command: command, user: user}
	l, ok := g.limiters[k]
	if !ok {
		l = rate.NewLimiter(rate.Every(g.interval), 1)
		g.limiters[k] = l
	}
	g.mu.Unlock()

	if l.Allow() {
		return true
	}
	metrics.RateLimited.WithLabelValues(command).Inc()
	return false
}

// Prune drops limiters that have refilled, bounding memory for idle users.
func (g *Gate) Prune() {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	for k, l := range g.limiters {
		if l.TokensAt(now) >= 1 {
			delete(g.limiters, k)
		}
	}
}
