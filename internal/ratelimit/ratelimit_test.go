package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGate_Allow(t *testing.T) {
	g := NewGate(time.Hour)

	assert.True(t, g.Allow("card", "u1"))
	assert.False(t, g.Allow("card", "u1"))
	assert.True(t, g.Allow("card", "u2"), "users are independent")
	assert.True(t, g.Allow("bind", "u1"), "commands are independent")
}

func TestGate_ZeroIntervalAllowsAll(t *testing.T) {
	g := NewGate(0)
	for i := 0; i < 10; i++ {
		assert.True(t, g.Allow("card", "u1"))
	}
}

func TestGate_RefillsAfterInterval(t *testing.T) {
	g := NewGate(20 * time.Millisecond)
	assert.True(t, g.Allow("card", "u1"))
	assert.False(t, g.Allow("card", "u1"))

	assert.Eventually(t, func() bool { return g.Allow("card", "u1") }, time.Second, 5*time.Millisecond)
}

func TestGate_Prune(t *testing.T) {
	g := NewGate(time.Hour)
	g.Allow("card", "u1")
	g.Prune()
	assert.Len(t, g.limiters, 1, "exhausted limiter is kept")

	g = NewGate(time.Millisecond)
	g.Allow("card", "u1")
	time.Sleep(5 * time.Millisecond)
	g.Prune()
	assert.Empty(t, g.limiters)
}
