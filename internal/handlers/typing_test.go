package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypingThrottleInterval(t *testing.T) {
	throttle := newTypingThrottle(3 * time.Second)
	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)
	clock := base
	throttle.now = func() time.Time { return clock }

	assert.True(t, throttle.allow("client_1"))
	assert.False(t, throttle.allow("client_1"))

	// A different sender has their own budget.
	assert.True(t, throttle.allow("talent_1"))

	clock = base.Add(2 * time.Second)
	assert.False(t, throttle.allow("client_1"))

	clock = base.Add(3 * time.Second)
	assert.True(t, throttle.allow("client_1"))
}

func TestTypingThrottleForget(t *testing.T) {
	throttle := newTypingThrottle(3 * time.Second)

	assert.True(t, throttle.allow("client_1"))
	assert.True(t, throttle.allow("talent_1"))
	assert.Equal(t, 2, throttle.size())

	throttle.forget("client_1")
	assert.Equal(t, 1, throttle.size())

	// Forgotten senders start fresh instead of leaking an entry.
	assert.True(t, throttle.allow("client_1"))
}
