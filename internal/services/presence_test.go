package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceOnlineOffline(t *testing.T) {
	p := NewPresenceTracker()

	assert.False(t, p.IsOnline("u1"))

	p.MarkOnline("u1", newFakeConn("c1"))
	assert.True(t, p.IsOnline("u1"))

	p.MarkOffline("u1", "c1")
	assert.False(t, p.IsOnline("u1"))
}

func TestPresenceMultipleConnectionsNoFlap(t *testing.T) {
	p := NewPresenceTracker()

	// Two browser tabs.
	p.MarkOnline("u1", newFakeConn("tab1"))
	p.MarkOnline("u1", newFakeConn("tab2"))
	assert.True(t, p.IsOnline("u1"))
	assert.Len(t, p.Handles("u1"), 2)

	// Closing one tab keeps the user online.
	p.MarkOffline("u1", "tab1")
	assert.True(t, p.IsOnline("u1"))
	assert.Len(t, p.Handles("u1"), 1)

	// Closing the last flips them offline.
	p.MarkOffline("u1", "tab2")
	assert.False(t, p.IsOnline("u1"))
	assert.Empty(t, p.Handles("u1"))
}

func TestPresenceOfflineHookFiresOnLastHandleOnly(t *testing.T) {
	p := NewPresenceTracker()

	var offline []string
	p.OnOffline(func(userID string) { offline = append(offline, userID) })

	p.MarkOnline("u1", newFakeConn("c1"))
	p.MarkOnline("u1", newFakeConn("c2"))

	p.MarkOffline("u1", "c1")
	assert.Empty(t, offline)

	p.MarkOffline("u1", "c2")
	assert.Equal(t, []string{"u1"}, offline)

	// Removing an already-gone handle must not re-fire.
	p.MarkOffline("u1", "c2")
	assert.Len(t, offline, 1)
}

func TestPresenceOnlineUsers(t *testing.T) {
	p := NewPresenceTracker()
	p.MarkOnline("u1", newFakeConn("c1"))
	p.MarkOnline("u2", newFakeConn("c2"))

	users := p.OnlineUsers()
	assert.ElementsMatch(t, []string{"u1", "u2"}, users)
}

func TestPresenceConcurrentConnectDisconnect(t *testing.T) {
	p := NewPresenceTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%10))
			conn := newFakeConn(id + "-conn")
			p.MarkOnline(id, conn)
			p.IsOnline(id)
			p.MarkOffline(id, conn.ID())
		}(i)
	}
	wg.Wait()

	assert.Empty(t, p.OnlineUsers())
}
