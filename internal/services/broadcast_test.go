package services

import (
	"testing"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestDeliverOfflineReturnsFalse(t *testing.T) {
	p := NewPresenceTracker()
	b := NewBroadcaster(p)

	delivered := b.Deliver(&models.Message{ID: "m1", ReceiverID: "u2"})

	assert.False(t, delivered, "offline receiver is a normal false, not an error")
}

func TestDeliverFansOutToAllHandles(t *testing.T) {
	p := NewPresenceTracker()
	b := NewBroadcaster(p)

	tab1 := newFakeConn("tab1")
	tab2 := newFakeConn("tab2")
	p.MarkOnline("u2", tab1)
	p.MarkOnline("u2", tab2)

	delivered := b.Deliver(&models.Message{ID: "m1", ReceiverID: "u2"})

	assert.True(t, delivered)
	assert.Equal(t, 1, tab1.received("new_message"))
	assert.Equal(t, 1, tab2.received("new_message"))
}

func TestDeliverToleratesDeadHandle(t *testing.T) {
	p := NewPresenceTracker()
	b := NewBroadcaster(p)

	dead := newFakeConn("dead")
	live := newFakeConn("live")
	p.MarkOnline("u2", dead)
	p.MarkOnline("u2", live)
	dead.kill()

	delivered := b.Deliver(&models.Message{ID: "m1", ReceiverID: "u2"})

	// The dying handle does not abort delivery to the healthy one.
	assert.True(t, delivered)
	assert.Equal(t, 1, live.received("new_message"))

	// And the dead handle was evicted lazily.
	assert.Len(t, p.Handles("u2"), 1)
	assert.True(t, p.IsOnline("u2"))
}

func TestDeliverAllHandlesDead(t *testing.T) {
	p := NewPresenceTracker()
	b := NewBroadcaster(p)

	dead := newFakeConn("dead")
	p.MarkOnline("u2", dead)
	dead.kill()

	delivered := b.Deliver(&models.Message{ID: "m1", ReceiverID: "u2"})

	assert.False(t, delivered)
	assert.False(t, p.IsOnline("u2"), "last dead handle flips the user offline")
}

func TestEmitReachesOnlyTargetUser(t *testing.T) {
	p := NewPresenceTracker()
	b := NewBroadcaster(p)

	mine := newFakeConn("mine")
	other := newFakeConn("other")
	p.MarkOnline("u1", mine)
	p.MarkOnline("u2", other)

	b.Emit("u1", "conversation_created", map[string]interface{}{"id": "c1"})

	assert.Equal(t, 1, mine.received("conversation_created"))
	assert.Equal(t, 0, other.received("conversation_created"))
}
