package services

import (
	"fmt"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/metrics"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/logger"
)

// Broadcaster fans events out to a user's live connections. It runs on
// the async side of the send path: persistence never waits on a socket.
type Broadcaster struct {
	presence *PresenceTracker
}

func NewBroadcaster(presence *PresenceTracker) *Broadcaster {
	return &Broadcaster{presence: presence}
}

// Deliver pushes a persisted message to every live connection of its
// receiver. Returns false, without error, when the receiver is offline —
// that is the normal branch that hands the message to the email path.
func (b *Broadcaster) Deliver(msg *models.Message) bool {
	if !b.presence.IsOnline(msg.ReceiverID) {
		return false
	}
	delivered := b.Emit(msg.ReceiverID, "new_message", map[string]interface{}{
		"message": msg,
	})
	if delivered {
		metrics.LiveDeliveries.Inc()
	}
	return delivered
}

// Emit sends an event to every live connection of a user and reports
// whether at least one push went through. A push failing on one dying
// handle does not abort the others; the dead handle is evicted from
// presence on the spot.
func (b *Broadcaster) Emit(userID, event string, payload interface{}) bool {
	delivered := false
	for _, conn := range b.presence.Handles(userID) {
		if b.push(conn, event, payload) {
			delivered = true
			continue
		}
		// The handle died between the presence check and the write.
		// Expected during disconnects; treat it as already offline.
		logger.Warn().
			Str("user_id", userID).
			Str("conn_id", conn.ID()).
			Str("event", event).
			Msg("push to dead connection, evicting handle")
		b.presence.MarkOffline(userID, conn.ID())
	}
	return delivered
}

// Broadcast sends an event to every online user. Used for presence
// updates.
func (b *Broadcaster) Broadcast(event string, payload interface{}) {
	for _, userID := range b.presence.OnlineUsers() {
		b.Emit(userID, event, payload)
	}
}

// push writes to one handle, converting a panic from a closed socket into
// a failed push.
func (b *Broadcaster) push(conn ClientConn, event string, payload interface{}) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug().Str("conn_id", conn.ID()).Msg(fmt.Sprintf("socket write panic: %v", r))
			ok = false
		}
	}()
	conn.Emit(event, payload)
	return true
}
