package services

import (
	"sync"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/metrics"
)

// ClientConn is the slice of a live socket connection the presence layer
// needs. *socketio.Conn satisfies it; tests use fakes.
type ClientConn interface {
	ID() string
	Emit(event string, v ...interface{})
}

// PresenceTracker owns the process-wide set of live connections, keyed by
// user. It is constructed once in main and injected everywhere it is
// needed; nothing reaches it through a package global.
//
// A user is online iff they have at least one live connection. Two browser
// tabs are two handles; closing one must not flap the user offline.
type PresenceTracker struct {
	mu    sync.RWMutex
	conns map[string]map[string]ClientConn // userID -> connID -> conn

	// onOffline fires after a user's last handle is removed. Used for
	// presence broadcasts; invoked outside the lock.
	onOffline func(userID string)
	onOnline  func(userID string)
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		conns: make(map[string]map[string]ClientConn),
	}
}

// OnOffline registers the last-handle-closed hook. Set during wiring,
// before any connection arrives.
func (p *PresenceTracker) OnOffline(fn func(userID string)) {
	p.onOffline = fn
}

// OnOnline registers the first-handle-opened hook.
func (p *PresenceTracker) OnOnline(fn func(userID string)) {
	p.onOnline = fn
}

// MarkOnline adds a connection handle for the user.
func (p *PresenceTracker) MarkOnline(userID string, conn ClientConn) {
	p.mu.Lock()
	set, ok := p.conns[userID]
	if !ok {
		set = make(map[string]ClientConn)
		p.conns[userID] = set
	}
	first := len(set) == 0
	set[conn.ID()] = conn
	online := len(p.conns)
	p.mu.Unlock()

	metrics.OnlineUsers.Set(float64(online))
	if first && p.onOnline != nil {
		p.onOnline(userID)
	}
}

// MarkOffline removes exactly the given handle. Only when it was the
// user's last handle does the user flip offline.
func (p *PresenceTracker) MarkOffline(userID, connID string) {
	p.mu.Lock()
	set, ok := p.conns[userID]
	if ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(p.conns, userID)
		}
	}
	wentOffline := ok && len(set) == 0
	online := len(p.conns)
	p.mu.Unlock()

	metrics.OnlineUsers.Set(float64(online))
	if wentOffline && p.onOffline != nil {
		p.onOffline(userID)
	}
}

// IsOnline reports whether the user has any live connection.
func (p *PresenceTracker) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns[userID]) > 0
}

// Handles returns a snapshot of the user's live connections.
func (p *PresenceTracker) Handles(userID string) []ClientConn {
	p.mu.RLock()
	defer p.mu.RUnlock()

	set := p.conns[userID]
	handles := make([]ClientConn, 0, len(set))
	for _, c := range set {
		handles = append(handles, c)
	}
	return handles
}

// OnlineUsers returns the IDs of all currently-connected users.
func (p *PresenceTracker) OnlineUsers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]string, 0, len(p.conns))
	for userID := range p.conns {
		users = append(users, userID)
	}
	return users
}
