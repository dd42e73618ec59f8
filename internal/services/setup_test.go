package services

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/filter"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory sqlite database migrated with the
// messaging schema. One connection only, so test queries are serialized
// the same way every run.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.FilterRule{},
		&models.NotificationLogEntry{},
		&models.DigestState{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func newTestMessageService(t *testing.T, db *gorm.DB) (*MessageService, *ConversationService) {
	t.Helper()
	engine, err := filter.NewEngine(filter.DefaultRules())
	if err != nil {
		t.Fatalf("failed to build filter engine: %v", err)
	}
	conversations := NewConversationService(db)
	return NewMessageService(db, conversations, engine), conversations
}

// fakeConn is an in-memory ClientConn. Setting dead makes every Emit
// panic the way a write on a closed socket does.
type fakeConn struct {
	id   string
	mu   sync.Mutex
	dead bool

	events []fakeEvent
}

type fakeEvent struct {
	Event   string
	Payload []interface{}
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Emit(event string, v ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		panic("write on closed socket")
	}
	c.events = append(c.events, fakeEvent{Event: event, Payload: v})
}

func (c *fakeConn) kill() {
	c.mu.Lock()
	c.dead = true
	c.mu.Unlock()
}

func (c *fakeConn) received(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

// fakeDirectory is an in-memory AccountDirectory.
type fakeDirectory struct {
	names  map[string]string
	emails map[string]string
	prefs  map[string]bool // key userID+"/"+category, default true
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		names:  map[string]string{},
		emails: map[string]string{},
		prefs:  map[string]bool{},
	}
}

func (d *fakeDirectory) addUser(id, name, email string) {
	d.names[id] = name
	d.emails[id] = email
}

func (d *fakeDirectory) setPref(userID, category string, enabled bool) {
	d.prefs[userID+"/"+category] = enabled
}

func (d *fakeDirectory) ResolveDisplayName(userID string) (string, error) {
	if name, ok := d.names[userID]; ok {
		return name, nil
	}
	return "", fmt.Errorf("unknown user %s", userID)
}

func (d *fakeDirectory) ResolveEmail(userID string) (string, error) {
	if email, ok := d.emails[userID]; ok {
		return email, nil
	}
	return "", fmt.Errorf("unknown user %s", userID)
}

func (d *fakeDirectory) NotificationPreference(userID, category string) (bool, error) {
	if enabled, ok := d.prefs[userID+"/"+category]; ok {
		return enabled, nil
	}
	return true, nil
}

// fakeNotifier records sends and can be made to fail.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []fakeEmail
	fail bool
}

type fakeEmail struct {
	To      string
	Subject string
	HTML    string
}

func (n *fakeNotifier) Send(to, subject, html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("smtp unavailable")
	}
	n.sent = append(n.sent, fakeEmail{To: to, Subject: subject, HTML: html})
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}
