package services

import (
	"testing"
	"time"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
	"github.com/stretchr/testify/assert"
)

func newTestThrottler(t *testing.T) (*Throttler, *PresenceTracker, *fakeDirectory) {
	t.Helper()
	db := setupTestDB(t)
	presence := NewPresenceTracker()
	directory := newFakeDirectory()
	directory.addUser("u2", "Dana", "dana@example.com")
	return NewThrottler(db, presence, directory, time.Hour), presence, directory
}

func TestShouldNotifyOnlineRecipientNever(t *testing.T) {
	throttler, presence, _ := newTestThrottler(t)

	presence.MarkOnline("u2", newFakeConn("c1"))

	// Online wins regardless of log state: no prior entry and still no email.
	due, err := throttler.ShouldNotify("u2", "conv1")
	assert.NoError(t, err)
	assert.False(t, due)
}

func TestShouldNotifyPreferenceDisabled(t *testing.T) {
	throttler, _, directory := newTestThrottler(t)

	directory.setPref("u2", models.PrefCategoryMessage, false)

	due, err := throttler.ShouldNotify("u2", "conv1")
	assert.NoError(t, err)
	assert.False(t, due)
}

func TestShouldNotifyFirstTime(t *testing.T) {
	throttler, _, _ := newTestThrottler(t)

	due, err := throttler.ShouldNotify("u2", "conv1")
	assert.NoError(t, err)
	assert.True(t, due)
}

func TestShouldNotifySlidingWindowBoundary(t *testing.T) {
	throttler, _, _ := newTestThrottler(t)

	base := time.Now()
	throttler.now = func() time.Time { return base }

	// Entry 59 minutes old: inside the window, suppressed.
	throttler.now = func() time.Time { return base.Add(-59 * time.Minute) }
	assert.NoError(t, throttler.RecordSent("dana@example.com", "conv1"))
	throttler.now = func() time.Time { return base }

	due, err := throttler.ShouldNotify("u2", "conv1")
	assert.NoError(t, err)
	assert.False(t, due)

	// Same entry viewed 2 minutes later is 61 minutes old: due again.
	throttler.now = func() time.Time { return base.Add(2 * time.Minute) }
	due, err = throttler.ShouldNotify("u2", "conv1")
	assert.NoError(t, err)
	assert.True(t, due)
}

func TestShouldNotifyWindowIsPerConversation(t *testing.T) {
	throttler, _, _ := newTestThrottler(t)

	assert.NoError(t, throttler.RecordSent("dana@example.com", "conv1"))

	due, err := throttler.ShouldNotify("u2", "conv1")
	assert.NoError(t, err)
	assert.False(t, due)

	// A different conversation has its own window.
	due, err = throttler.ShouldNotify("u2", "conv2")
	assert.NoError(t, err)
	assert.True(t, due)
}

func TestOfflineNotifierPipeline(t *testing.T) {
	db := setupTestDB(t)
	presence := NewPresenceTracker()
	directory := newFakeDirectory()
	directory.addUser("u1", "Sam Client", "sam@example.com")
	directory.addUser("u2", "Dana", "dana@example.com")
	throttler := NewThrottler(db, presence, directory, time.Hour)
	mailer := &fakeNotifier{}
	offline := NewOfflineNotifier(throttler, directory, mailer, "https://app.example.com")

	conv := &models.Conversation{ID: "conv1", ProjectTitle: "Audiobook narration"}
	msg := &models.Message{ID: "m1", ConversationID: "conv1", SenderID: "u1", ReceiverID: "u2", Content: "hi"}

	// Two messages 10 minutes apart: exactly one email goes out.
	offline.NotifyOffline(msg, conv)
	assert.Equal(t, 1, mailer.count())

	later := &models.Message{ID: "m2", ConversationID: "conv1", SenderID: "u1", ReceiverID: "u2", Content: "hello?"}
	throttler.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	offline.NotifyOffline(later, conv)
	assert.Equal(t, 1, mailer.count(), "second message within the hour is suppressed")

	sent := mailer.sent[0]
	assert.Equal(t, "dana@example.com", sent.To)
	assert.Contains(t, sent.Subject, "Sam Client")
	assert.Contains(t, sent.HTML, "Audiobook narration")
	assert.Contains(t, sent.HTML, "conv1")
}

func TestOfflineNotifierSendFailureDoesNotRecord(t *testing.T) {
	db := setupTestDB(t)
	presence := NewPresenceTracker()
	directory := newFakeDirectory()
	directory.addUser("u1", "Sam", "sam@example.com")
	directory.addUser("u2", "Dana", "dana@example.com")
	throttler := NewThrottler(db, presence, directory, time.Hour)
	mailer := &fakeNotifier{fail: true}
	offline := NewOfflineNotifier(throttler, directory, mailer, "https://app.example.com")

	msg := &models.Message{ID: "m1", ConversationID: "conv1", SenderID: "u1", ReceiverID: "u2"}
	offline.NotifyOffline(msg, nil)

	// Send never happened, so the window must not have been consumed.
	var count int64
	db.Model(&models.NotificationLogEntry{}).Count(&count)
	assert.Equal(t, int64(0), count)

	due, err := throttler.ShouldNotify("u2", "conv1")
	assert.NoError(t, err)
	assert.True(t, due)
}
