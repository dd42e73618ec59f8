package services

import (
	"fmt"
	"time"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/metrics"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/logger"
	"gorm.io/gorm"
)

// Throttler decides whether an offline recipient is due an email for new
// activity in a conversation. One email per recipient per conversation
// per rolling window; the window slides against "now", it is not a
// calendar bucket.
type Throttler struct {
	db        *gorm.DB
	presence  *PresenceTracker
	directory AccountDirectory
	window    time.Duration
	now       func() time.Time
}

func NewThrottler(db *gorm.DB, presence *PresenceTracker, directory AccountDirectory, window time.Duration) *Throttler {
	if window <= 0 {
		window = time.Hour
	}
	return &Throttler{
		db:        db,
		presence:  presence,
		directory: directory,
		window:    window,
		now:       time.Now,
	}
}

// ShouldNotify evaluates the skip conditions in order: recipient online,
// preference disabled, window already served.
func (t *Throttler) ShouldNotify(recipientID, conversationID string) (bool, error) {
	if t.presence.IsOnline(recipientID) {
		metrics.EmailsSuppressed.WithLabelValues("online").Inc()
		return false, nil
	}

	enabled, err := t.directory.NotificationPreference(recipientID, models.PrefCategoryMessage)
	if err != nil {
		return false, err
	}
	if !enabled {
		metrics.EmailsSuppressed.WithLabelValues("preference").Inc()
		return false, nil
	}

	email, err := t.directory.ResolveEmail(recipientID)
	if err != nil {
		return false, err
	}

	cutoff := t.now().Add(-t.window)
	var count int64
	err = t.db.Model(&models.NotificationLogEntry{}).
		Where("recipient_email = ? AND conversation_id = ? AND sent_at > ?", email, conversationID, cutoff).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		metrics.EmailsSuppressed.WithLabelValues("window").Inc()
		return false, nil
	}
	return true, nil
}

// RecordSent appends a log entry. Call it after the send attempt, never
// before: a crash between send and record costs at most one duplicate
// email, which beats suppressing a real one.
func (t *Throttler) RecordSent(recipientEmail, conversationID string) error {
	entry := &models.NotificationLogEntry{
		RecipientEmail: recipientEmail,
		ConversationID: conversationID,
		SentAt:         t.now(),
	}
	return t.db.Create(entry).Error
}

// OfflineNotifier glues the throttler, directory and mailer into the
// offline branch of the send path. Everything here is best-effort:
// failures are logged, never surfaced to the sender, and never touch the
// already-persisted message.
type OfflineNotifier struct {
	throttler   *Throttler
	directory   AccountDirectory
	notifier    Notifier
	frontendURL string
}

func NewOfflineNotifier(throttler *Throttler, directory AccountDirectory, notifier Notifier, frontendURL string) *OfflineNotifier {
	return &OfflineNotifier{
		throttler:   throttler,
		directory:   directory,
		notifier:    notifier,
		frontendURL: frontendURL,
	}
}

// NotifyOffline runs the evaluate → send → record sequence for one
// undelivered message.
func (n *OfflineNotifier) NotifyOffline(msg *models.Message, conv *models.Conversation) {
	due, err := n.throttler.ShouldNotify(msg.ReceiverID, msg.ConversationID)
	if err != nil {
		logger.Error().Err(err).Str("message_id", msg.ID).Msg("notification eligibility check failed")
		return
	}
	if !due {
		return
	}

	email, err := n.directory.ResolveEmail(msg.ReceiverID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", msg.ReceiverID).Msg("could not resolve recipient email")
		return
	}
	senderName, err := n.directory.ResolveDisplayName(msg.SenderID)
	if err != nil {
		senderName = "A VoiceCastingPro user"
	}

	subject := fmt.Sprintf("New message from %s", senderName)
	context := ""
	if conv != nil && conv.ProjectTitle != "" {
		context = fmt.Sprintf(" about <strong>%s</strong>", conv.ProjectTitle)
	}
	html := fmt.Sprintf(
		`<p><strong>%s</strong> sent you a message%s.</p>
<p><a href="%s/messages/%s">Open the conversation</a> to read and reply.</p>`,
		senderName, context, n.frontendURL, msg.ConversationID)

	if err := n.notifier.Send(email, subject, html); err != nil {
		// NotificationSendFailed: the message itself is already saved,
		// so the sender never sees this.
		logger.Error().Err(err).
			Str("message_id", msg.ID).
			Str("conversation_id", msg.ConversationID).
			Msg("notification email send failed")
		return
	}
	metrics.EmailsSent.Inc()

	if err := n.throttler.RecordSent(email, msg.ConversationID); err != nil {
		logger.Error().Err(err).Str("conversation_id", msg.ConversationID).Msg("failed to record notification send")
	}
}
