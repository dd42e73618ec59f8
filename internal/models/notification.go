package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationLogEntry records one sent "new message" email. Append-only;
// the throttler's rolling-window query is the only reader.
type NotificationLogEntry struct {
	ID             string    `gorm:"primaryKey;type:text" json:"id"`
	RecipientEmail string    `gorm:"index:idx_notify_log_window,priority:1;type:text;not null" json:"recipientEmail"`
	ConversationID string    `gorm:"index:idx_notify_log_window,priority:2;type:text;not null" json:"conversationId"`
	SentAt         time.Time `gorm:"index:idx_notify_log_window,priority:3;not null" json:"sentAt"`
}

func (n *NotificationLogEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}

// DigestState is a single-row table holding the last calendar date the
// daily digest went out. Persisting it keeps the digest idempotent per day
// across process restarts.
type DigestState struct {
	ID           int    `gorm:"primaryKey" json:"id"`
	LastSentDate string `gorm:"type:text" json:"lastSentDate"` // "2006-01-02" local
}
