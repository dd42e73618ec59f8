package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message kinds. Payment kinds are produced by the escrow collaborator and
// carry their details in Metadata; this subsystem only stores and routes
// them.
const (
	MessageKindText           = "text"
	MessageKindFile           = "file"
	MessageKindPaymentRequest = "payment_request"
	MessageKindPaymentRelease = "payment_release"
	MessageKindEscrowNotice   = "escrow_notice"
)

// ValidMessageKind checks if the message kind is one we accept.
func ValidMessageKind(kind string) bool {
	switch kind {
	case MessageKindText, MessageKindFile, MessageKindPaymentRequest,
		MessageKindPaymentRelease, MessageKindEscrowNotice:
		return true
	}
	return false
}

// Message is one entry in a conversation's append-only log. Rows are
// immutable after insert except for the read fields and moderation fields.
type Message struct {
	ID string `gorm:"primaryKey;type:text" json:"id"`

	ConversationID string `gorm:"index:idx_messages_conv_created,priority:1;type:text;not null" json:"conversationId"`
	SenderID       string `gorm:"index;type:text;not null" json:"senderId"`
	// ReceiverID is the addressed recipient of a direct reply. For the
	// current two-party threads it is simply "the other side".
	ReceiverID string `gorm:"index;type:text;not null" json:"receiverId"`

	// Content is the delivered (post-filter) text. The pre-filter text is
	// kept only when redaction actually changed something.
	Content         string  `gorm:"type:text;not null" json:"content"`
	OriginalContent *string `gorm:"type:text" json:"-"`
	Filtered        bool    `gorm:"default:false" json:"filtered"`

	Kind string `gorm:"type:text;default:'text';not null" json:"type"`

	// Metadata (JSON: file id/name/size/type, payment amount/currency, escrow id)
	Metadata string `gorm:"type:jsonb;default:'{}'" json:"metadata"`

	// Read tracking
	IsRead bool       `gorm:"default:false" json:"isRead"`
	ReadAt *time.Time `json:"readAt"`

	// Seq breaks CreatedAt ties; assigned under the per-conversation
	// append lock so ordering is total even for same-timestamp inserts.
	Seq       int64     `gorm:"index:idx_messages_conv_created,priority:3;not null" json:"seq"`
	CreatedAt time.Time `gorm:"index:idx_messages_conv_created,priority:2" json:"createdAt"`

	// Moderation flags, set when the filter asks for review or a
	// participant reports the message.
	FlaggedBy  *string    `gorm:"type:text" json:"flaggedBy,omitempty"`
	FlagReason *string    `gorm:"type:text" json:"flagReason,omitempty"`
	FlaggedAt  *time.Time `json:"flaggedAt,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// FileMetadata is the metadata payload of a file-kind message.
type FileMetadata struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	FileType string `json:"fileType"`
	URL      string `json:"url"`
}

// PaymentMetadata is the metadata payload of payment-kind messages.
type PaymentMetadata struct {
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	EscrowID string `json:"escrowId,omitempty"`
}
