package models

import (
	"sort"
	"strings"
	"time"
)

// Conversation is a thread between marketplace users, usually a client and
// a talent discussing one project posting. The participant set is fixed at
// creation; membership rows live in conversation_participants.
type Conversation struct {
	ID string `gorm:"primaryKey;type:text" json:"id"`

	// Optional project this thread is attached to. Two conversations may
	// share a participant set as long as their project refs differ.
	ProjectID    *string `gorm:"index;type:text" json:"projectId,omitempty"`
	ProjectTitle string  `gorm:"type:text" json:"projectTitle,omitempty"`

	// ParticipantKey is the sorted participant IDs plus the project ref,
	// joined into one string. The unique index on it gives find-or-create
	// its "same set + same project = same conversation" guarantee at the
	// database level, not just in application code.
	ParticipantKey string `gorm:"uniqueIndex;type:text;not null" json:"-"`

	CreatedAt     time.Time `json:"createdAt"`
	LastMessageAt time.Time `gorm:"index" json:"lastMessageAt"`

	// Relations
	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
	Messages     []Message                 `gorm:"foreignKey:ConversationID" json:"-"`
}

// ConversationParticipant tracks who is in a conversation
type ConversationParticipant struct {
	ConversationID string    `gorm:"primaryKey;type:text" json:"conversationId"`
	UserID         string    `gorm:"primaryKey;index;type:text" json:"userId"`
	JoinedAt       time.Time `json:"joinedAt"`
}

// ParticipantIDs returns the member user IDs of a loaded conversation.
func (c *Conversation) ParticipantIDs() []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// HasParticipant reports membership against the loaded participant rows.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// BuildParticipantKey canonicalizes a participant set + project ref.
// Order-independent: the IDs are sorted before joining. A nil project ref
// and an empty one are distinct from any concrete project id.
func BuildParticipantKey(participantIDs []string, projectID *string) string {
	ids := make([]string, len(participantIDs))
	copy(ids, participantIDs)
	sort.Strings(ids)

	project := ""
	if projectID != nil {
		project = *projectID
	}
	return strings.Join(ids, "|") + "#" + project
}
