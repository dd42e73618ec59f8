package services

import (
	"time"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/errors"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/utils"
	"gorm.io/gorm"
)

// ConversationService owns conversation records and membership.
type ConversationService struct {
	db *gorm.DB
}

func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{db: db}
}

// FindOrCreate returns the conversation for this exact participant set and
// project ref, creating it if none exists. Participant order does not
// matter. The bool reports whether a new conversation was created.
func (s *ConversationService) FindOrCreate(participantIDs []string, projectID *string, projectTitle string) (*models.Conversation, bool, error) {
	if len(participantIDs) < 2 {
		return nil, false, errors.BadRequest("a conversation needs at least two participants")
	}
	seen := map[string]bool{}
	for _, id := range participantIDs {
		if id == "" || seen[id] {
			return nil, false, errors.BadRequest("participant ids must be distinct and non-empty")
		}
		seen[id] = true
	}

	key := models.BuildParticipantKey(participantIDs, projectID)

	if conv, err := s.findByKey(key); err == nil {
		return conv, false, nil
	} else if _, ok := err.(*errors.AppError); !ok {
		return nil, false, err
	}

	now := time.Now()
	conv := &models.Conversation{
		ID:             utils.GenerateID(),
		ProjectID:      projectID,
		ProjectTitle:   projectTitle,
		ParticipantKey: key,
		CreatedAt:      now,
		LastMessageAt:  now,
	}
	for _, id := range participantIDs {
		conv.Participants = append(conv.Participants, models.ConversationParticipant{
			ConversationID: conv.ID,
			UserID:         id,
			JoinedAt:       now,
		})
	}

	if err := s.db.Create(conv).Error; err != nil {
		// Lost a create race: the unique index on participant_key means
		// the winner's row is what we want.
		if conv, ferr := s.findByKey(key); ferr == nil {
			return conv, false, nil
		}
		return nil, false, err
	}
	return conv, true, nil
}

func (s *ConversationService) findByKey(key string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Preload("Participants").Where("participant_key = ?", key).First(&conv).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.NotFound("conversation not found")
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Get loads a conversation with its participants.
func (s *ConversationService) Get(id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Preload("Participants").First(&conv, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.NotFound("conversation not found")
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Touch bumps the last-activity timestamp. Called on every append.
func (s *ConversationService) Touch(id string) error {
	return s.db.Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("last_message_at", time.Now()).Error
}

// IsParticipant supports the callers' authorization checks.
func (s *ConversationService) IsParticipant(conversationID, userID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

// ConversationSummary is one row of a user's inbox view.
type ConversationSummary struct {
	Conversation models.Conversation `json:"conversation"`
	LastMessage  *models.Message     `json:"lastMessage,omitempty"`
	UnreadCount  int64               `json:"unreadCount"`
}

// ListForUser returns the user's conversations, most recently active
// first, each with its latest message and the user's unread count.
func (s *ConversationService) ListForUser(userID string) ([]ConversationSummary, error) {
	var convs []models.Conversation
	err := s.db.Preload("Participants").
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", userID).
		Order("conversations.last_message_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary := ConversationSummary{Conversation: conv}

		var last models.Message
		if err := s.db.Where("conversation_id = ?", conv.ID).
			Order("created_at DESC, seq DESC").
			First(&last).Error; err == nil {
			summary.LastMessage = &last
		}

		if err := s.db.Model(&models.Message{}).
			Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conv.ID, userID, false).
			Count(&summary.UnreadCount).Error; err != nil {
			return nil, err
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}
