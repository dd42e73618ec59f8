package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/filter"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/metrics"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/errors"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/logger"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/utils"
	"gorm.io/gorm"
)

// flaggedBySystem marks moderation flags set by the filter rather than a
// participant report.
const flaggedBySystem = "system"

// MessageService is the append-only message log. Every inbound message
// passes through the content filter before anything is written.
type MessageService struct {
	db            *gorm.DB
	conversations *ConversationService

	engineMu sync.RWMutex
	engine   *filter.Engine

	// one append lock per conversation: appends to the same thread are
	// serialized so ordering is deterministic, appends to different
	// threads run concurrently.
	locks sync.Map // conversationID -> *sync.Mutex
}

func NewMessageService(db *gorm.DB, conversations *ConversationService, engine *filter.Engine) *MessageService {
	return &MessageService{
		db:            db,
		conversations: conversations,
		engine:        engine,
	}
}

// ReloadRules swaps in a freshly-loaded rule engine. Safe while sends are
// in flight.
func (s *MessageService) ReloadRules() error {
	engine, err := filter.LoadEngine(s.db)
	if err != nil {
		return err
	}
	s.engineMu.Lock()
	s.engine = engine
	s.engineMu.Unlock()
	return nil
}

func (s *MessageService) currentEngine() *filter.Engine {
	s.engineMu.RLock()
	defer s.engineMu.RUnlock()
	return s.engine
}

func (s *MessageService) lockFor(conversationID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(conversationID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Append validates, filters and persists one message. On a filter block
// nothing is written and the caller gets a ContentBlocked error carrying
// the violation category. On success the conversation's last-activity
// timestamp is bumped.
func (s *MessageService) Append(conversationID, senderID, receiverID, content, kind string, metadata map[string]interface{}) (*models.Message, error) {
	if kind == "" {
		kind = models.MessageKindText
	}
	if !models.ValidMessageKind(kind) {
		return nil, errors.BadRequest("unknown message type")
	}

	conv, err := s.conversations.Get(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, errors.Unauthorized("sender is not a participant of this conversation")
	}
	if !conv.HasParticipant(receiverID) {
		return nil, errors.BadRequest("receiver is not a participant of this conversation")
	}

	sanitized, err := filter.SanitizeContent(content, kind)
	if err != nil {
		return nil, errors.BadRequest(err.Error())
	}

	verdict := s.currentEngine().Evaluate(sanitized)
	if verdict.Blocked {
		category := verdict.BlockedCategory()
		metrics.MessagesBlocked.WithLabelValues(category).Inc()
		return nil, errors.ContentBlocked(
			"Message blocked: sharing off-platform contact details is not allowed", category)
	}

	metaJSON := "{}"
	if len(metadata) > 0 {
		raw, merr := json.Marshal(metadata)
		if merr != nil {
			return nil, errors.BadRequest("invalid message metadata")
		}
		metaJSON = string(raw)
	}

	changed := verdict.Changed(sanitized)
	msg := &models.Message{
		ID:             utils.GenerateID(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        verdict.FilteredText,
		Filtered:       changed,
		Kind:           kind,
		Metadata:       metaJSON,
	}
	if changed {
		original := sanitized
		msg.OriginalContent = &original
	}
	if verdict.RequiresReview {
		by := flaggedBySystem
		reason := verdict.Violations[0].Category
		now := time.Now()
		msg.FlaggedBy = &by
		msg.FlagReason = &reason
		msg.FlaggedAt = &now
	}

	mu := s.lockFor(conversationID)
	mu.Lock()
	defer mu.Unlock()

	var maxSeq int64
	if err := s.db.Model(&models.Message{}).
		Where("conversation_id = ?", conversationID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return nil, err
	}
	// Timestamp and sequence are assigned together under the lock, so
	// creation order, timestamps and seq never disagree.
	msg.Seq = maxSeq + 1
	msg.CreatedAt = time.Now()

	if err := s.db.Create(msg).Error; err != nil {
		return nil, err
	}
	if err := s.conversations.Touch(conversationID); err != nil {
		// The message row is committed; a stale last-activity timestamp
		// is not worth failing the send over.
		logger.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to touch conversation after append")
	}

	metrics.MessagesSent.WithLabelValues(kind).Inc()
	if changed {
		metrics.MessagesRedacted.Inc()
	}
	return msg, nil
}

// ListByConversation returns the thread in order. A requester who is not
// a participant gets an empty slice, not an error, so conversation
// existence does not leak.
func (s *MessageService) ListByConversation(conversationID, requestingUserID string) ([]models.Message, error) {
	ok, err := s.conversations.IsParticipant(conversationID, requestingUserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.Message{}, nil
	}

	var messages []models.Message
	err = s.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC, seq ASC").
		Find(&messages).Error
	return messages, err
}

// MarkRead sets the read timestamp if the requester is the message's
// receiver; anything else is a silent no-op. Returns the updated message,
// or nil on no-op.
func (s *MessageService) MarkRead(messageID, requestingUserID string) (*models.Message, error) {
	var msg models.Message
	err := s.db.First(&msg, "id = ?", messageID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if msg.ReceiverID != requestingUserID || msg.IsRead {
		return nil, nil
	}

	now := time.Now()
	msg.IsRead = true
	msg.ReadAt = &now
	if err := s.db.Model(&models.Message{}).Where("id = ?", msg.ID).Updates(map[string]interface{}{
		"is_read": true,
		"read_at": &now,
	}).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkConversationRead marks everything addressed to the user in a thread
// as read. Returns how many rows flipped.
func (s *MessageService) MarkConversationRead(conversationID, userID string) (int64, error) {
	result := s.db.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conversationID, userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// UnreadCount returns the total unread messages addressed to a user
// across all of their conversations.
func (s *MessageService) UnreadCount(userID string) (int64, error) {
	var count int64
	err := s.db.Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// FlagMessage lets a participant report a message for moderation.
func (s *MessageService) FlagMessage(messageID, byUserID, reason string) error {
	var msg models.Message
	err := s.db.First(&msg, "id = ?", messageID).Error
	if err == gorm.ErrRecordNotFound {
		return errors.NotFound("message not found")
	}
	if err != nil {
		return err
	}

	ok, err := s.conversations.IsParticipant(msg.ConversationID, byUserID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Unauthorized("only participants can flag messages")
	}

	now := time.Now()
	return s.db.Model(&models.Message{}).Where("id = ?", messageID).Updates(map[string]interface{}{
		"flagged_by":  byUserID,
		"flag_reason": reason,
		"flagged_at":  &now,
	}).Error
}
