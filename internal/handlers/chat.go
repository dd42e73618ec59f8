package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/database"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/services"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/errors"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/logger"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/utils"
)

// Per-user message budget, on top of the per-IP limiter in middleware.
const sendLimitPerMinute = 30

// ChatHandler owns the messaging surface. The same send pipeline backs
// both the REST endpoint and the socket event, so filtering, ordering
// and notification behave identically regardless of transport.
type ChatHandler struct {
	Conversations *services.ConversationService
	Messages      *services.MessageService
	Presence      *services.PresenceTracker
	Broadcast     *services.Broadcaster
	Offline       *services.OfflineNotifier

	// limitSend checks the per-user message budget. Redis-backed by
	// default; fails open when redis is unavailable.
	limitSend func(userID string) bool
}

func NewChatHandler(
	conversations *services.ConversationService,
	messages *services.MessageService,
	presence *services.PresenceTracker,
	broadcast *services.Broadcaster,
	offline *services.OfflineNotifier,
) *ChatHandler {
	return &ChatHandler{
		Conversations: conversations,
		Messages:      messages,
		Presence:      presence,
		Broadcast:     broadcast,
		Offline:       offline,
		limitSend:     defaultSendLimit,
	}
}

func defaultSendLimit(userID string) bool {
	if database.Redis == nil {
		return true
	}
	ok, err := database.CheckRateLimit(userID, sendLimitPerMinute, time.Minute)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("send rate limit check failed")
		return true
	}
	return ok
}

// GetConversations returns the caller's threads, newest activity first,
// each with its last message and unread count.
func (h *ChatHandler) GetConversations(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	summaries, err := h.Conversations.ListForUser(userID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("failed to list conversations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

type createConversationRequest struct {
	ParticipantIDs []string `json:"participantIds" binding:"required"`
	ProjectID      *string  `json:"projectId"`
	ProjectTitle   string   `json:"projectTitle"`
}

// CreateConversation finds or creates the thread for a participant set,
// optionally scoped to a project. Idempotent: repeating the call returns
// the same thread.
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	conv, created, err := h.openConversation(userID, req.ParticipantIDs, req.ProjectID, req.ProjectTitle)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"conversation": conv, "created": created})
}

// GetMessages returns the messages of one conversation in send order.
// Non-participants get an empty list, not an error.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	conversationID := c.Param("id")
	if !utils.IsUUID(conversationID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation id"})
		return
	}

	messages, err := h.Messages.ListByConversation(conversationID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type sendMessageRequest struct {
	ConversationID string                 `json:"conversationId" binding:"required"`
	ReceiverID     string                 `json:"receiverId" binding:"required"`
	Content        string                 `json:"content" binding:"required"`
	Type           string                 `json:"type"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// SendMessage filters, persists and fans out one message. The response
// carries the filtered form the receiver will see; delivery and the
// offline email path run after the response.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	senderID := c.MustGet("userId").(string)

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !h.limitSend(senderID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many messages. Please slow down."})
		return
	}

	kind := req.Type
	if kind == "" {
		kind = models.MessageKindText
	}

	msg, err := h.Messages.Append(req.ConversationID, senderID, req.ReceiverID, req.Content, kind, req.Metadata)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	go h.AfterSend(msg)

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// MarkConversationRead flips every unread message addressed to the
// caller in one thread.
func (h *ChatHandler) MarkConversationRead(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	conversationID := c.Param("id")

	count, err := h.Messages.MarkConversationRead(conversationID, userID)
	if err != nil {
		logger.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to mark conversation read")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark conversation read"})
		return
	}

	if count > 0 {
		h.invalidateUnreadCache(userID)
		if conv, convErr := h.Conversations.Get(conversationID); convErr == nil {
			for _, pid := range conv.ParticipantIDs() {
				if pid == userID {
					continue
				}
				h.Broadcast.Emit(pid, "conversation_read", map[string]interface{}{
					"conversationId": conversationID,
					"readerId":       userID,
				})
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"updated": count})
}

// MarkMessageRead marks a single message and tells the sender.
func (h *ChatHandler) MarkMessageRead(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	messageID := c.Param("id")

	msg, err := h.Messages.MarkRead(messageID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if msg != nil {
		h.invalidateUnreadCache(userID)
		h.Broadcast.Emit(msg.SenderID, "message_read", map[string]interface{}{
			"messageId": msg.ID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GetUnreadCount returns the caller's total unread count. Served from
// the Redis cache when one is configured.
func (h *ChatHandler) GetUnreadCount(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	cacheKey := database.UnreadCacheKey(userID)

	if database.Redis != nil {
		var cached int64
		if err := database.CacheGet(cacheKey, &cached); err == nil {
			c.JSON(http.StatusOK, gin.H{"unreadCount": cached})
			return
		}
	}

	count, err := h.Messages.UnreadCount(userID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("failed to count unread messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch unread count"})
		return
	}

	if database.Redis != nil {
		database.CacheSet(cacheKey, count, database.UnreadCacheTTL)
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

type flagMessageRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// FlagMessage records a participant's moderation report on a message.
func (h *ChatHandler) FlagMessage(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	messageID := c.Param("id")

	var req flagMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reason required"})
		return
	}

	if err := h.Messages.FlagMessage(messageID, userID, req.Reason); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GetOnlineUsers returns the set of currently connected user IDs.
func (h *ChatHandler) GetOnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.Presence.OnlineUsers()})
}

// AfterSend runs the fan-out side of a persisted message: live delivery
// to the receiver, sync to the sender's other devices, and the throttled
// email fallback when the receiver has no live connection. Failures here
// never surface to the sender; the message is already durable.
func (h *ChatHandler) AfterSend(msg *models.Message) {
	h.invalidateUnreadCache(msg.ReceiverID)

	delivered := h.Broadcast.Deliver(msg)

	h.Broadcast.Emit(msg.SenderID, "message_sent", map[string]interface{}{
		"message": msg,
	})

	if delivered {
		return
	}

	conv, err := h.Conversations.Get(msg.ConversationID)
	if err != nil {
		logger.Error().Err(err).Str("conversation_id", msg.ConversationID).Msg("conversation lookup failed during offline notify")
		conv = nil
	}
	h.Offline.NotifyOffline(msg, conv)
}

// openConversation validates and runs find-or-create for a participant
// set. The caller is always part of the thread they open. An empty
// project id means no project, same as a missing one.
func (h *ChatHandler) openConversation(callerID string, participantIDs []string, projectID *string, projectTitle string) (*models.Conversation, bool, error) {
	if projectID != nil && *projectID == "" {
		projectID = nil
	}

	ids := participantIDs
	found := false
	for _, id := range ids {
		if id == callerID {
			found = true
			break
		}
	}
	if !found {
		ids = append(append([]string{}, ids...), callerID)
	}

	conv, created, err := h.Conversations.FindOrCreate(ids, projectID, projectTitle)
	if err != nil {
		return nil, false, err
	}

	if created {
		for _, pid := range conv.ParticipantIDs() {
			h.Broadcast.Emit(pid, "conversation_created", map[string]interface{}{
				"conversation": conv,
			})
		}
	}
	return conv, created, nil
}

func (h *ChatHandler) invalidateUnreadCache(userID string) {
	if database.Redis != nil {
		database.CacheInvalidate(database.UnreadCacheKey(userID))
	}
}

// writeServiceError maps service errors onto HTTP responses. Blocked
// content carries its category so the client can explain the rejection.
func writeServiceError(c *gin.Context, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled service error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	body := gin.H{"error": appErr.Message}
	if appErr.Category != "" {
		body["category"] = appErr.Category
	}
	c.JSON(appErr.Code, body)
}
