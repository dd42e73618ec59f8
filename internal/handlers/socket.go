package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/errors"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/logger"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/utils"
)

const typingThrottleDuration = 3 * time.Second

// InitSocketServer wires the realtime surface onto the chat handler.
// Every socket event runs through the same services as the REST
// endpoints; the socket layer only does auth, decoding and presence
// registration.
func InitSocketServer(h *ChatHandler) *socketio.Server {
	typing := newTypingThrottle(typingThrottleDuration)

	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
			&polling.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
		},
	})

	server.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext("")
		url := s.URL()

		token := url.Query().Get("token")
		if token == "" {
			token = url.Query().Get("auth_token")
		}
		if token == "" {
			logger.Warn().Str("socket_id", s.ID()).Msg("socket rejected: no token")
			return fmt.Errorf("authentication required")
		}

		principal, err := utils.ValidateToken(token)
		if err != nil {
			logger.Warn().Str("socket_id", s.ID()).Msg("socket rejected: invalid token")
			return fmt.Errorf("invalid token")
		}

		userID := principal.UserID
		s.SetContext(userID)
		h.Presence.MarkOnline(userID, s)

		logger.Debug().Str("socket_id", s.ID()).Str("user_id", userID).Msg("socket authenticated")

		// Seed the connecting client with the current presence set.
		s.Emit("online_users", h.Presence.OnlineUsers())
		return nil
	})

	server.OnEvent("/", "send_message", func(s socketio.Conn, data map[string]interface{}) {
		senderID, _ := s.Context().(string)
		if senderID == "" {
			return
		}

		if !h.limitSend(senderID) {
			s.Emit("error", map[string]interface{}{
				"op":      "send_message",
				"reason":  "rate_limited",
				"message": "Too many messages. Please slow down.",
			})
			return
		}

		conversationID, _ := data["conversationId"].(string)
		receiverID, _ := data["receiverId"].(string)
		content, _ := data["content"].(string)
		kind, _ := data["type"].(string)
		metadata, _ := data["metadata"].(map[string]interface{})
		if kind == "" {
			kind = models.MessageKindText
		}

		msg, err := h.Messages.Append(conversationID, senderID, receiverID, content, kind, metadata)
		if err != nil {
			s.Emit("error", socketError("send_message", err))
			return
		}

		go h.AfterSend(msg)
	})

	server.OnEvent("/", "create_conversation", func(s socketio.Conn, data map[string]interface{}) {
		callerID, _ := s.Context().(string)
		if callerID == "" {
			return
		}

		var participantIDs []string
		if raw, ok := data["participants"].([]interface{}); ok {
			for _, v := range raw {
				if id, ok := v.(string); ok {
					participantIDs = append(participantIDs, id)
				}
			}
		}
		var projectID *string
		if pid, ok := data["projectId"].(string); ok && pid != "" {
			projectID = &pid
		}
		projectTitle, _ := data["projectTitle"].(string)

		conv, _, err := h.openConversation(callerID, participantIDs, projectID, projectTitle)
		if err != nil {
			s.Emit("error", socketError("create_conversation", err))
			return
		}

		s.Emit("conversation_ready", map[string]interface{}{
			"conversation": conv,
		})
	})

	server.OnEvent("/", "mark_read", func(s socketio.Conn, data map[string]interface{}) {
		userID, _ := s.Context().(string)
		messageID, _ := data["messageId"].(string)
		if userID == "" || messageID == "" {
			return
		}

		msg, err := h.Messages.MarkRead(messageID, userID)
		if err != nil || msg == nil {
			return
		}
		h.invalidateUnreadCache(userID)
		h.Broadcast.Emit(msg.SenderID, "message_read", map[string]interface{}{
			"messageId": msg.ID,
		})
	})

	server.OnEvent("/", "typing", func(s socketio.Conn, data map[string]interface{}) {
		senderID, _ := s.Context().(string)
		receiverID, _ := data["receiverId"].(string)
		if senderID == "" || receiverID == "" {
			return
		}

		if !typing.allow(senderID) {
			return
		}

		h.Broadcast.Emit(receiverID, "user_typing", map[string]interface{}{
			"userId":    senderID,
			"expiresAt": time.Now().Add(4 * time.Second).Unix(),
		})
	})

	server.OnEvent("/", "get_online_users", func(s socketio.Conn, msg string) {
		s.Emit("online_users", h.Presence.OnlineUsers())
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		userID, _ := s.Context().(string)
		if userID == "" {
			return
		}
		h.Presence.MarkOffline(userID, s.ID())
		if !h.Presence.IsOnline(userID) {
			typing.forget(userID)
		}
		logger.Debug().Str("socket_id", s.ID()).Str("user_id", userID).Str("reason", reason).Msg("socket closed")
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		logger.Error().Err(e).Msg("socket error")
	})

	go server.Serve()
	return server
}

// socketError flattens a service error into the error event payload.
func socketError(op string, err error) map[string]interface{} {
	payload := map[string]interface{}{
		"op":      op,
		"message": err.Error(),
	}
	if appErr, ok := err.(*errors.AppError); ok {
		payload["message"] = appErr.Message
		if appErr.Category != "" {
			payload["category"] = appErr.Category
		}
		if errors.IsContentBlocked(err) {
			payload["reason"] = "content_blocked"
		}
	}
	return payload
}

// SocketHandler wraps the socket.io server for gin.
func SocketHandler(server *socketio.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		server.ServeHTTP(c.Writer, c.Request)
	}
}
