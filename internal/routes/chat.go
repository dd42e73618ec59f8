package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/handlers"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/middleware"
)

func RegisterChatRoutes(r gin.IRouter, h *handlers.ChatHandler) {
	chat := r.Group("/chat")
	chat.Use(middleware.AuthMiddleware())
	{
		chat.GET("/conversations", h.GetConversations)
		chat.POST("/conversations", h.CreateConversation)
		chat.GET("/conversations/:id/messages", h.GetMessages)
		chat.POST("/conversations/:id/read", h.MarkConversationRead)
		chat.POST("/messages", middleware.ChatRateLimit(), h.SendMessage)
		chat.POST("/messages/:id/read", h.MarkMessageRead)
		chat.POST("/messages/:id/flag", h.FlagMessage)
		chat.GET("/unread-count", h.GetUnreadCount)
		chat.GET("/online-users", h.GetOnlineUsers)
	}
}
