package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/handlers"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/middleware"
)

func RegisterUploadRoutes(r gin.IRouter) {
	upload := r.Group("/upload")
	upload.Use(middleware.AuthMiddleware(), middleware.UploadRateLimit())
	{
		upload.POST("/chat-attachment", handlers.UploadAttachment)
	}
}
