package router

import (
	"github.com/labstack/echo/v4"

	"chatsync/internal/adapter/api/handler"
	"chatsync/internal/adapter/api/middleware"
)

// SetupChatRouter sets up all chat-related routes (excluding WebSocket)
func SetupChatRouter(
	e *echo.Echo,
	chatHandler *handler.ChatHandler,
	messageHandler *handler.MessageHandler,
	authMiddleware *middleware.AuthMiddleware,
	profileMiddleware *middleware.ProfileMiddleware,
) {
	chatGroup := e.Group("/v1/chats")
	chatGroup.Use(authMiddleware.Authenticate, profileMiddleware.RequireProfile)

	// Chat management
	chatGroup.POST("/private", chatHandler.StartPrivateChat)
	chatGroup.POST("/groups", chatHandler.CreateGroup)
	chatGroup.GET("/:id", chatHandler.GetChat)

	// Group administration
	chatGroup.POST("/:id/members", chatHandler.AddMember)
	chatGroup.DELETE("/:id/members/:uid", chatHandler.RemoveMember)
	chatGroup.POST("/:id/exit", chatHandler.ExitGroup)
	chatGroup.PUT("/:id/photo", chatHandler.UpdateGroupPhoto)

	// Messages
	chatGroup.POST("/:id/messages", messageHandler.SendMessage)
	chatGroup.POST("/:id/attachments", messageHandler.SendAttachment)
	chatGroup.PUT("/:id/seen", messageHandler.MarkSeen)
	chatGroup.PUT("/:id/typing", messageHandler.SetTyping)
}
