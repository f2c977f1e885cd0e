package router

import (
	"chatsync/internal/adapter/api/handler"
	"chatsync/internal/adapter/api/middleware"

	"github.com/labstack/echo/v4"
)

// Setup mounts every route. handler.Setup and handler.SetupHealthHandler must
// have run first.
func Setup(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	profileMiddleware *middleware.ProfileMiddleware,
	limiter middleware.Limiter,
	wsHandler *handler.WebSocketHandler,
) {
	SetupAuthRouter(e, authMiddleware, limiter)
	SetupUserRouter(e, authMiddleware, profileMiddleware)
	SetupChatRouter(e, handler.GetChatHandler(), handler.GetMessageHandler(), authMiddleware, profileMiddleware)
	SetupWebSocketRouter(e, wsHandler, authMiddleware, profileMiddleware)
	SetupHealthRouter(e)
}
