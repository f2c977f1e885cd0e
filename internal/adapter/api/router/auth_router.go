package router

import (
	"chatsync/internal/adapter/api/handler"
	"chatsync/internal/adapter/api/middleware"
	"chatsync/internal/infrastructure/ratelimit"

	"github.com/labstack/echo/v4"
)

func SetupAuthRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter middleware.Limiter) {
	authHandler := handler.GetAuthHandler()

	auth := e.Group("/v1/auth")
	auth.POST("/register", authHandler.Register, middleware.RateLimitByIP(limiter, ratelimit.ActionRegister))

	// Presence
	presence := e.Group("/v1/presence", authMiddleware.Authenticate)
	presence.POST("/online", authHandler.Online)
	presence.POST("/offline", authHandler.Offline)
}
