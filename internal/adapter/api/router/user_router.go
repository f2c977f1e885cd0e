package router

import (
	"chatsync/internal/adapter/api/handler"
	"chatsync/internal/adapter/api/middleware"

	"github.com/labstack/echo/v4"
)

func SetupUserRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, profileMiddleware *middleware.ProfileMiddleware) {
	userHandler := handler.GetUserHandler()

	users := e.Group("/v1/users", authMiddleware.Authenticate, profileMiddleware.RequireProfile)
	users.GET("", userHandler.ListUsers)
	users.GET("/me", userHandler.GetMe)
	users.PUT("/me/photo", userHandler.UpdatePhoto)
}
