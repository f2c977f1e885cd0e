package router

import (
	"chatsync/internal/adapter/api/handler"
	"chatsync/internal/infrastructure/storage"

	"github.com/labstack/echo/v4"
)

// SetupMediaRouter serves locally stored uploads. Media URLs are public, like
// the bucket objects they stand in for.
func SetupMediaRouter(e *echo.Echo, mediaHandler *handler.MediaHandler) {
	e.GET(storage.LocalMediaRoute+"/:name", mediaHandler.ViewFile)
}
