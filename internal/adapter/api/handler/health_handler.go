package handler

import (
	"net/http"
	"time"

	ws "chatsync/internal/infrastructure/websocket"

	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	wsManager *ws.Manager
	store     string
}

var healthHandler *HealthHandler

func NewHealthHandler(wsManager *ws.Manager, store string) *HealthHandler {
	return &HealthHandler{
		wsManager: wsManager,
		store:     store,
	}
}

func SetupHealthHandler(wsManager *ws.Manager, store string) {
	healthHandler = NewHealthHandler(wsManager, store)
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "Server is running",
		"store":  h.store,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *HealthHandler) CheckWebSocketHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": h.wsManager.Stats(),
	})
}
