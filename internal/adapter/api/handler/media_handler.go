package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"chatsync/pkg/response"
)

type MediaSource interface {
	Get(name string) ([]byte, string, error)
}

type MediaHandler struct {
	source MediaSource
}

func NewMediaHandler(source MediaSource) *MediaHandler {
	return &MediaHandler{source: source}
}

func (h *MediaHandler) ViewFile(c echo.Context) error {
	data, mimeType, err := h.source.Get(c.Param("name"))
	if err != nil {
		return response.Error(c, err)
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Blob(http.StatusOK, mimeType, data)
}
