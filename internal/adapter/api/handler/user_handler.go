package handler

import (
	"chatsync/internal/usecase"
	"chatsync/pkg/response"

	"github.com/labstack/echo/v4"
)

type UserHandler struct {
	presenceUseCase *usecase.PresenceUseCase
	chatUseCase     *usecase.ChatUseCase
}

func NewUserHandler(presenceUseCase *usecase.PresenceUseCase, chatUseCase *usecase.ChatUseCase) *UserHandler {
	return &UserHandler{
		presenceUseCase: presenceUseCase,
		chatUseCase:     chatUseCase,
	}
}

func (h *UserHandler) GetMe(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

// ListUsers returns everyone except the caller, for starting chats.
func (h *UserHandler) ListUsers(c echo.Context) error {
	uid := c.Get("uid").(string)

	users, err := h.chatUseCase.ListUsers(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, users)
}

func (h *UserHandler) UpdatePhoto(c echo.Context) error {
	uid := c.Get("uid").(string)

	file, err := readFormFile(c, "photo")
	if err != nil {
		return response.Error(c, err)
	}

	url, err := h.presenceUseCase.UpdateProfilePhoto(c.Request().Context(), uid, file.Data, file.MimeType)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]interface{}{"photo_url": url})
}
