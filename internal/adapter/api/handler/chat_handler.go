package handler

import (
	"github.com/labstack/echo/v4"

	"chatsync/internal/usecase"
	"chatsync/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type startPrivateChatRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type createGroupRequest struct {
	Name      string   `json:"name" validate:"required,max=100"`
	MemberIDs []string `json:"member_ids" validate:"required,min=1,dive,required"`
}

type memberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// StartPrivateChat returns the deterministic chat id, creating the chat on
// first contact.
func (h *ChatHandler) StartPrivateChat(c echo.Context) error {
	var req startPrivateChatRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)
	chatID, err := h.chatUseCase.StartPrivateChat(c.Request().Context(), uid, req.UserID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"chat_id": chatID})
}

func (h *ChatHandler) CreateGroup(c echo.Context) error {
	var req createGroupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)
	chatID, err := h.chatUseCase.StartGroupChat(c.Request().Context(), uid, req.Name, req.MemberIDs)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]interface{}{"chat_id": chatID})
}

func (h *ChatHandler) GetChat(c echo.Context) error {
	uid := c.Get("uid").(string)

	chat, err := h.chatUseCase.GetChat(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

func (h *ChatHandler) AddMember(c echo.Context) error {
	var req memberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)
	if err := h.chatUseCase.AddMemberByID(c.Request().Context(), c.Param("id"), uid, req.UserID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"added": req.UserID})
}

func (h *ChatHandler) RemoveMember(c echo.Context) error {
	uid := c.Get("uid").(string)
	memberID := c.Param("uid")

	if err := h.chatUseCase.RemoveMember(c.Request().Context(), c.Param("id"), uid, memberID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"removed": memberID})
}

func (h *ChatHandler) ExitGroup(c echo.Context) error {
	uid := c.Get("uid").(string)

	if err := h.chatUseCase.ExitGroup(c.Request().Context(), c.Param("id"), uid); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"left": c.Param("id")})
}

func (h *ChatHandler) UpdateGroupPhoto(c echo.Context) error {
	uid := c.Get("uid").(string)

	file, err := readFormFile(c, "photo")
	if err != nil {
		return response.Error(c, err)
	}

	url, err := h.chatUseCase.UpdateGroupPhoto(c.Request().Context(), c.Param("id"), uid, file.Data, file.MimeType)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"photo_url": url})
}
