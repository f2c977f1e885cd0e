package handler

import (
	"github.com/labstack/echo/v4"

	"chatsync/internal/domain/entity"
	"chatsync/internal/usecase"
	"chatsync/pkg/response"
)

type MessageHandler struct {
	messageUseCase *usecase.MessageUseCase
}

func NewMessageHandler(messageUseCase *usecase.MessageUseCase) *MessageHandler {
	return &MessageHandler{
		messageUseCase: messageUseCase,
	}
}

type sendMessageRequest struct {
	Text       string `json:"text" validate:"max=4000"`
	Type       string `json:"type" validate:"omitempty,oneof=text image file"`
	Attachment string `json:"attachment,omitempty" validate:"omitempty,url"`
	ReplyToID  string `json:"reply_to_id,omitempty"`
}

type typingRequest struct {
	Typing bool `json:"typing"`
}

func (h *MessageHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	user, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	msg, err := h.messageUseCase.Send(c.Request().Context(), usecase.SendInput{
		ChatID:     c.Param("id"),
		SenderID:   user.UID,
		SenderName: user.Name,
		Text:       req.Text,
		Type:       entity.MessageType(req.Type),
		Attachment: req.Attachment,
		ReplyToID:  req.ReplyToID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, msg)
}

// SendAttachment takes a multipart "file" part and an optional
// "reply_to_id" field.
func (h *MessageHandler) SendAttachment(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	file, err := readFormFile(c, "file")
	if err != nil {
		return response.Error(c, err)
	}

	msg, err := h.messageUseCase.SendAttachment(c.Request().Context(), usecase.AttachmentInput{
		ChatID:     c.Param("id"),
		SenderID:   user.UID,
		SenderName: user.Name,
		FileName:   file.Name,
		Data:       file.Data,
		MimeType:   file.MimeType,
		ReplyToID:  c.FormValue("reply_to_id"),
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, msg)
}

func (h *MessageHandler) MarkSeen(c echo.Context) error {
	uid := c.Get("uid").(string)

	marked, err := h.messageUseCase.MarkAllSeen(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"marked": marked})
}

// SetTyping writes the flag directly. Websocket clients get debouncing
// through typing frames instead.
func (h *MessageHandler) SetTyping(c echo.Context) error {
	var req typingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)
	if err := h.messageUseCase.SetTyping(c.Request().Context(), c.Param("id"), uid, req.Typing); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"typing": req.Typing})
}
