package handler

import (
	"chatsync/internal/domain/entity"
	"chatsync/internal/usecase"
	"chatsync/pkg/errors"

	"github.com/labstack/echo/v4"
)

var (
	authHandler    *AuthHandler
	userHandler    *UserHandler
	chatHandler    *ChatHandler
	messageHandler *MessageHandler
)

func Setup(
	presenceUseCase *usecase.PresenceUseCase,
	chatUseCase *usecase.ChatUseCase,
	messageUseCase *usecase.MessageUseCase,
) {
	authHandler = NewAuthHandler(presenceUseCase)
	userHandler = NewUserHandler(presenceUseCase, chatUseCase)
	chatHandler = NewChatHandler(chatUseCase)
	messageHandler = NewMessageHandler(messageUseCase)
}

func GetAuthHandler() *AuthHandler {
	return authHandler
}

func GetUserHandler() *UserHandler {
	return userHandler
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetMessageHandler() *MessageHandler {
	return messageHandler
}

// currentUser returns the profile loaded by the profile middleware.
func currentUser(c echo.Context) (*entity.User, error) {
	user, ok := c.Get("user").(*entity.User)
	if !ok || user == nil {
		return nil, errors.Unauthorized("Authentication required", nil)
	}
	return user, nil
}

// bindAndValidate decodes the body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.BadRequest("Invalid request body", err)
	}
	return c.Validate(req)
}
