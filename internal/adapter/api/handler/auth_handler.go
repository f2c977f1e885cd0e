package handler

import (
	"github.com/labstack/echo/v4"

	"chatsync/internal/usecase"
	"chatsync/pkg/response"
)

type AuthHandler struct {
	presenceUseCase *usecase.PresenceUseCase
}

func NewAuthHandler(presenceUseCase *usecase.PresenceUseCase) *AuthHandler {
	return &AuthHandler{
		presenceUseCase: presenceUseCase,
	}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Register creates the account and its profile. The client signs in with the
// same credentials afterwards to obtain an ID token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	user, err := h.presenceUseCase.Register(c.Request().Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, user)
}

// Online is called after a successful sign-in.
func (h *AuthHandler) Online(c echo.Context) error {
	uid := c.Get("uid").(string)
	if err := h.presenceUseCase.Login(c.Request().Context(), uid); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]interface{}{"online": true})
}

// Offline is called before signing out.
func (h *AuthHandler) Offline(c echo.Context) error {
	uid := c.Get("uid").(string)
	if err := h.presenceUseCase.Logout(c.Request().Context(), uid); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]interface{}{"online": false})
}
