package middleware

import (
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
	"chatsync/pkg/response"

	"github.com/labstack/echo/v4"
)

// ProfileMiddleware rejects authenticated callers that never completed
// registration and so have no profile document.
type ProfileMiddleware struct {
	userRepo repository.UserRepository
}

func NewProfileMiddleware(userRepo repository.UserRepository) *ProfileMiddleware {
	return &ProfileMiddleware{
		userRepo: userRepo,
	}
}

func (m *ProfileMiddleware) RequireProfile(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, ok := c.Get("uid").(string)
		if !ok || uid == "" {
			return response.Error(c, errors.Unauthorized("Authentication required", nil))
		}

		user, err := m.userRepo.GetByID(c.Request().Context(), uid)
		if err != nil {
			if errors.Is(err, errors.CodeNotFound) {
				return response.Error(c, errors.Forbidden("Complete registration first", err))
			}
			return response.Error(c, err)
		}

		c.Set("user", user)
		return next(c)
	}
}
