package usecase

import (
	"context"
	"strings"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/internal/infrastructure/ratelimit"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

// PresenceUseCase owns user profiles and the online flag.
type PresenceUseCase struct {
	userRepo     repository.UserRepository
	firebaseAuth FirebaseAuthClient
	uploader     MediaUploader
	rateLimiter  RateLimiter
}

func NewPresenceUseCase(
	userRepo repository.UserRepository,
	firebaseAuth FirebaseAuthClient,
	uploader MediaUploader,
	rateLimiter RateLimiter,
) *PresenceUseCase {
	return &PresenceUseCase{
		userRepo:     userRepo,
		firebaseAuth: firebaseAuth,
		uploader:     uploader,
		rateLimiter:  rateLimiter,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates the auth account and the profile document. A new user is
// considered signed in, so the profile starts online.
func (uc *PresenceUseCase) Register(ctx context.Context, input RegisterInput) (*entity.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, errors.BadRequest("Name, email and password are required", nil)
	}

	uid, err := uc.firebaseAuth.CreateUser(ctx, email, input.Password, name)
	if err != nil {
		if errors.Is(err, errors.CodeConflict) {
			return nil, err
		}
		return nil, errors.Internal("Failed to create user in authentication provider", err)
	}

	user := &entity.User{
		UID:    uid,
		Name:   name,
		Email:  email,
		Online: true,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		logger.Error("Auth account %s created but profile write failed: %v", uid, err)
		return nil, err
	}

	return user, nil
}

func (uc *PresenceUseCase) Login(ctx context.Context, uid string) error {
	return uc.userRepo.SetPresence(ctx, uid, true)
}

func (uc *PresenceUseCase) Logout(ctx context.Context, uid string) error {
	return uc.userRepo.SetPresence(ctx, uid, false)
}

func (uc *PresenceUseCase) GetProfile(ctx context.Context, uid string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, uid)
}

// UpdateProfilePhoto uploads the image and points photoURL at it. Chats keep
// their denormalized copy until the member is re-added.
func (uc *PresenceUseCase) UpdateProfilePhoto(ctx context.Context, uid string, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", errors.BadRequest("Photo is empty", nil)
	}
	if err := allow(uc.rateLimiter, uid, ratelimit.ActionUpload); err != nil {
		return "", err
	}

	url, err := uc.uploader.Upload(ctx, data, mimeType)
	if err != nil {
		return "", errors.UploadFailed(err)
	}

	if err := uc.userRepo.UpdatePhoto(ctx, uid, url); err != nil {
		return "", err
	}
	return url, nil
}

// allow applies the per-user limit for action; a nil limiter allows everything.
func allow(rl RateLimiter, uid string, action ratelimit.Action) error {
	if rl == nil {
		return nil
	}
	if ok, wait := rl.Allow(uid, action); !ok {
		logger.Info("Rate limited: user %s must wait %v for %s", uid, wait, action)
		return errors.TooManyRequests("Rate limit exceeded. Please wait before trying again", wait)
	}
	return nil
}
