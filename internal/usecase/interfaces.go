package usecase

import (
	"context"
	"time"

	"chatsync/internal/infrastructure/ratelimit"
)

type FirebaseAuthClient interface {
	CreateUser(ctx context.Context, email, password, displayName string) (string, error)
}

// MediaUploader stores bytes and returns a public URL.
type MediaUploader interface {
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)
}

type RateLimiter interface {
	Allow(userID string, action ratelimit.Action) (bool, time.Duration)
}
