package repository

import (
	"context"

	"chatsync/internal/domain/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, uid string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	// SetPresence flips the online flag and stamps lastSeen.
	SetPresence(ctx context.Context, uid string, online bool) error
	UpdatePhoto(ctx context.Context, uid, photoURL string) error
	Watch(ctx context.Context, uid string) *Stream[*entity.User]
}
