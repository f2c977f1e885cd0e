package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) users() *firestore.CollectionRef {
	return r.client.Collection("users")
}

func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.User) error {
	_, err := r.users().Doc(user.UID).Set(ctx, user)
	if err != nil {
		return errors.Internal("Failed to create user profile", err)
	}
	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, uid string) (*entity.User, error) {
	doc, err := r.users().Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user", err)
	}

	return decodeUser(doc)
}

func (r *firestoreUserRepository) List(ctx context.Context) ([]*entity.User, error) {
	docs, err := r.users().OrderBy("name", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while listing users: %v", err)
		return nil, errors.Internal("Failed to list users", err)
	}

	return decodeAll(docs, decodeUser), nil
}

func (r *firestoreUserRepository) SetPresence(ctx context.Context, uid string, online bool) error {
	return r.update(ctx, uid, []firestore.Update{
		{Path: "online", Value: online},
		{Path: "lastSeen", Value: firestore.ServerTimestamp},
	})
}

func (r *firestoreUserRepository) UpdatePhoto(ctx context.Context, uid, photoURL string) error {
	return r.update(ctx, uid, []firestore.Update{
		{Path: "photoURL", Value: photoURL},
	})
}

func (r *firestoreUserRepository) update(ctx context.Context, uid string, updates []firestore.Update) error {
	_, err := r.users().Doc(uid).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("User", err)
		}
		return errors.Internal("Failed to update user", err)
	}
	return nil
}

func (r *firestoreUserRepository) Watch(ctx context.Context, uid string) *repository.Stream[*entity.User] {
	ref := r.users().Doc(uid)

	return repository.NewStream(ctx, func(ctx context.Context, emit func(*entity.User)) error {
		return pumpDocument(ctx, ref, decodeUser, emit)
	})
}
