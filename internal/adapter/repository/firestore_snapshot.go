package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"chatsync/internal/domain/entity"
	"chatsync/pkg/logger"
)

func decodeChat(doc *firestore.DocumentSnapshot) (*entity.Chat, error) {
	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, err
	}
	if chat.ChatID == "" {
		chat.ChatID = doc.Ref.ID
	}
	return &chat, nil
}

func decodeMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, err
	}
	message.ID = doc.Ref.ID
	if message.ChatID == "" && doc.Ref.Parent != nil && doc.Ref.Parent.Parent != nil {
		message.ChatID = doc.Ref.Parent.Parent.ID
	}
	return &message, nil
}

func decodeUser(doc *firestore.DocumentSnapshot) (*entity.User, error) {
	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, err
	}
	if user.UID == "" {
		user.UID = doc.Ref.ID
	}
	return &user, nil
}

// decodeAll skips malformed documents instead of failing the whole result.
func decodeAll[T any](docs []*firestore.DocumentSnapshot, decode func(*firestore.DocumentSnapshot) (T, error)) []T {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := decode(doc)
		if err != nil {
			logger.Warn("Skipping malformed document %s: %v", doc.Ref.Path, err)
			continue
		}
		out = append(out, v)
	}
	return out
}

// streamEnded reports whether err is the normal end of a listener rather than
// a failure worth surfacing.
func streamEnded(ctx context.Context, err error) bool {
	if err == iterator.Done || ctx.Err() != nil {
		return true
	}
	return status.Code(err) == codes.Canceled
}

func pumpQuery[T any](
	ctx context.Context,
	query firestore.Query,
	decode func(*firestore.DocumentSnapshot) (T, error),
	emit func([]T),
) error {
	it := query.Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if streamEnded(ctx, err) {
				return nil
			}
			return err
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			return err
		}
		emit(decodeAll(docs, decode))
	}
}

func pumpDocument[T any](
	ctx context.Context,
	ref *firestore.DocumentRef,
	decode func(*firestore.DocumentSnapshot) (*T, error),
	emit func(*T),
) error {
	it := ref.Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if streamEnded(ctx, err) {
				return nil
			}
			return err
		}

		if !snap.Exists() {
			emit(nil)
			continue
		}
		v, err := decode(snap)
		if err != nil {
			logger.Warn("Skipping malformed document %s: %v", ref.Path, err)
			continue
		}
		emit(v)
	}
}
