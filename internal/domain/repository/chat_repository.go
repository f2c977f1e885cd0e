package repository

import (
	"context"

	"chatsync/internal/domain/entity"
)

type ChatRepository interface {
	// Create writes a new chat together with its opening messages. It fails
	// with CONFLICT if the id is taken.
	Create(ctx context.Context, chat *entity.Chat, initial ...*entity.Message) error
	// CreateIfAbsent is idempotent: concurrent callers with the same id
	// converge on one document and only one of them sees created == true.
	CreateIfAbsent(ctx context.Context, chat *entity.Chat) (created bool, err error)
	GetByID(ctx context.Context, chatID string) (*entity.Chat, error)
	// Apply commits the field ops and appended messages of update atomically.
	// Appended messages get their ID and CreatedAt assigned by the store.
	Apply(ctx context.Context, chatID string, update *entity.ChatUpdate) error
	WatchByMember(ctx context.Context, uid string) *Stream[[]*entity.Chat]
	// Watch emits nil while the chat does not exist.
	Watch(ctx context.Context, chatID string) *Stream[*entity.Chat]

	// Message log
	GetMessage(ctx context.Context, chatID, messageID string) (*entity.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]*entity.Message, error)
	AddSeenBy(ctx context.Context, chatID, messageID, uid string) error
	// WatchMessages emits the log ordered by createdAt ascending.
	WatchMessages(ctx context.Context, chatID string) *Stream[[]*entity.Message]
}
