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

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) chats() *firestore.CollectionRef {
	return r.client.Collection("chats")
}

func (r *firestoreChatRepository) messages(chatID string) *firestore.CollectionRef {
	return r.chats().Doc(chatID).Collection("messages")
}

func (r *firestoreChatRepository) Create(ctx context.Context, chat *entity.Chat, initial ...*entity.Message) error {
	chatRef := r.chats().Doc(chat.ChatID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(chatRef, chat); err != nil {
			return err
		}
		for _, msg := range initial {
			ref := r.messages(chat.ChatID).NewDoc()
			msg.ID = ref.ID
			msg.ChatID = chat.ChatID
			if err := tx.Create(ref, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Chat already exists")
		}
		return errors.Internal("Failed to create chat", err)
	}

	return nil
}

func (r *firestoreChatRepository) CreateIfAbsent(ctx context.Context, chat *entity.Chat) (bool, error) {
	_, err := r.chats().Doc(chat.ChatID).Create(ctx, chat)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		return false, errors.Internal("Failed to create chat", err)
	}

	return true, nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, chatID string) (*entity.Chat, error) {
	doc, err := r.chats().Doc(chatID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.Internal("Failed to get chat", err)
	}

	return decodeChat(doc)
}

func (r *firestoreChatRepository) Apply(ctx context.Context, chatID string, update *entity.ChatUpdate) error {
	if update.Empty() {
		return nil
	}

	updates, err := chatFieldUpdates(update)
	if err != nil {
		return err
	}

	chatRef := r.chats().Doc(chatID)
	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if len(updates) > 0 {
			if err := tx.Update(chatRef, updates); err != nil {
				return err
			}
		}
		for _, msg := range update.Messages() {
			ref := r.messages(chatID).NewDoc()
			msg.ID = ref.ID
			msg.ChatID = chatID
			if err := tx.Create(ref, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", err)
		}
		logger.Error("Firestore error while applying update to chat %s: %v", chatID, err)
		return errors.Internal("Failed to update chat", err)
	}

	return nil
}

func (r *firestoreChatRepository) WatchByMember(ctx context.Context, uid string) *repository.Stream[[]*entity.Chat] {
	query := r.chats().Where("members", "array-contains", uid)

	return repository.NewStream(ctx, func(ctx context.Context, emit func([]*entity.Chat)) error {
		return pumpQuery(ctx, query, decodeChat, emit)
	})
}

func (r *firestoreChatRepository) Watch(ctx context.Context, chatID string) *repository.Stream[*entity.Chat] {
	ref := r.chats().Doc(chatID)

	return repository.NewStream(ctx, func(ctx context.Context, emit func(*entity.Chat)) error {
		return pumpDocument(ctx, ref, decodeChat, emit)
	})
}

func (r *firestoreChatRepository) GetMessage(ctx context.Context, chatID, messageID string) (*entity.Message, error) {
	doc, err := r.messages(chatID).Doc(messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	return decodeMessage(doc)
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, chatID string) ([]*entity.Message, error) {
	docs, err := r.messages(chatID).OrderBy("createdAt", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while listing messages for chat %s: %v", chatID, err)
		return nil, errors.Internal("Failed to list messages", err)
	}

	return decodeAll(docs, decodeMessage), nil
}

func (r *firestoreChatRepository) AddSeenBy(ctx context.Context, chatID, messageID, uid string) error {
	_, err := r.messages(chatID).Doc(messageID).Update(ctx, []firestore.Update{
		{Path: "seenBy", Value: firestore.ArrayUnion(uid)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Message", err)
		}
		return errors.Internal("Failed to update message seen status", err)
	}

	return nil
}

func (r *firestoreChatRepository) WatchMessages(ctx context.Context, chatID string) *repository.Stream[[]*entity.Message] {
	query := r.messages(chatID).OrderBy("createdAt", firestore.Asc)

	return repository.NewStream(ctx, func(ctx context.Context, emit func([]*entity.Message)) error {
		return pumpQuery(ctx, query, decodeMessage, emit)
	})
}

// chatFieldUpdates translates typed ops into one Firestore update. Firestore
// rejects duplicate field paths, so set ops on members are merged into one
// operator and repeated scalar writes keep the last value.
func chatFieldUpdates(update *entity.ChatUpdate) ([]firestore.Update, error) {
	var (
		updates []firestore.Update
		index   = map[string]int{}
		added   []interface{}
		removed []interface{}
	)

	put := func(u firestore.Update, key string) {
		if i, ok := index[key]; ok {
			updates[i] = u
			return
		}
		index[key] = len(updates)
		updates = append(updates, u)
	}

	for _, op := range update.Ops() {
		switch op.Kind {
		case entity.OpSetTyping:
			put(firestore.Update{FieldPath: firestore.FieldPath{"typing", op.UID}, Value: op.Typing}, "typing."+op.UID)
		case entity.OpAddMember:
			added = append(added, op.UID)
			put(firestore.Update{FieldPath: firestore.FieldPath{"memberDetails", op.UID}, Value: op.Details}, "memberDetails."+op.UID)
		case entity.OpRemoveMember:
			removed = append(removed, op.UID)
		case entity.OpSetPreview:
			put(firestore.Update{Path: "lastMessage", Value: op.Text}, "lastMessage")
			put(firestore.Update{Path: "lastMessageTime", Value: firestore.ServerTimestamp}, "lastMessageTime")
		case entity.OpSetGroupPhoto:
			put(firestore.Update{Path: "groupPhoto", Value: op.URL}, "groupPhoto")
		default:
			return nil, errors.BadRequest("Unsupported chat operation", nil)
		}
	}

	if len(added) > 0 && len(removed) > 0 {
		return nil, errors.BadRequest("Cannot add and remove members in one update", nil)
	}
	if len(added) > 0 {
		updates = append(updates, firestore.Update{Path: "members", Value: firestore.ArrayUnion(added...)})
	}
	if len(removed) > 0 {
		updates = append(updates, firestore.Update{Path: "members", Value: firestore.ArrayRemove(removed...)})
	}

	return updates, nil
}
