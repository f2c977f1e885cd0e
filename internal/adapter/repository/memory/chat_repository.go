package memory

import (
	"context"

	"github.com/google/uuid"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
)

type chatRepository struct {
	store *Store
}

func NewChatRepository(store *Store) repository.ChatRepository {
	return &chatRepository{store: store}
}

func (r *chatRepository) Create(ctx context.Context, chat *entity.Chat, initial ...*entity.Message) error {
	s := r.store
	s.mux.Lock()
	defer s.mux.Unlock()

	if err := s.fault("Create"); err != nil {
		return err
	}
	if _, ok := s.chats[chat.ChatID]; ok {
		return errors.Conflict("Chat already exists")
	}

	s.insertChat(chat)
	for _, msg := range initial {
		s.appendMessage(chat.ChatID, msg)
	}
	s.commit()
	return nil
}

func (r *chatRepository) CreateIfAbsent(ctx context.Context, chat *entity.Chat) (bool, error) {
	s := r.store
	s.mux.Lock()
	defer s.mux.Unlock()

	if err := s.fault("CreateIfAbsent"); err != nil {
		return false, err
	}
	if _, ok := s.chats[chat.ChatID]; ok {
		return false, nil
	}

	s.insertChat(chat)
	s.commit()
	return true, nil
}

func (r *chatRepository) GetByID(ctx context.Context, chatID string) (*entity.Chat, error) {
	s := r.store
	s.mux.Lock()
	defer s.mux.Unlock()

	if err := s.fault("GetByID"); err != nil {
		return nil, err
	}
	chat, ok := s.chats[chatID]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return chat.Clone(), nil
}

func (r *chatRepository) Apply(ctx context.Context, chatID string, update *entity.ChatUpdate) error {
	if update.Empty() {
		return nil
	}

	s := r.store
	s.mux.Lock()
	defer s.mux.Unlock()

	if err := s.fault("Apply"); err != nil {
		return err
	}
	chat, ok := s.chats[chatID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}

	next := chat.Clone()
	update.ApplyTo(next, s.tick())
	s.chats[chatID] = next
	for _, msg := range update.Messages() {
		s.appendMessage(chatID, msg)
	}
	s.commit()
	return nil
}

func (r *chatRepository) WatchByMember(ctx context.Context, uid string) *repository.Stream[[]*entity.Chat] {
	s := r.store
	return watch(ctx, s, "WatchByMember", func() []*entity.Chat {
		out := []*entity.Chat{}
		for _, id := range s.chatOrder {
			if chat := s.chats[id]; chat.HasMember(uid) {
				out = append(out, chat.Clone())
			}
		}
		return out
	})
}

func (r *chatRepository) Watch(ctx context.Context, chatID string) *repository.Stream[*entity.Chat] {
	s := r.store
	return watch(ctx, s, "Watch", func() *entity.Chat {
		return s.chats[chatID].Clone()
	})
}

func (r *chatRepository) GetMessage(ctx context.Context, chatID, messageID string) (*entity.Message, error) {
	s := r.store
	s.mux.Lock()
	defer s.mux.Unlock()

	if err := s.fault("GetMessage"); err != nil {
		return nil, err
	}
	msg := s.findMessage(chatID, messageID)
	if msg == nil {
		return nil, errors.NotFound("Message", nil)
	}
	return msg.Clone(), nil
}

func (r *chatRepository) ListMessages(ctx context.Context, chatID string) ([]*entity.Message, error) {
	s := r.store
	s.mux.Lock()
	defer s.mux.Unlock()

	if err := s.fault("ListMessages"); err != nil {
		return nil, err
	}
	return s.messageLog(chatID), nil
}

func (r *chatRepository) AddSeenBy(ctx context.Context, chatID, messageID, uid string) error {
	s := r.store
	s.mux.Lock()
	defer s.mux.Unlock()

	if err := s.fault("AddSeenBy"); err != nil {
		return err
	}
	msg := s.findMessage(chatID, messageID)
	if msg == nil {
		return errors.NotFound("Message", nil)
	}
	if msg.SeenByUser(uid) {
		return nil
	}

	next := msg.Clone()
	next.SeenBy = append(next.SeenBy, uid)
	s.replaceMessage(chatID, next)
	s.commit()
	return nil
}

func (r *chatRepository) WatchMessages(ctx context.Context, chatID string) *repository.Stream[[]*entity.Message] {
	s := r.store
	return watch(ctx, s, "WatchMessages", func() []*entity.Message {
		return s.messageLog(chatID)
	})
}

// The helpers below must be called with mux held.

func (s *Store) insertChat(chat *entity.Chat) {
	stored := chat.Clone()
	now := s.tick()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.LastMessageTime.IsZero() {
		stored.LastMessageTime = now
	}
	s.chats[stored.ChatID] = stored
	s.chatOrder = append(s.chatOrder, stored.ChatID)
}

// appendMessage assigns the id and commit time back onto msg, as the
// Firestore adapter does.
func (s *Store) appendMessage(chatID string, msg *entity.Message) {
	msg.ID = uuid.New().String()
	msg.ChatID = chatID
	msg.CreatedAt = s.tick()
	if msg.SeenBy == nil {
		msg.SeenBy = []string{}
	}
	s.messages[chatID] = append(s.messages[chatID], msg.Clone())
}

func (s *Store) findMessage(chatID, messageID string) *entity.Message {
	for _, msg := range s.messages[chatID] {
		if msg.ID == messageID {
			return msg
		}
	}
	return nil
}

// replaceMessage swaps in a new value so snapshots already handed out keep
// their contents.
func (s *Store) replaceMessage(chatID string, msg *entity.Message) {
	log := s.messages[chatID]
	next := make([]*entity.Message, len(log))
	copy(next, log)
	for i, m := range next {
		if m.ID == msg.ID {
			next[i] = msg
		}
	}
	s.messages[chatID] = next
}

func (s *Store) messageLog(chatID string) []*entity.Message {
	log := s.messages[chatID]
	out := make([]*entity.Message, 0, len(log))
	for _, msg := range log {
		out = append(out, msg.Clone())
	}
	return out
}
