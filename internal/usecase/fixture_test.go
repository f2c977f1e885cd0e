package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"chatsync/internal/adapter/repository/memory"
	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	apperrors "chatsync/pkg/errors"
)

type fakeUploader struct {
	mu    sync.Mutex
	mimes []string
	err   error
}

func (u *fakeUploader) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.mimes = append(u.mimes, mimeType)
	return fmt.Sprintf("https://media.test/%d", len(u.mimes)), nil
}

type fakeAuth struct {
	mu     sync.Mutex
	emails map[string]string
}

func (a *fakeAuth) CreateUser(ctx context.Context, email, password, displayName string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.emails == nil {
		a.emails = map[string]string{}
	}
	if _, ok := a.emails[email]; ok {
		return "", apperrors.Conflict("Email already in use")
	}
	uid := fmt.Sprintf("uid-%d", len(a.emails)+1)
	a.emails[email] = uid
	return uid, nil
}

type env struct {
	store    *memory.Store
	chats    repository.ChatRepository
	users    repository.UserRepository
	uploader *fakeUploader
	chatUC   *ChatUseCase
	msgUC    *MessageUseCase
	presence *PresenceUseCase

	alice, bob, carol entity.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	e := &env{
		store:    store,
		chats:    memory.NewChatRepository(store),
		users:    memory.NewUserRepository(store),
		uploader: &fakeUploader{},
		alice:    entity.User{UID: "A", Name: "Alice", Email: "alice@example.com"},
		bob:      entity.User{UID: "B", Name: "Bob", Email: "bob@example.com"},
		carol:    entity.User{UID: "C", Name: "Carol", Email: "carol@example.com"},
	}
	e.chatUC = NewChatUseCase(e.chats, e.users, e.uploader, nil)
	e.msgUC = NewMessageUseCase(e.chats, e.uploader, nil, 4)
	e.presence = NewPresenceUseCase(e.users, &fakeAuth{}, e.uploader, nil)

	for _, u := range []entity.User{e.alice, e.bob, e.carol} {
		u := u
		require.NoError(t, e.users.Create(context.Background(), &u))
	}
	return e
}

func (e *env) log(t *testing.T, chatID string) []*entity.Message {
	t.Helper()
	msgs, err := e.chats.ListMessages(context.Background(), chatID)
	require.NoError(t, err)
	return msgs
}

func (e *env) chat(t *testing.T, chatID string) *entity.Chat {
	t.Helper()
	chat, err := e.chats.GetByID(context.Background(), chatID)
	require.NoError(t, err)
	return chat
}
