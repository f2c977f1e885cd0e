package livesync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/adapter/repository/memory"
	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	apperrors "chatsync/pkg/errors"
)

type recordingMarker struct {
	mu    sync.Mutex
	calls []string
}

func (m *recordingMarker) MarkAllSeen(ctx context.Context, chatID, uid string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, chatID+"/"+uid)
	return 0, nil
}

func (m *recordingMarker) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type fixture struct {
	chats  repository.ChatRepository
	users  repository.UserRepository
	marker *recordingMarker
	sess   *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		chats:  memory.NewChatRepository(store),
		users:  memory.NewUserRepository(store),
		marker: &recordingMarker{},
	}
	ctx := context.Background()
	for _, u := range []*entity.User{
		{UID: "A", Name: "Ann", Online: true},
		{UID: "B", Name: "Ben"},
		{UID: "C", Name: "Cat"},
	} {
		require.NoError(t, f.users.Create(ctx, u))
	}
	f.sess = NewSession(ctx, f.chats, f.users, f.marker)
	t.Cleanup(f.sess.Close)
	return f
}

func (f *fixture) privateChat(t *testing.T, a, b string) string {
	t.Helper()
	chat := &entity.Chat{
		ChatID:  entity.PrivateChatID(a, b),
		Members: []string{a, b},
		MemberDetails: map[string]entity.MemberDetails{
			a: {Name: a},
			b: {Name: b},
		},
		Typing: map[string]bool{a: false, b: false},
	}
	require.NoError(t, f.chats.Create(context.Background(), chat))
	return chat.ChatID
}

// waitFor drains events until match returns true.
func waitFor(t *testing.T, events <-chan Event, match func(Event) bool) Event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "events closed")
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
			return Event{}
		}
	}
}

func TestSession_ChatListFollowsMembership(t *testing.T) {
	f := newFixture(t)
	f.sess.SetIdentity("A")

	waitFor(t, f.sess.Events(), func(ev Event) bool { return ev.Kind == EventChatList })

	chatID := f.privateChat(t, "A", "B")
	f.privateChat(t, "B", "C")

	ev := waitFor(t, f.sess.Events(), func(ev Event) bool {
		return ev.Kind == EventChatList && len(ev.Chats) == 1
	})
	assert.Equal(t, chatID, ev.Chats[0].ChatID)
	assert.Equal(t, []string{chatID}, ev.ListDiff.Added)
}

func TestSession_OpenStreamsChatMessagesAndPresence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chatID := f.privateChat(t, "A", "B")

	f.sess.SetIdentity("A")
	require.NoError(t, f.sess.Open(ctx, chatID))
	assert.Equal(t, []string{chatID + "/A"}, f.marker.Calls())
	assert.Equal(t, chatID, f.sess.OpenChatID())

	presence := waitFor(t, f.sess.Events(), func(ev Event) bool { return ev.Kind == EventPresence })
	assert.Equal(t, "B", presence.Presence.UID)
	assert.False(t, presence.Presence.Online)

	require.NoError(t, f.users.SetPresence(ctx, "B", true))
	presence = waitFor(t, f.sess.Events(), func(ev Event) bool { return ev.Kind == EventPresence })
	assert.True(t, presence.Presence.Online)

	require.NoError(t, f.chats.Apply(ctx, chatID, entity.NewChatUpdate().SetTyping("B", true)))
	typing := waitFor(t, f.sess.Events(), func(ev Event) bool {
		return ev.Kind == EventChat && ev.TypingText != ""
	})
	assert.Equal(t, "typing...", typing.TypingText)

	msg := &entity.Message{SenderID: "A", SenderName: "Ann", Text: "hi", Type: entity.MessageText, SeenBy: []string{"A"}}
	require.NoError(t, f.chats.Apply(ctx, chatID, entity.NewChatUpdate().Append(msg).SetPreview("hi")))
	msgs := waitFor(t, f.sess.Events(), func(ev Event) bool {
		return ev.Kind == EventMessages && len(ev.Messages) == 1
	})
	assert.False(t, msgs.Messages[0].FullySeen)

	require.NoError(t, f.chats.AddSeenBy(ctx, chatID, msg.ID, "B"))
	msgs = waitFor(t, f.sess.Events(), func(ev Event) bool {
		return ev.Kind == EventMessages && len(ev.Messages) == 1 && ev.Messages[0].FullySeen
	})
	assert.Equal(t, []string{msg.ID}, msgs.MessageDiff.SeenChanged)
}

func TestSession_OpenRejectsNonMember(t *testing.T) {
	f := newFixture(t)
	chatID := f.privateChat(t, "B", "C")

	f.sess.SetIdentity("A")
	err := f.sess.Open(context.Background(), chatID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
	assert.Empty(t, f.marker.Calls())

	err = f.sess.Open(context.Background(), "missing")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestSession_OpenRequiresIdentity(t *testing.T) {
	f := newFixture(t)
	chatID := f.privateChat(t, "A", "B")

	err := f.sess.Open(context.Background(), chatID)
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))
}

func TestSession_IdentityChangeResetsView(t *testing.T) {
	f := newFixture(t)
	chatID := f.privateChat(t, "A", "B")

	f.sess.SetIdentity("A")
	require.NoError(t, f.sess.Open(context.Background(), chatID))

	f.sess.SetIdentity("C")
	assert.Empty(t, f.sess.OpenChatID())
	assert.Equal(t, "C", f.sess.Identity())

	ev := waitFor(t, f.sess.Events(), func(ev Event) bool {
		return ev.Kind == EventChatList && ev.ListDiff != nil && len(ev.Chats) == 0
	})
	assert.Empty(t, ev.Chats)
}

func TestSession_CloseIsIdempotentAndClosesEvents(t *testing.T) {
	f := newFixture(t)
	f.sess.SetIdentity("A")
	f.sess.Close()
	f.sess.Close()

	for range f.sess.Events() {
	}

	err := f.sess.Open(context.Background(), "any")
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))
}

// drain discards events already buffered.
func drain(events <-chan Event) {
	for {
		select {
		case <-events:
		default:
			return
		}
	}
}

// assertQuietFor fails if an event keyed to chatID shows up until match
// accepts an event, and for a short while afterwards.
func assertQuietFor(t *testing.T, events <-chan Event, chatID string, match func(Event) bool) {
	t.Helper()
	waitFor(t, events, func(ev Event) bool {
		require.NotEqual(t, chatID, ev.ChatID, "event %s for a released chat", ev.Kind)
		return match(ev)
	})
	settle := time.After(300 * time.Millisecond)
	for {
		select {
		case ev := <-events:
			require.NotEqual(t, chatID, ev.ChatID, "event %s for a released chat", ev.Kind)
		case <-settle:
			return
		}
	}
}

func commitText(t *testing.T, f *fixture, chatID, sender, text string) {
	t.Helper()
	msg := &entity.Message{SenderID: sender, Text: text, Type: entity.MessageText, SeenBy: []string{sender}}
	require.NoError(t, f.chats.Apply(context.Background(), chatID, entity.NewChatUpdate().Append(msg).SetPreview(text)))
}

func TestSession_SwitchingChatReleasesPreviousView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.privateChat(t, "A", "B")
	second := f.privateChat(t, "A", "C")

	f.sess.SetIdentity("A")
	require.NoError(t, f.sess.Open(ctx, first))
	waitFor(t, f.sess.Events(), func(ev Event) bool { return ev.ChatID == first && ev.Kind == EventMessages })

	require.NoError(t, f.sess.Open(ctx, second))
	assert.Equal(t, second, f.sess.OpenChatID())
	drain(f.sess.Events())

	commitText(t, f, first, "B", "still there?")
	require.NoError(t, f.chats.Apply(ctx, first, entity.NewChatUpdate().SetTyping("B", true)))
	commitText(t, f, second, "C", "hello")

	assertQuietFor(t, f.sess.Events(), first, func(ev Event) bool {
		return ev.ChatID == second && ev.Kind == EventMessages && len(ev.Messages) == 1
	})
}

func TestSession_CloseChatReleasesView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chatID := f.privateChat(t, "A", "B")

	f.sess.SetIdentity("A")
	require.NoError(t, f.sess.Open(ctx, chatID))
	waitFor(t, f.sess.Events(), func(ev Event) bool { return ev.ChatID == chatID && ev.Kind == EventMessages })

	f.sess.CloseChat()
	assert.Empty(t, f.sess.OpenChatID())
	drain(f.sess.Events())

	commitText(t, f, chatID, "B", "anyone?")
	require.NoError(t, f.users.SetPresence(ctx, "B", true))

	// The chat list still follows the chat.
	assertQuietFor(t, f.sess.Events(), chatID, func(ev Event) bool {
		return ev.Kind == EventChatList && len(ev.Chats) == 1 && ev.Chats[0].LastMessage == "anyone?"
	})
}
