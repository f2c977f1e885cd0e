package livesync

import (
	"context"
	"sync"

	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

const eventBuffer = 32

// SeenMarker adds the viewer to seenBy of every message in a chat.
type SeenMarker interface {
	MarkAllSeen(ctx context.Context, chatID, uid string) (int, error)
}

// Session holds the live subscriptions of one signed-in user: the chat list
// and at most one open chat. Each subscription scope runs on its own
// goroutine and is torn down before its key (identity or open chat) changes.
type Session struct {
	ctx    context.Context
	chats  repository.ChatRepository
	users  repository.UserRepository
	marker SeenMarker

	events chan Event

	mux    sync.Mutex
	uid    string
	list   *worker
	view   *worker
	openID string
	closed bool
}

func NewSession(ctx context.Context, chats repository.ChatRepository, users repository.UserRepository, marker SeenMarker) *Session {
	return &Session{
		ctx:    ctx,
		chats:  chats,
		users:  users,
		marker: marker,
		events: make(chan Event, eventBuffer),
	}
}

// Events is closed by Close.
func (s *Session) Events() <-chan Event {
	return s.events
}

func (s *Session) Identity() string {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.uid
}

// OpenChatID returns the chat currently open, or "".
func (s *Session) OpenChatID() string {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.openID
}

// SetIdentity rebinds the session to uid. Any change tears down every
// subscription, including the open chat; "" signs the session out.
func (s *Session) SetIdentity(uid string) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.closed || uid == s.uid {
		return
	}

	s.view.stop()
	s.view, s.openID = nil, ""
	s.list.stop()
	s.list = nil

	s.uid = uid
	if uid == "" {
		return
	}
	s.list = startWorker(s.ctx, func(ctx context.Context) {
		chatListLoop(ctx, s.chats, uid, s.emit)
	})
}

// Open switches the session to chatID. The previous chat view is released
// first. Opening marks every message in the chat as seen once.
func (s *Session) Open(ctx context.Context, chatID string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.closed {
		return errors.BadRequest("Session is closed", nil)
	}
	if s.uid == "" {
		return errors.Unauthorized("Not signed in", nil)
	}

	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasMember(s.uid) {
		return errors.Forbidden("You are not a member of this chat", nil)
	}

	s.view.stop()
	view := &chatView{
		chatID: chatID,
		self:   s.uid,
		chats:  s.chats,
		users:  s.users,
		emit:   s.emit,
	}
	s.view = startWorker(s.ctx, view.run)
	s.openID = chatID

	if _, err := s.marker.MarkAllSeen(ctx, chatID, s.uid); err != nil {
		logger.Warn("Failed to mark chat %s seen for %s: %v", chatID, s.uid, err)
	}
	return nil
}

// CloseChat releases the open chat view, if any.
func (s *Session) CloseChat() {
	s.mux.Lock()
	defer s.mux.Unlock()

	s.view.stop()
	s.view, s.openID = nil, ""
}

// Close releases all subscriptions and closes Events. It is safe to call
// more than once.
func (s *Session) Close() {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	s.view.stop()
	s.list.stop()
	s.view, s.list, s.openID = nil, nil, ""
	close(s.events)
}

// emit blocks until the consumer takes ev or the emitting scope ends.
func (s *Session) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}
