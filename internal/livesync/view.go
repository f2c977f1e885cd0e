package livesync

import (
	"context"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/logger"
)

// worker is a goroutine bound to one subscription scope. stop cancels it and
// waits until it has released every stream it opened.
type worker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startWorker(parent context.Context, run func(ctx context.Context)) *worker {
	ctx, cancel := context.WithCancel(parent)
	w := &worker{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		run(ctx)
	}()
	return w
}

func (w *worker) stop() {
	if w == nil {
		return
	}
	w.cancel()
	<-w.done
}

type emitter func(ctx context.Context, ev Event)

// chatListLoop folds the membership query for self.
func chatListLoop(ctx context.Context, chats repository.ChatRepository, self string, emit emitter) {
	stream := chats.WatchByMember(ctx, self)
	defer stream.Cancel()

	var current []*entity.Chat
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-stream.C():
			if !ok {
				streamFailed(ctx, emit, "", "chat_list", stream.Err())
				return
			}
			next, diff := ReconcileChatList(current, snapshot)
			if current != nil && diff.Empty() {
				continue
			}
			current = next
			emit(ctx, Event{Kind: EventChatList, Chats: next, ListDiff: &diff})
		}
	}
}

// chatView owns the local state of one open chat. Only its loop goroutine
// touches these fields.
type chatView struct {
	chatID string
	self   string
	chats  repository.ChatRepository
	users  repository.UserRepository
	emit   emitter

	chat     *entity.Chat
	messages []*entity.Message

	presence    *repository.Stream[*entity.User]
	presenceUID string
}

func (v *chatView) run(ctx context.Context) {
	chatStream := v.chats.Watch(ctx, v.chatID)
	msgStream := v.chats.WatchMessages(ctx, v.chatID)
	defer func() {
		chatStream.Cancel()
		msgStream.Cancel()
		v.retarget(ctx, "")
	}()

	chatC, msgC := chatStream.C(), msgStream.C()
	var msgsLoaded bool

	for chatC != nil || msgC != nil {
		var presenceC <-chan *entity.User
		if v.presence != nil {
			presenceC = v.presence.C()
		}

		select {
		case <-ctx.Done():
			return

		case chat, ok := <-chatC:
			if !ok {
				streamFailed(ctx, v.emit, v.chatID, "chat", chatStream.Err())
				chatC = nil
				continue
			}
			diff := ReconcileChat(v.chat, chat)
			if v.chat != nil && diff.Empty() {
				v.chat = chat
				continue
			}
			v.chat = chat
			v.emit(ctx, Event{
				Kind:       EventChat,
				ChatID:     v.chatID,
				Chat:       chat,
				ChatDiff:   &diff,
				TypingText: TypingText(chat, v.self),
			})
			v.retarget(ctx, OtherMember(chat, v.self))
			// Read ticks depend on the member set.
			if diff.MembersChanged && msgsLoaded {
				v.emitMessages(ctx, MessageDiff{})
			}

		case msgs, ok := <-msgC:
			if !ok {
				streamFailed(ctx, v.emit, v.chatID, "messages", msgStream.Err())
				msgC = nil
				continue
			}
			next, diff := ReconcileMessages(v.messages, msgs)
			v.messages = next
			if msgsLoaded && diff.Empty() {
				continue
			}
			msgsLoaded = true
			v.emitMessages(ctx, diff)

		case user, ok := <-presenceC:
			if !ok {
				streamFailed(ctx, v.emit, v.chatID, "presence", v.presence.Err())
				v.presence = nil
				continue
			}
			p := &Presence{UID: v.presenceUID}
			if user != nil {
				p.Online = user.Online
				p.LastSeen = user.LastSeen
			}
			v.emit(ctx, Event{Kind: EventPresence, ChatID: v.chatID, Presence: p})
		}
	}

	<-ctx.Done()
}

func (v *chatView) emitMessages(ctx context.Context, diff MessageDiff) {
	views := make([]MessageView, 0, len(v.messages))
	for _, m := range v.messages {
		views = append(views, MessageView{Message: m, FullySeen: IsFullySeen(v.chat, m, v.self)})
	}
	v.emit(ctx, Event{Kind: EventMessages, ChatID: v.chatID, Messages: views, MessageDiff: &diff})
}

// retarget moves the presence watch to uid, or drops it when uid is "".
func (v *chatView) retarget(ctx context.Context, uid string) {
	if uid == v.presenceUID && (v.presence != nil || uid == "") {
		return
	}
	if v.presence != nil {
		v.presence.Cancel()
		v.presence = nil
	}
	v.presenceUID = uid
	if uid != "" && ctx.Err() == nil {
		v.presence = v.users.Watch(ctx, uid)
	}
}

func streamFailed(ctx context.Context, emit emitter, chatID, name string, err error) {
	if err == nil {
		return
	}
	logger.Warn("Live subscription %s for chat %q stopped: %v", name, chatID, err)
	emit(ctx, Event{Kind: EventStreamError, ChatID: chatID, Stream: name, Error: err.Error()})
}
