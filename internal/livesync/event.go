package livesync

import (
	"time"

	"chatsync/internal/domain/entity"
)

type EventKind string

const (
	EventChatList    EventKind = "chat_list"
	EventChat        EventKind = "chat"
	EventMessages    EventKind = "messages"
	EventPresence    EventKind = "presence"
	EventStreamError EventKind = "stream_error"
)

// MessageView is a message plus the read tick derived for the viewer.
type MessageView struct {
	*entity.Message
	FullySeen bool `json:"fully_seen"`
}

type Presence struct {
	UID      string    `json:"uid"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// Event carries a whole derived snapshot; consumers replace their local copy
// instead of patching it.
type Event struct {
	Kind   EventKind `json:"kind"`
	ChatID string    `json:"chat_id,omitempty"`

	Chats    []*entity.Chat `json:"chats,omitempty"`
	ListDiff *ChatListDiff  `json:"list_diff,omitempty"`

	Chat       *entity.Chat `json:"chat,omitempty"`
	ChatDiff   *ChatDiff    `json:"chat_diff,omitempty"`
	TypingText string       `json:"typing_text,omitempty"`

	Messages    []MessageView `json:"messages,omitempty"`
	MessageDiff *MessageDiff  `json:"message_diff,omitempty"`

	Presence *Presence `json:"presence,omitempty"`

	// Stream names the subscription that stopped delivering.
	Stream string `json:"stream,omitempty"`
	Error  string `json:"error,omitempty"`
}
