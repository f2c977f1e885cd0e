package entity

import "time"

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

const (
	PhotoPreview = "📷 Photo"
	FilePreview  = "📎 File"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile:
		return true
	}
	return false
}

// ReplyRef is a copy of the quoted message taken at send time, not a live
// reference.
type ReplyRef struct {
	MessageID  string      `json:"message_id" firestore:"messageId"`
	SenderName string      `json:"sender_name" firestore:"senderName"`
	Text       string      `json:"text" firestore:"text"`
	Type       MessageType `json:"type" firestore:"type"`
}

// Message is append-only. SeenBy is the only field that changes afterwards and
// it only grows.
type Message struct {
	ID         string      `json:"id" firestore:"id"`
	ChatID     string      `json:"chat_id" firestore:"chatId"`
	SenderID   string      `json:"sender_id" firestore:"senderId"`
	SenderName string      `json:"sender_name" firestore:"senderName"`
	Text       string      `json:"text" firestore:"text"`
	Type       MessageType `json:"type" firestore:"type"`
	Attachment string      `json:"attachment" firestore:"attachment"`
	CreatedAt  time.Time   `json:"created_at" firestore:"createdAt,serverTimestamp"`
	SeenBy     []string    `json:"seen_by" firestore:"seenBy"`
	ReplyTo    *ReplyRef   `json:"reply_to" firestore:"replyTo"`
}

func NewSystemMessage(text string) *Message {
	return &Message{
		SenderID:   SystemSenderID,
		SenderName: SystemSenderName,
		Text:       text,
		Type:       MessageText,
		SeenBy:     []string{},
	}
}

func (m *Message) IsSystem() bool {
	return m.SenderID == SystemSenderID
}

func (m *Message) SeenByUser(uid string) bool {
	for _, s := range m.SeenBy {
		if s == uid {
			return true
		}
	}
	return false
}

// Preview is the chat list text for this message.
func (m *Message) Preview() string {
	switch m.Type {
	case MessageImage:
		return PhotoPreview
	case MessageFile:
		return FilePreview
	default:
		return m.Text
	}
}

// Quote snapshots this message for embedding as a reply target.
func (m *Message) Quote() *ReplyRef {
	return &ReplyRef{
		MessageID:  m.ID,
		SenderName: m.SenderName,
		Text:       m.Text,
		Type:       m.Type,
	}
}

func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	out.SeenBy = append(make([]string, 0, len(m.SeenBy)), m.SeenBy...)
	if m.ReplyTo != nil {
		r := *m.ReplyTo
		out.ReplyTo = &r
	}
	return &out
}
