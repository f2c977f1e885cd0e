package websocket

import (
	"context"
	"encoding/json"
	"time"

	apperrors "chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

// WebSocket Message Types
const (
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeOpenChat  = "open_chat"
	MessageTypeCloseChat = "close_chat"
	MessageTypeTyping    = "typing"
	MessageTypeSent      = "sent"
	MessageTypeEvent     = "event"
	MessageTypeError     = "error"
)

// WSMessage is the frame used in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	ChatID    string          `json:"chat_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

type TypingData struct {
	Composing bool `json:"composing"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandleClientMessage processes incoming WebSocket messages
func (m *Manager) HandleClientMessage(ctx context.Context, client *Client, messageBytes []byte) {
	var msg WSMessage
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		logger.Debug("WebSocket: failed to unmarshal message from client %s: %v", client.UserID, err)
		client.sendError(ctx, "", apperrors.BadRequest("Invalid message format", err))
		return
	}

	switch msg.Type {
	case MessageTypePing:
		client.enqueue(ctx, newFrame(MessageTypePong, "", map[string]string{"status": "alive"}))

	case MessageTypeOpenChat:
		m.handleOpenChat(ctx, client, msg.ChatID)

	case MessageTypeCloseChat:
		client.closeTypist()
		client.session.CloseChat()

	case MessageTypeTyping:
		var data TypingData
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				client.sendError(ctx, msg.ChatID, apperrors.BadRequest("Invalid typing data", err))
				return
			}
		}
		if client.typist == nil || msg.ChatID != client.session.OpenChatID() {
			client.sendError(ctx, msg.ChatID, apperrors.BadRequest("Open the chat before typing", nil))
			return
		}
		client.typist.Input(data.Composing)

	case MessageTypeSent:
		if client.typist != nil {
			client.typist.Sent()
		}

	default:
		logger.Debug("WebSocket: unknown message type '%s' from client %s", msg.Type, client.UserID)
		client.sendError(ctx, msg.ChatID, apperrors.BadRequest("Unknown message type", nil))
	}
}

func (m *Manager) handleOpenChat(ctx context.Context, client *Client, chatID string) {
	if chatID == "" {
		client.sendError(ctx, "", apperrors.BadRequest("chat_id is required", nil))
		return
	}

	// A rejected open keeps the previous chat and its typist.
	if err := client.session.Open(ctx, chatID); err != nil {
		client.sendError(ctx, chatID, err)
		return
	}
	// Leaving the previous chat clears our typing flag there.
	client.closeTypist()
	client.typist = m.newTypist(chatID, client.UserID)
}

func (c *Client) closeTypist() {
	if c.typist != nil {
		c.typist.Close()
		c.typist = nil
	}
}

func (c *Client) sendError(ctx context.Context, chatID string, err error) {
	data := ErrorData{Code: apperrors.CodeInternal, Message: "An unexpected error occurred"}
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		data = ErrorData{Code: appErr.Code, Message: appErr.Message}
	}
	c.enqueue(ctx, newFrame(MessageTypeError, chatID, data))
}

// enqueue blocks while the write buffer is full so a slow reader applies
// backpressure to its own session only.
func (c *Client) enqueue(ctx context.Context, frame []byte) {
	if frame == nil {
		return
	}
	select {
	case c.Send <- frame:
	case <-ctx.Done():
	}
}

func newFrame(kind, chatID string, payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s payload: %v", kind, err)
		return nil
	}
	frame, err := json.Marshal(WSMessage{
		Type:      kind,
		ChatID:    chatID,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		logger.Error("WebSocket: failed to encode %s frame: %v", kind, err)
		return nil
	}
	return frame
}
