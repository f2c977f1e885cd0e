package usecase

import (
	"context"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/sync/errgroup"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/internal/infrastructure/ratelimit"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

const defaultSeenFanout = 8

type MessageUseCase struct {
	chatRepo    repository.ChatRepository
	uploader    MediaUploader
	rateLimiter RateLimiter
	seenFanout  int
}

func NewMessageUseCase(
	chatRepo repository.ChatRepository,
	uploader MediaUploader,
	rateLimiter RateLimiter,
	seenFanout int,
) *MessageUseCase {
	if seenFanout <= 0 {
		seenFanout = defaultSeenFanout
	}
	return &MessageUseCase{
		chatRepo:    chatRepo,
		uploader:    uploader,
		rateLimiter: rateLimiter,
		seenFanout:  seenFanout,
	}
}

type SendInput struct {
	ChatID     string
	SenderID   string
	SenderName string
	Text       string
	Type       entity.MessageType
	Attachment string
	// ReplyToID is resolved to a quote of the target message at send time.
	ReplyToID string
}

type AttachmentInput struct {
	ChatID     string
	SenderID   string
	SenderName string
	FileName   string
	Data       []byte
	MimeType   string
	ReplyToID  string
}

// Send appends a message already seen by its sender. The append, the chat
// preview and clearing the sender's typing flag commit together.
func (uc *MessageUseCase) Send(ctx context.Context, input SendInput) (*entity.Message, error) {
	if input.Type == "" {
		input.Type = entity.MessageText
	}
	if !input.Type.Valid() {
		return nil, errors.BadRequest("Unknown message type", nil)
	}
	switch input.Type {
	case entity.MessageText:
		if strings.TrimSpace(input.Text) == "" {
			return nil, errors.BadRequest("Message text is required", nil)
		}
	default:
		if input.Attachment == "" {
			return nil, errors.BadRequest("Attachment URL is required", nil)
		}
	}

	if err := allow(uc.rateLimiter, input.SenderID, ratelimit.ActionSendMessage); err != nil {
		return nil, err
	}

	if _, err := uc.memberChat(ctx, input.ChatID, input.SenderID); err != nil {
		return nil, err
	}

	msg := &entity.Message{
		SenderID:   input.SenderID,
		SenderName: input.SenderName,
		Text:       input.Text,
		Type:       input.Type,
		Attachment: input.Attachment,
		SeenBy:     []string{input.SenderID},
	}
	if input.ReplyToID != "" {
		quote, err := uc.ReplyTarget(ctx, input.ChatID, input.ReplyToID)
		if err != nil {
			return nil, err
		}
		msg.ReplyTo = quote
	}

	update := entity.NewChatUpdate().
		Append(msg).
		SetPreview(msg.Preview()).
		SetTyping(input.SenderID, false)
	if err := uc.chatRepo.Apply(ctx, input.ChatID, update); err != nil {
		logger.Error("Failed to send message to chat %s: %v", input.ChatID, err)
		return nil, err
	}

	return msg, nil
}

// SendAttachment uploads the file and sends it as an image or file message.
// Nothing is written to the chat if the upload fails.
func (uc *MessageUseCase) SendAttachment(ctx context.Context, input AttachmentInput) (*entity.Message, error) {
	if len(input.Data) == 0 {
		return nil, errors.BadRequest("File is empty", nil)
	}
	if _, err := uc.memberChat(ctx, input.ChatID, input.SenderID); err != nil {
		return nil, err
	}
	if err := allow(uc.rateLimiter, input.SenderID, ratelimit.ActionUpload); err != nil {
		return nil, err
	}

	mimeType := detectMIME(input.Data, input.MimeType)
	url, err := uc.uploader.Upload(ctx, input.Data, mimeType)
	if err != nil {
		logger.Error("Attachment upload for chat %s failed: %v", input.ChatID, err)
		return nil, errors.UploadFailed(err)
	}

	send := SendInput{
		ChatID:     input.ChatID,
		SenderID:   input.SenderID,
		SenderName: input.SenderName,
		Attachment: url,
		ReplyToID:  input.ReplyToID,
	}
	if strings.HasPrefix(mimeType, "image/") {
		send.Type = entity.MessageImage
		send.Text = entity.PhotoPreview
	} else {
		send.Type = entity.MessageFile
		send.Text = "📎 " + fileLabel(input.FileName)
	}

	return uc.Send(ctx, send)
}

// ReplyTarget snapshots a message for quoting.
func (uc *MessageUseCase) ReplyTarget(ctx context.Context, chatID, messageID string) (*entity.ReplyRef, error) {
	msg, err := uc.chatRepo.GetMessage(ctx, chatID, messageID)
	if err != nil {
		return nil, err
	}
	return msg.Quote(), nil
}

// MarkAllSeen adds uid to seenBy of every message missing it and returns the
// number of messages written. Each write is an independent set union, so
// seenBy only grows and concurrent calls are harmless.
func (uc *MessageUseCase) MarkAllSeen(ctx context.Context, chatID, uid string) (int, error) {
	if _, err := uc.memberChat(ctx, chatID, uid); err != nil {
		return 0, err
	}

	messages, err := uc.chatRepo.ListMessages(ctx, chatID)
	if err != nil {
		return 0, err
	}

	var unseen []string
	for _, m := range messages {
		if !m.SeenByUser(uid) {
			unseen = append(unseen, m.ID)
		}
	}
	if len(unseen) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.seenFanout)
	for _, id := range unseen {
		id := id
		g.Go(func() error {
			return uc.chatRepo.AddSeenBy(gctx, chatID, id, uid)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	return len(unseen), nil
}

// SetTyping writes the caller's typing flag. Only true writes are rate
// limited; a limited true write is dropped, a false write always goes out.
func (uc *MessageUseCase) SetTyping(ctx context.Context, chatID, uid string, typing bool) error {
	_, err := uc.TrySetTyping(ctx, chatID, uid, typing)
	return err
}

// TrySetTyping is SetTyping that also reports whether the flag was written.
func (uc *MessageUseCase) TrySetTyping(ctx context.Context, chatID, uid string, typing bool) (bool, error) {
	if _, err := uc.memberChat(ctx, chatID, uid); err != nil {
		return false, err
	}

	if typing {
		if err := allow(uc.rateLimiter, uid, ratelimit.ActionTyping); err != nil {
			logger.Debug("Dropping typing=true for %s in %s: %v", uid, chatID, err)
			return false, nil
		}
	}

	if err := uc.chatRepo.Apply(ctx, chatID, entity.NewChatUpdate().SetTyping(uid, typing)); err != nil {
		return false, err
	}
	return true, nil
}

func (uc *MessageUseCase) memberChat(ctx context.Context, chatID, uid string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(uid) {
		return nil, errors.Forbidden("You are not a member of this chat", nil)
	}
	return chat, nil
}

// detectMIME prefers the sniffed type over the one the client declared.
func detectMIME(data []byte, declared string) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}

func fileLabel(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "File"
	}
	return name
}
