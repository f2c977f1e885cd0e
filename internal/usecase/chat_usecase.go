package usecase

import (
	"context"
	"fmt"
	"strings"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/internal/infrastructure/ratelimit"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

const (
	groupCreatedText = "Group created"
	memberLeftText   = "A user left the group"
)

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	uploader    MediaUploader
	rateLimiter RateLimiter
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	uploader MediaUploader,
	rateLimiter RateLimiter,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		uploader:    uploader,
		rateLimiter: rateLimiter,
	}
}

// EnsurePrivateChat returns the 1:1 chat between self and other, creating it
// on first use. Both argument orders and concurrent callers resolve to the
// same document.
func (uc *ChatUseCase) EnsurePrivateChat(ctx context.Context, self, other entity.User) (string, error) {
	if self.UID == "" || other.UID == "" {
		return "", errors.BadRequest("Both participants are required", nil)
	}
	if self.UID == other.UID {
		return "", errors.BadRequest("Cannot start a chat with yourself", nil)
	}

	chat := &entity.Chat{
		ChatID:  entity.PrivateChatID(self.UID, other.UID),
		IsGroup: false,
		Members: []string{self.UID, other.UID},
		MemberDetails: map[string]entity.MemberDetails{
			self.UID:  self.Details(),
			other.UID: other.Details(),
		},
		Typing: map[string]bool{},
	}

	created, err := uc.chatRepo.CreateIfAbsent(ctx, chat)
	if err != nil {
		return "", err
	}
	if created {
		logger.Debug("Private chat %s created by %s", chat.ChatID, self.UID)
	}
	return chat.ChatID, nil
}

// StartPrivateChat resolves both profiles before EnsurePrivateChat.
func (uc *ChatUseCase) StartPrivateChat(ctx context.Context, selfID, otherID string) (string, error) {
	if selfID == otherID {
		return "", errors.BadRequest("Cannot start a chat with yourself", nil)
	}
	users, err := uc.resolveUsers(ctx, selfID, otherID)
	if err != nil {
		return "", err
	}
	return uc.EnsurePrivateChat(ctx, users[0], users[1])
}

// CreateGroupChat creates a group administered by admin. The admin is always
// a member, and the chat starts with a "Group created" notice.
func (uc *ChatUseCase) CreateGroupChat(ctx context.Context, name string, members []entity.User, admin entity.User) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.BadRequest("Group name is required", nil)
	}
	if admin.UID == "" {
		return "", errors.BadRequest("Group admin is required", nil)
	}

	chat := &entity.Chat{
		ChatID:        entity.NewGroupChatID(),
		IsGroup:       true,
		Members:       []string{admin.UID},
		MemberDetails: map[string]entity.MemberDetails{admin.UID: admin.Details()},
		Admin:         admin.UID,
		GroupName:     name,
		LastMessage:   groupCreatedText,
		Typing:        map[string]bool{},
	}
	for _, m := range members {
		if m.UID == "" || chat.HasMember(m.UID) {
			continue
		}
		chat.Members = append(chat.Members, m.UID)
		chat.MemberDetails[m.UID] = m.Details()
	}
	if len(chat.Members) < 2 {
		return "", errors.BadRequest("Select at least 1 member", nil)
	}

	if err := allow(uc.rateLimiter, admin.UID, ratelimit.ActionCreateChat); err != nil {
		return "", err
	}

	if err := uc.chatRepo.Create(ctx, chat, entity.NewSystemMessage(groupCreatedText)); err != nil {
		return "", err
	}
	return chat.ChatID, nil
}

// StartGroupChat resolves the admin and member profiles before
// CreateGroupChat.
func (uc *ChatUseCase) StartGroupChat(ctx context.Context, adminID, name string, memberIDs []string) (string, error) {
	users, err := uc.resolveUsers(ctx, append([]string{adminID}, memberIDs...)...)
	if err != nil {
		return "", err
	}
	return uc.CreateGroupChat(ctx, name, users[1:], users[0])
}

// AddMember adds user to a group on behalf of its admin. Adding a current
// member writes nothing.
func (uc *ChatUseCase) AddMember(ctx context.Context, chatID, actorID string, user entity.User) error {
	if user.UID == "" {
		return errors.BadRequest("User is required", nil)
	}

	chat, err := uc.adminGroup(ctx, chatID, actorID)
	if err != nil {
		return err
	}
	if chat.HasMember(user.UID) {
		return nil
	}

	update := entity.NewChatUpdate().
		AddMember(user.UID, user.Details()).
		Append(entity.NewSystemMessage(fmt.Sprintf("%s added to group", user.Name)))
	return uc.chatRepo.Apply(ctx, chatID, update)
}

func (uc *ChatUseCase) AddMemberByID(ctx context.Context, chatID, actorID, uid string) error {
	user, err := uc.userRepo.GetByID(ctx, uid)
	if err != nil {
		return err
	}
	return uc.AddMember(ctx, chatID, actorID, *user)
}

// RemoveMember drops uid from a group on behalf of its admin. memberDetails
// keeps the entry so past messages still resolve the sender.
func (uc *ChatUseCase) RemoveMember(ctx context.Context, chatID, actorID, uid string) error {
	chat, err := uc.adminGroup(ctx, chatID, actorID)
	if err != nil {
		return err
	}
	if !chat.HasMember(uid) {
		return nil
	}
	if uid == chat.Admin {
		return errors.Forbidden("The admin cannot be removed; exit the group instead", nil)
	}

	update := entity.NewChatUpdate().
		RemoveMember(uid).
		Append(entity.NewSystemMessage(fmt.Sprintf("%s removed from group", chat.MemberName(uid))))
	return uc.chatRepo.Apply(ctx, chatID, update)
}

// ExitGroup lets any member leave a group.
func (uc *ChatUseCase) ExitGroup(ctx context.Context, chatID, uid string) error {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsGroup {
		return errors.BadRequest("Only group chats can be left", nil)
	}
	if !chat.HasMember(uid) {
		return nil
	}

	update := entity.NewChatUpdate().
		RemoveMember(uid).
		SetTyping(uid, false).
		Append(entity.NewSystemMessage(memberLeftText))
	return uc.chatRepo.Apply(ctx, chatID, update)
}

// GetChat returns the chat if viewerID is a current member.
func (uc *ChatUseCase) GetChat(ctx context.Context, chatID, viewerID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(viewerID) {
		return nil, errors.Forbidden("You are not a member of this chat", nil)
	}
	return chat, nil
}

func (uc *ChatUseCase) UpdateGroupPhoto(ctx context.Context, chatID, actorID string, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", errors.BadRequest("Photo is empty", nil)
	}
	if _, err := uc.adminGroup(ctx, chatID, actorID); err != nil {
		return "", err
	}
	if err := allow(uc.rateLimiter, actorID, ratelimit.ActionUpload); err != nil {
		return "", err
	}

	url, err := uc.uploader.Upload(ctx, data, mimeType)
	if err != nil {
		return "", errors.UploadFailed(err)
	}

	if err := uc.chatRepo.Apply(ctx, chatID, entity.NewChatUpdate().SetGroupPhoto(url)); err != nil {
		return "", err
	}
	return url, nil
}

// ListUsers is the directory shown when starting chats or adding members.
func (uc *ChatUseCase) ListUsers(ctx context.Context, excludeID string) ([]*entity.User, error) {
	users, err := uc.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*entity.User, 0, len(users))
	for _, u := range users {
		if u.UID != excludeID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (uc *ChatUseCase) adminGroup(ctx context.Context, chatID, actorID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup {
		return nil, errors.BadRequest("Not a group chat", nil)
	}
	if chat.Admin != actorID {
		return nil, errors.Forbidden("Only the group admin can do this", nil)
	}
	return chat, nil
}

func (uc *ChatUseCase) resolveUsers(ctx context.Context, ids ...string) ([]entity.User, error) {
	out := make([]entity.User, 0, len(ids))
	for _, id := range ids {
		user, err := uc.userRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *user)
	}
	return out, nil
}
