package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/domain/entity"
	"chatsync/internal/infrastructure/ratelimit"
	apperrors "chatsync/pkg/errors"
)

func TestEnsurePrivateChat_DeterministicAndSingle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]int{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			self, other := e.alice, e.bob
			if i%2 == 1 {
				self, other = other, self
			}
			id, err := e.chatUC.EnsurePrivateChat(ctx, self, other)
			assert.NoError(t, err)
			mu.Lock()
			ids[id]++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	require.Len(t, ids, 1)
	assert.Contains(t, ids, "A_B")

	stream := e.chats.WatchByMember(ctx, "A")
	defer stream.Cancel()
	chats := <-stream.C()
	assert.Len(t, chats, 1)
	assert.ElementsMatch(t, []string{"A", "B"}, chats[0].Members)
	assert.Equal(t, "Bob", chats[0].MemberDetails["B"].Name)
}

func TestEnsurePrivateChat_RejectsSelf(t *testing.T) {
	e := newEnv(t)
	_, err := e.chatUC.EnsurePrivateChat(context.Background(), e.alice, e.alice)
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))
}

func TestStartPrivateChat_UnknownUser(t *testing.T) {
	e := newEnv(t)
	_, err := e.chatUC.StartPrivateChat(context.Background(), "A", "ghost")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestCreateGroupChat_Trip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chatID, err := e.chatUC.CreateGroupChat(ctx, "Trip", []entity.User{e.bob, e.carol}, e.alice)
	require.NoError(t, err)

	chat := e.chat(t, chatID)
	assert.True(t, chat.IsGroup)
	assert.Equal(t, "A", chat.Admin)
	assert.Equal(t, "Trip", chat.GroupName)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, chat.Members)
	assert.Equal(t, "Group created", chat.LastMessage)

	log := e.log(t, chatID)
	require.Len(t, log, 1)
	assert.True(t, log[0].IsSystem())
	assert.Equal(t, "Group created", log[0].Text)
	assert.Empty(t, log[0].SeenBy)
}

func TestCreateGroupChat_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.chatUC.CreateGroupChat(ctx, "  ", []entity.User{e.bob}, e.alice)
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))

	// The admin alone is not a group.
	_, err = e.chatUC.CreateGroupChat(ctx, "Solo", []entity.User{e.alice}, e.alice)
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))
}

func TestCreateGroupChat_RateLimited(t *testing.T) {
	e := newEnv(t)
	limiter := ratelimit.NewRateLimiter(map[ratelimit.Action]ratelimit.Policy{
		ratelimit.ActionCreateChat: {Burst: 1, Every: 1 << 40},
	})
	uc := NewChatUseCase(e.chats, e.users, e.uploader, limiter)
	ctx := context.Background()

	_, err := uc.CreateGroupChat(ctx, "One", []entity.User{e.bob}, e.alice)
	require.NoError(t, err)
	_, err = uc.CreateGroupChat(ctx, "Two", []entity.User{e.bob}, e.alice)

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeTooManyRequests, appErr.Code)
	assert.Positive(t, appErr.RetryAfter)
}

func TestAddMember_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	chatID, err := e.chatUC.CreateGroupChat(ctx, "Trip", []entity.User{e.bob}, e.alice)
	require.NoError(t, err)

	require.NoError(t, e.chatUC.AddMember(ctx, chatID, "A", e.carol))
	first := e.chat(t, chatID)
	firstLog := e.log(t, chatID)

	require.NoError(t, e.chatUC.AddMember(ctx, chatID, "A", e.carol))
	second := e.chat(t, chatID)

	assert.Equal(t, first.Members, second.Members)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, second.Members)
	assert.Len(t, e.log(t, chatID), len(firstLog))
	assert.Equal(t, "Carol added to group", firstLog[len(firstLog)-1].Text)
	assert.Equal(t, "Carol", second.MemberDetails["C"].Name)
}

func TestAddMember_AdminOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	chatID, err := e.chatUC.CreateGroupChat(ctx, "Trip", []entity.User{e.bob}, e.alice)
	require.NoError(t, err)

	err = e.chatUC.AddMember(ctx, chatID, "B", e.carol)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	privateID, err := e.chatUC.EnsurePrivateChat(ctx, e.alice, e.bob)
	require.NoError(t, err)
	err = e.chatUC.AddMember(ctx, privateID, "A", e.carol)
	assert.True(t, apperrors.Is(err, apperrors.CodeBadRequest))
}

func TestRemoveMember_RetainsDetails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	chatID, err := e.chatUC.CreateGroupChat(ctx, "Trip", []entity.User{e.bob, e.carol}, e.alice)
	require.NoError(t, err)

	require.NoError(t, e.chatUC.RemoveMember(ctx, chatID, "A", "C"))
	require.NoError(t, e.chatUC.RemoveMember(ctx, chatID, "A", "C"))

	chat := e.chat(t, chatID)
	assert.ElementsMatch(t, []string{"A", "B"}, chat.Members)
	assert.Equal(t, "Carol", chat.MemberDetails["C"].Name)

	log := e.log(t, chatID)
	require.Len(t, log, 2)
	assert.Equal(t, "Carol removed from group", log[1].Text)
	assert.True(t, log[1].IsSystem())
}

func TestRemoveMember_AdminCannotBeRemoved(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	chatID, err := e.chatUC.CreateGroupChat(ctx, "Trip", []entity.User{e.bob}, e.alice)
	require.NoError(t, err)

	err = e.chatUC.RemoveMember(ctx, chatID, "A", "A")
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden), "got %v", err)

	chat := e.chat(t, chatID)
	assert.ElementsMatch(t, []string{"A", "B"}, chat.Members)
	assert.Len(t, e.log(t, chatID), 1)
}

func TestExitGroup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	chatID, err := e.chatUC.CreateGroupChat(ctx, "Trip", []entity.User{e.bob, e.carol}, e.alice)
	require.NoError(t, err)

	require.NoError(t, e.chatUC.ExitGroup(ctx, chatID, "B"))

	chat := e.chat(t, chatID)
	assert.ElementsMatch(t, []string{"A", "C"}, chat.Members)
	log := e.log(t, chatID)
	assert.Equal(t, "A user left the group", log[len(log)-1].Text)

	_, err = e.chatUC.GetChat(ctx, chatID, "B")
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestMembershipWriteFailureLeavesNoNotice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	chatID, err := e.chatUC.CreateGroupChat(ctx, "Trip", []entity.User{e.bob}, e.alice)
	require.NoError(t, err)

	boom := errors.New("permission denied")
	e.store.FailNext("Apply", boom)
	err = e.chatUC.AddMember(ctx, chatID, "A", e.carol)
	assert.ErrorIs(t, err, boom)

	assert.ElementsMatch(t, []string{"A", "B"}, e.chat(t, chatID).Members)
	assert.Len(t, e.log(t, chatID), 1)
}

func TestUpdateGroupPhoto(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	chatID, err := e.chatUC.CreateGroupChat(ctx, "Trip", []entity.User{e.bob}, e.alice)
	require.NoError(t, err)

	_, err = e.chatUC.UpdateGroupPhoto(ctx, chatID, "B", []byte("img"), "image/png")
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	url, err := e.chatUC.UpdateGroupPhoto(ctx, chatID, "A", []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, url, e.chat(t, chatID).GroupPhoto)
}

func TestListUsersExcludesSelf(t *testing.T) {
	e := newEnv(t)
	users, err := e.chatUC.ListUsers(context.Background(), "A")
	require.NoError(t, err)

	var names []string
	for _, u := range users {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"Bob", "Carol"}, names)
}
