package livesync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/domain/entity"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func chatAt(id string, minutes int) *entity.Chat {
	return &entity.Chat{
		ChatID:          id,
		Members:         []string{"A", "B"},
		LastMessageTime: epoch.Add(time.Duration(minutes) * time.Minute),
	}
}

func ids(chats []*entity.Chat) []string {
	out := make([]string, 0, len(chats))
	for _, c := range chats {
		out = append(out, c.ChatID)
	}
	return out
}

func TestReconcileChatList_SortsNewestFirst(t *testing.T) {
	list, diff := ReconcileChatList(nil, []*entity.Chat{chatAt("a", 1), chatAt("b", 3), chatAt("c", 2)})

	assert.Equal(t, []string{"b", "c", "a"}, ids(list))
	assert.Equal(t, []string{"b", "c", "a"}, diff.Added)
	assert.False(t, diff.Reordered)
}

func TestReconcileChatList_TiesKeepPreviousOrder(t *testing.T) {
	prev, _ := ReconcileChatList(nil, []*entity.Chat{chatAt("x", 5), chatAt("y", 5), chatAt("z", 5)})
	require.Equal(t, []string{"x", "y", "z"}, ids(prev))

	// The store hands back the same chats in a different order.
	next, diff := ReconcileChatList(prev, []*entity.Chat{chatAt("z", 5), chatAt("x", 5), chatAt("y", 5)})

	assert.Equal(t, []string{"x", "y", "z"}, ids(next))
	assert.True(t, diff.Empty())
}

func TestReconcileChatList_NewMessageMovesChatUp(t *testing.T) {
	prev, _ := ReconcileChatList(nil, []*entity.Chat{chatAt("a", 2), chatAt("b", 1)})

	bumped := chatAt("b", 10)
	bumped.LastMessage = "hey"
	next, diff := ReconcileChatList(prev, []*entity.Chat{chatAt("a", 2), bumped, chatAt("c", 0)})

	assert.Equal(t, []string{"b", "a", "c"}, ids(next))
	assert.Equal(t, []string{"c"}, diff.Added)
	assert.Equal(t, []string{"b"}, diff.Updated)
	assert.Empty(t, diff.Removed)
	assert.True(t, diff.Reordered)
}

func TestReconcileChatList_Removed(t *testing.T) {
	prev, _ := ReconcileChatList(nil, []*entity.Chat{chatAt("a", 2), chatAt("b", 1)})
	next, diff := ReconcileChatList(prev, []*entity.Chat{chatAt("b", 1)})

	assert.Equal(t, []string{"b"}, ids(next))
	assert.Equal(t, []string{"a"}, diff.Removed)
	assert.False(t, diff.Reordered)
}

func msgAt(id string, minutes int, seenBy ...string) *entity.Message {
	return &entity.Message{
		ID:        id,
		CreatedAt: epoch.Add(time.Duration(minutes) * time.Minute),
		SeenBy:    seenBy,
	}
}

func TestReconcileMessages(t *testing.T) {
	prev, diff := ReconcileMessages(nil, []*entity.Message{msgAt("m2", 2, "A"), msgAt("m1", 1, "A")})
	require.Len(t, prev, 2)
	assert.Equal(t, "m1", prev[0].ID)
	assert.ElementsMatch(t, []string{"m1", "m2"}, diff.Added)

	next, diff := ReconcileMessages(prev, []*entity.Message{
		msgAt("m1", 1, "A", "B"),
		msgAt("m2", 2, "A"),
		msgAt("m3", 3, "B"),
	})
	assert.Len(t, next, 3)
	assert.Equal(t, []string{"m3"}, diff.Added)
	assert.Equal(t, []string{"m1"}, diff.SeenChanged)
	assert.Empty(t, diff.Removed)

	_, diff = ReconcileMessages(next, next)
	assert.True(t, diff.Empty())
}

func TestReconcileChat(t *testing.T) {
	prev := &entity.Chat{
		ChatID:  "group_1",
		IsGroup: true,
		Members: []string{"A", "B"},
		Typing:  map[string]bool{"A": false, "B": false},
	}

	created := ReconcileChat(nil, prev)
	assert.True(t, created.Created)
	assert.Equal(t, []string{"A", "B"}, created.Joined)

	next := prev.Clone()
	next.Members = []string{"A", "C"}
	next.Typing["B"] = true
	next.LastMessage = "C added to group"

	diff := ReconcileChat(prev, next)
	assert.True(t, diff.MembersChanged)
	assert.Equal(t, []string{"C"}, diff.Joined)
	assert.Equal(t, []string{"B"}, diff.Left)
	assert.True(t, diff.TypingChanged)
	assert.True(t, diff.PreviewChanged)
	assert.False(t, diff.PhotoChanged)

	// A false flag appearing for a new uid is not a typing change.
	quiet := next.Clone()
	quiet.Typing["C"] = false
	assert.True(t, ReconcileChat(next, quiet).Empty())

	assert.True(t, ReconcileChat(next, nil).Deleted)
}
