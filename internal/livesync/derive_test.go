package livesync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chatsync/internal/domain/entity"
)

func groupChat(members ...string) *entity.Chat {
	details := map[string]entity.MemberDetails{}
	for _, m := range members {
		details[m] = entity.MemberDetails{Name: "name-" + m}
	}
	return &entity.Chat{
		ChatID:        "group_1",
		IsGroup:       true,
		Members:       members,
		MemberDetails: details,
		Typing:        map[string]bool{},
	}
}

func TestTypingText(t *testing.T) {
	tests := []struct {
		name   string
		chat   *entity.Chat
		typing map[string]bool
		self   string
		want   string
	}{
		{
			name:   "group with two others typing",
			chat:   groupChat("A", "B", "C"),
			typing: map[string]bool{"A": true, "B": true, "C": true},
			self:   "A",
			want:   "Multiple people are typing...",
		},
		{
			name:   "group with self and one other typing",
			chat:   groupChat("A", "B", "C"),
			typing: map[string]bool{"A": true, "B": true, "C": false},
			self:   "A",
			want:   "name-B is typing...",
		},
		{
			name:   "group viewed by the idle member",
			chat:   groupChat("A", "B", "C"),
			typing: map[string]bool{"A": true, "B": true, "C": false},
			self:   "C",
			want:   "Multiple people are typing...",
		},
		{
			name:   "group with one other typing",
			chat:   groupChat("A", "B", "C"),
			typing: map[string]bool{"B": true},
			self:   "A",
			want:   "name-B is typing...",
		},
		{
			name:   "group with only self typing",
			chat:   groupChat("A", "B"),
			typing: map[string]bool{"A": true},
			self:   "A",
			want:   "",
		},
		{
			name:   "removed member flag ignored",
			chat:   groupChat("A", "B"),
			typing: map[string]bool{"Z": true},
			self:   "A",
			want:   "",
		},
		{
			name: "missing details fall back to Someone",
			chat: &entity.Chat{
				IsGroup: true,
				Members: []string{"A", "B"},
			},
			typing: map[string]bool{"B": true},
			self:   "A",
			want:   "Someone is typing...",
		},
		{
			name:   "private chat other typing",
			chat:   &entity.Chat{Members: []string{"A", "B"}},
			typing: map[string]bool{"B": true},
			self:   "A",
			want:   "typing...",
		},
		{
			name:   "private chat only self typing",
			chat:   &entity.Chat{Members: []string{"A", "B"}},
			typing: map[string]bool{"A": true},
			self:   "A",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.chat.Typing = tt.typing
			assert.Equal(t, tt.want, TypingText(tt.chat, tt.self))
		})
	}

	assert.Empty(t, TypingText(nil, "A"))
}

func TestIsFullySeen_GroupUsesCurrentMembers(t *testing.T) {
	chat := groupChat("A", "B", "C")
	msg := &entity.Message{SenderID: "A", SeenBy: []string{"A", "B"}}

	assert.False(t, IsFullySeen(chat, msg, "A"))

	msg.SeenBy = append(msg.SeenBy, "C")
	assert.True(t, IsFullySeen(chat, msg, "A"))

	// A late joiner holds the tick back again.
	chat.Members = append(chat.Members, "D")
	assert.False(t, IsFullySeen(chat, msg, "A"))
}

func TestIsFullySeen_Private(t *testing.T) {
	chat := &entity.Chat{Members: []string{"A", "B"}}
	msg := &entity.Message{SenderID: "A", SeenBy: []string{"A"}}

	assert.False(t, IsFullySeen(chat, msg, "A"))
	msg.SeenBy = append(msg.SeenBy, "B")
	assert.True(t, IsFullySeen(chat, msg, "A"))
}

func TestIsFullySeen_SystemMessageNeverTicked(t *testing.T) {
	chat := groupChat("A", "B")
	msg := entity.NewSystemMessage("Group created")
	msg.SeenBy = []string{"A", "B"}

	assert.False(t, IsFullySeen(chat, msg, "A"))
}

func TestOtherMember(t *testing.T) {
	assert.Equal(t, "B", OtherMember(&entity.Chat{Members: []string{"A", "B"}}, "A"))
	assert.Empty(t, OtherMember(groupChat("A", "B"), "A"))
	assert.Empty(t, OtherMember(nil, "A"))
}
