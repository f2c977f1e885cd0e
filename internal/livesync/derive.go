package livesync

import (
	"fmt"

	"chatsync/internal/domain/entity"
)

const (
	privateTypingText  = "typing..."
	multipleTypingText = "Multiple people are typing..."
)

// TypingText derives the indicator line shown to self. Only current members
// count; a stale flag left by a removed member is ignored.
func TypingText(chat *entity.Chat, self string) string {
	if chat == nil {
		return ""
	}

	if !chat.IsGroup {
		other := chat.OtherMember(self)
		if other != "" && chat.IsTyping(other) {
			return privateTypingText
		}
		return ""
	}

	var typing []string
	for _, uid := range chat.Members {
		if uid != self && chat.IsTyping(uid) {
			typing = append(typing, uid)
		}
	}

	switch len(typing) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s is typing...", chat.MemberName(typing[0]))
	default:
		return multipleTypingText
	}
}

// IsFullySeen reports whether msg carries the read tick for self's view of
// chat. Groups are checked against the members at the time of the call, not
// at send time, so a member who joins later holds the tick back.
func IsFullySeen(chat *entity.Chat, msg *entity.Message, self string) bool {
	if chat == nil || msg == nil || msg.IsSystem() {
		return false
	}

	if !chat.IsGroup {
		other := chat.OtherMember(self)
		return other != "" && msg.SeenByUser(other)
	}

	if len(chat.Members) == 0 {
		return false
	}
	for _, uid := range chat.Members {
		if !msg.SeenByUser(uid) {
			return false
		}
	}
	return true
}

// OtherMember is the presence target for a private chat, or "" for groups.
func OtherMember(chat *entity.Chat, self string) string {
	if chat == nil || chat.IsGroup {
		return ""
	}
	return chat.OtherMember(self)
}
