package entity

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// SystemSenderID marks synthetic membership notices.
	SystemSenderID   = "system"
	SystemSenderName = "System"

	groupChatPrefix = "group_"
	unknownMember   = "Someone"
)

type MemberDetails struct {
	Name     string `json:"name" firestore:"name"`
	Email    string `json:"email" firestore:"email"`
	PhotoURL string `json:"photo_url" firestore:"photoURL"`
}

// Chat is shared by every member; no single client owns it. memberDetails may
// keep entries for removed members so history still resolves sender names.
type Chat struct {
	ChatID          string                   `json:"chat_id" firestore:"chatId"`
	IsGroup         bool                     `json:"is_group" firestore:"isGroup"`
	Members         []string                 `json:"members" firestore:"members"`
	MemberDetails   map[string]MemberDetails `json:"member_details" firestore:"memberDetails"`
	Admin           string                   `json:"admin,omitempty" firestore:"admin,omitempty"`
	GroupName       string                   `json:"group_name,omitempty" firestore:"groupName,omitempty"`
	GroupPhoto      string                   `json:"group_photo" firestore:"groupPhoto"`
	LastMessage     string                   `json:"last_message" firestore:"lastMessage"`
	LastMessageTime time.Time                `json:"last_message_time" firestore:"lastMessageTime,serverTimestamp"`
	Typing          map[string]bool          `json:"typing" firestore:"typing"`
	CreatedAt       time.Time                `json:"created_at" firestore:"createdAt,serverTimestamp"`
}

// PrivateChatID is order independent so both members converge on one document.
func PrivateChatID(uidA, uidB string) string {
	ids := []string{uidA, uidB}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

func NewGroupChatID() string {
	return groupChatPrefix + uuid.New().String()
}

func (c *Chat) HasMember(uid string) bool {
	for _, m := range c.Members {
		if m == uid {
			return true
		}
	}
	return false
}

// OtherMember returns the first member that is not self, or "" if there is none.
func (c *Chat) OtherMember(self string) string {
	for _, m := range c.Members {
		if m != self {
			return m
		}
	}
	return ""
}

func (c *Chat) IsTyping(uid string) bool {
	return c.Typing[uid]
}

// MemberName resolves a display name, falling back to "Someone".
func (c *Chat) MemberName(uid string) string {
	if d, ok := c.MemberDetails[uid]; ok && d.Name != "" {
		return d.Name
	}
	return unknownMember
}

func (c *Chat) Clone() *Chat {
	if c == nil {
		return nil
	}
	out := *c
	out.Members = append(make([]string, 0, len(c.Members)), c.Members...)
	if c.MemberDetails != nil {
		out.MemberDetails = make(map[string]MemberDetails, len(c.MemberDetails))
		for k, v := range c.MemberDetails {
			out.MemberDetails[k] = v
		}
	}
	if c.Typing != nil {
		out.Typing = make(map[string]bool, len(c.Typing))
		for k, v := range c.Typing {
			out.Typing[k] = v
		}
	}
	return &out
}
