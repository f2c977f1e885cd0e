package entity

import "time"

type ChatOpKind int

const (
	OpSetTyping ChatOpKind = iota + 1
	OpAddMember
	OpRemoveMember
	OpSetPreview
	OpSetGroupPhoto
)

func (k ChatOpKind) String() string {
	switch k {
	case OpSetTyping:
		return "set_typing"
	case OpAddMember:
		return "add_member"
	case OpRemoveMember:
		return "remove_member"
	case OpSetPreview:
		return "set_preview"
	case OpSetGroupPhoto:
		return "set_group_photo"
	}
	return "unknown"
}

// ChatOp is a single field-level mutation. Every kind is either a
// last-write-wins scalar write or a set operation, so concurrent writers
// commute without locking.
type ChatOp struct {
	Kind    ChatOpKind
	UID     string
	Typing  bool
	Details MemberDetails
	Text    string
	URL     string
}

// Apply folds the op into a local copy of the chat. now stands in for the
// server commit time.
func (op ChatOp) Apply(c *Chat, now time.Time) {
	switch op.Kind {
	case OpSetTyping:
		if c.Typing == nil {
			c.Typing = map[string]bool{}
		}
		c.Typing[op.UID] = op.Typing
	case OpAddMember:
		if !c.HasMember(op.UID) {
			c.Members = append(c.Members, op.UID)
		}
		if c.MemberDetails == nil {
			c.MemberDetails = map[string]MemberDetails{}
		}
		c.MemberDetails[op.UID] = op.Details
	case OpRemoveMember:
		kept := c.Members[:0:0]
		for _, m := range c.Members {
			if m != op.UID {
				kept = append(kept, m)
			}
		}
		c.Members = kept
	case OpSetPreview:
		c.LastMessage = op.Text
		c.LastMessageTime = now
	case OpSetGroupPhoto:
		c.GroupPhoto = op.URL
	}
}

// ChatUpdate groups field ops on one chat with messages appended to its log.
// Stores commit the whole update in a single write.
type ChatUpdate struct {
	ops      []ChatOp
	messages []*Message
}

func NewChatUpdate() *ChatUpdate {
	return &ChatUpdate{}
}

func (u *ChatUpdate) SetTyping(uid string, typing bool) *ChatUpdate {
	u.ops = append(u.ops, ChatOp{Kind: OpSetTyping, UID: uid, Typing: typing})
	return u
}

func (u *ChatUpdate) AddMember(uid string, details MemberDetails) *ChatUpdate {
	u.ops = append(u.ops, ChatOp{Kind: OpAddMember, UID: uid, Details: details})
	return u
}

func (u *ChatUpdate) RemoveMember(uid string) *ChatUpdate {
	u.ops = append(u.ops, ChatOp{Kind: OpRemoveMember, UID: uid})
	return u
}

func (u *ChatUpdate) SetPreview(text string) *ChatUpdate {
	u.ops = append(u.ops, ChatOp{Kind: OpSetPreview, Text: text})
	return u
}

func (u *ChatUpdate) SetGroupPhoto(url string) *ChatUpdate {
	u.ops = append(u.ops, ChatOp{Kind: OpSetGroupPhoto, URL: url})
	return u
}

func (u *ChatUpdate) Append(msg *Message) *ChatUpdate {
	u.messages = append(u.messages, msg)
	return u
}

func (u *ChatUpdate) Ops() []ChatOp {
	return u.ops
}

func (u *ChatUpdate) Messages() []*Message {
	return u.messages
}

func (u *ChatUpdate) Empty() bool {
	return len(u.ops) == 0 && len(u.messages) == 0
}

func (u *ChatUpdate) ApplyTo(c *Chat, now time.Time) {
	for _, op := range u.ops {
		op.Apply(c, now)
	}
}
