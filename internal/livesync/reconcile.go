// Package livesync folds live store snapshots into per-user view state.
//
// Every subscription delivers whole snapshots. The functions in this file
// compare a new snapshot against the previous local state and report what
// changed; they never look at more than one subscription, so the chat list
// and a message log can be arbitrarily skewed against each other.
package livesync

import (
	"reflect"
	"sort"

	"chatsync/internal/domain/entity"
)

type ChatListDiff struct {
	Added     []string `json:"added,omitempty"`
	Removed   []string `json:"removed,omitempty"`
	Updated   []string `json:"updated,omitempty"`
	Reordered bool     `json:"reordered,omitempty"`
}

func (d ChatListDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Updated) == 0 && !d.Reordered
}

// ReconcileChatList sorts next by lastMessageTime descending and diffs it
// against prev. Chats with equal times keep their previous relative order;
// chats new to the list keep the order they arrived in.
func ReconcileChatList(prev, next []*entity.Chat) ([]*entity.Chat, ChatListDiff) {
	prevIndex := make(map[string]int, len(prev))
	for i, c := range prev {
		prevIndex[c.ChatID] = i
	}

	sorted := make([]*entity.Chat, len(next))
	copy(sorted, next)
	arrival := make(map[string]int, len(next))
	for i, c := range next {
		arrival[c.ChatID] = i
	}

	// Seed with the previous order so the time sort below is stable for ties.
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, iok := prevIndex[sorted[i].ChatID]
		pj, jok := prevIndex[sorted[j].ChatID]
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		default:
			return arrival[sorted[i].ChatID] < arrival[sorted[j].ChatID]
		}
	})
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastMessageTime.After(sorted[j].LastMessageTime)
	})

	var diff ChatListDiff
	nextByID := make(map[string]*entity.Chat, len(sorted))
	for _, c := range sorted {
		nextByID[c.ChatID] = c
		if i, ok := prevIndex[c.ChatID]; !ok {
			diff.Added = append(diff.Added, c.ChatID)
		} else if !reflect.DeepEqual(prev[i], c) {
			diff.Updated = append(diff.Updated, c.ChatID)
		}
	}
	for _, c := range prev {
		if _, ok := nextByID[c.ChatID]; !ok {
			diff.Removed = append(diff.Removed, c.ChatID)
		}
	}

	// Reordered compares only chats present on both sides.
	var before, after []string
	for _, c := range prev {
		if _, ok := nextByID[c.ChatID]; ok {
			before = append(before, c.ChatID)
		}
	}
	for _, c := range sorted {
		if _, ok := prevIndex[c.ChatID]; ok {
			after = append(after, c.ChatID)
		}
	}
	diff.Reordered = !reflect.DeepEqual(before, after)

	return sorted, diff
}

type MessageDiff struct {
	Added       []string `json:"added,omitempty"`
	SeenChanged []string `json:"seen_changed,omitempty"`
	Removed     []string `json:"removed,omitempty"`
}

func (d MessageDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.SeenChanged) == 0 && len(d.Removed) == 0
}

// ReconcileMessages orders next by createdAt ascending and diffs it against
// prev by message id.
func ReconcileMessages(prev, next []*entity.Message) ([]*entity.Message, MessageDiff) {
	sorted := make([]*entity.Message, len(next))
	copy(sorted, next)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	prevByID := make(map[string]*entity.Message, len(prev))
	for _, m := range prev {
		prevByID[m.ID] = m
	}

	var diff MessageDiff
	seen := make(map[string]bool, len(sorted))
	for _, m := range sorted {
		seen[m.ID] = true
		old, ok := prevByID[m.ID]
		if !ok {
			diff.Added = append(diff.Added, m.ID)
			continue
		}
		if !sameSet(old.SeenBy, m.SeenBy) {
			diff.SeenChanged = append(diff.SeenChanged, m.ID)
		}
	}
	for _, m := range prev {
		if !seen[m.ID] {
			diff.Removed = append(diff.Removed, m.ID)
		}
	}

	return sorted, diff
}

type ChatDiff struct {
	Created        bool     `json:"created,omitempty"`
	Deleted        bool     `json:"deleted,omitempty"`
	TypingChanged  bool     `json:"typing_changed,omitempty"`
	MembersChanged bool     `json:"members_changed,omitempty"`
	PreviewChanged bool     `json:"preview_changed,omitempty"`
	PhotoChanged   bool     `json:"photo_changed,omitempty"`
	Joined         []string `json:"joined,omitempty"`
	Left           []string `json:"left,omitempty"`
}

func (d ChatDiff) Empty() bool {
	return !d.Created && !d.Deleted && !d.TypingChanged && !d.MembersChanged &&
		!d.PreviewChanged && !d.PhotoChanged
}

// ReconcileChat reports what changed between two snapshots of one chat
// document. Either side may be nil while the document does not exist.
func ReconcileChat(prev, next *entity.Chat) ChatDiff {
	var diff ChatDiff
	switch {
	case prev == nil && next == nil:
		return diff
	case prev == nil:
		diff.Created = true
		diff.Joined = append([]string(nil), next.Members...)
		diff.MembersChanged = len(next.Members) > 0
		diff.TypingChanged = len(typists(next)) > 0
		diff.PreviewChanged = next.LastMessage != ""
		diff.PhotoChanged = next.GroupPhoto != ""
		return diff
	case next == nil:
		diff.Deleted = true
		diff.Left = append([]string(nil), prev.Members...)
		return diff
	}

	diff.Joined = missingFrom(next.Members, prev.Members)
	diff.Left = missingFrom(prev.Members, next.Members)
	diff.MembersChanged = len(diff.Joined) > 0 || len(diff.Left) > 0
	diff.TypingChanged = !sameSet(typists(prev), typists(next))
	diff.PreviewChanged = prev.LastMessage != next.LastMessage ||
		!prev.LastMessageTime.Equal(next.LastMessageTime)
	diff.PhotoChanged = prev.GroupPhoto != next.GroupPhoto

	return diff
}

func typists(c *entity.Chat) []string {
	var out []string
	for uid, on := range c.Typing {
		if on {
			out = append(out, uid)
		}
	}
	return out
}

// missingFrom returns the entries of a that are not in b, in a's order.
func missingFrom(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, v := range b {
		in[v] = true
	}
	var out []string
	for _, v := range a {
		if !in[v] {
			out = append(out, v)
		}
	}
	return out
}

func sameSet(a, b []string) bool {
	return len(missingFrom(a, b)) == 0 && len(missingFrom(b, a)) == 0
}
