package usecase

import (
	"context"
	"sync"
	"time"

	"chatsync/pkg/logger"
)

const (
	MinTypingDebounce = 500 * time.Millisecond
	MaxTypingDebounce = 2 * time.Second

	typingWriteTimeout = 5 * time.Second
)

// TypingSetter reports written=false when the write was dropped by rate
// limiting.
type TypingSetter interface {
	TrySetTyping(ctx context.Context, chatID, uid string, typing bool) (written bool, err error)
}

// Typist coalesces keystroke activity for one user in one chat into typing
// flag writes. The state settles only after input has been quiet for the
// debounce delay. Sent and Close always write false immediately so the
// indicator cannot get stuck on. A dropped true write is retried after the
// delay while the user is still composing.
type Typist struct {
	setter TypingSetter
	chatID string
	uid    string
	delay  time.Duration

	mu        sync.Mutex
	timer     *time.Timer
	gen       uint64
	composing bool
	sent      bool
	hasSent   bool
	closed    bool
}

func NewTypist(setter TypingSetter, chatID, uid string, delay time.Duration) *Typist {
	return &Typist{
		setter: setter,
		chatID: chatID,
		uid:    uid,
		delay:  ClampTypingDebounce(delay),
	}
}

func ClampTypingDebounce(d time.Duration) time.Duration {
	if d < MinTypingDebounce {
		return MinTypingDebounce
	}
	if d > MaxTypingDebounce {
		return MaxTypingDebounce
	}
	return d
}

// Input records the current composer state, typically "text is non-empty".
func (t *Typist) Input(composing bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.composing = composing
	t.gen++
	gen := t.gen
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.delay, func() { t.settle(gen) })
}

// Sent clears the flag after a message goes out.
func (t *Typist) Sent() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.cancelPending()
	t.composing = false
	t.write(false)
}

// Close clears the flag and stops the typist. It is safe to call more than once.
func (t *Typist) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.cancelPending()
	t.closed = true
	t.write(false)
}

func (t *Typist) settle(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// A later Input, Sent or Close superseded this timer.
	if t.closed || gen != t.gen {
		return
	}
	if t.hasSent && t.sent == t.composing {
		return
	}
	if dropped := t.write(t.composing); dropped && t.composing {
		t.timer = time.AfterFunc(t.delay, func() { t.settle(gen) })
	}
}

// cancelPending must be called with mu held.
func (t *Typist) cancelPending() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// write must be called with mu held so writes reach the store in order. The
// last sent state only changes when the store accepted the write; dropped
// reports a rate-limited write.
func (t *Typist) write(typing bool) (dropped bool) {
	ctx, cancel := context.WithTimeout(context.Background(), typingWriteTimeout)
	defer cancel()

	written, err := t.setter.TrySetTyping(ctx, t.chatID, t.uid, typing)
	if err != nil {
		logger.Warn("Failed to set typing=%v for %s in %s: %v", typing, t.uid, t.chatID, err)
		return false
	}
	if !written {
		return true
	}
	t.sent = typing
	t.hasSent = true
	return false
}
