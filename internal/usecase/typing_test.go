package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/infrastructure/ratelimit"
)

type typingWrites struct {
	mu     sync.Mutex
	values []bool
}

func (w *typingWrites) TrySetTyping(ctx context.Context, chatID, uid string, typing bool) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.values = append(w.values, typing)
	return true, nil
}

func (w *typingWrites) snapshot() []bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]bool(nil), w.values...)
}

func TestClampTypingDebounce(t *testing.T) {
	assert.Equal(t, MinTypingDebounce, ClampTypingDebounce(0))
	assert.Equal(t, MinTypingDebounce, ClampTypingDebounce(100*time.Millisecond))
	assert.Equal(t, time.Second, ClampTypingDebounce(time.Second))
	assert.Equal(t, MaxTypingDebounce, ClampTypingDebounce(time.Minute))
}

func TestTypist_CoalescesKeystrokes(t *testing.T) {
	w := &typingWrites{}
	typist := NewTypist(w, "chat", "A", 0)
	defer typist.Close()

	for i := 0; i < 5; i++ {
		typist.Input(true)
		time.Sleep(20 * time.Millisecond)
	}
	assert.Empty(t, w.snapshot())

	assert.Eventually(t, func() bool {
		return len(w.snapshot()) == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, []bool{true}, w.snapshot())

	// Same state again settles without a write.
	typist.Input(true)
	time.Sleep(MinTypingDebounce + 200*time.Millisecond)
	assert.Equal(t, []bool{true}, w.snapshot())
}

func TestTypist_SentWritesFalseAndCancelsPending(t *testing.T) {
	w := &typingWrites{}
	typist := NewTypist(w, "chat", "A", 0)
	defer typist.Close()

	typist.Input(true)
	typist.Sent()
	assert.Equal(t, []bool{false}, w.snapshot())

	time.Sleep(MinTypingDebounce + 200*time.Millisecond)
	assert.Equal(t, []bool{false}, w.snapshot())
}

func TestTypist_CloseAlwaysClears(t *testing.T) {
	w := &typingWrites{}
	typist := NewTypist(w, "chat", "A", 0)

	typist.Input(true)
	typist.Close()
	typist.Close()
	typist.Input(true)

	time.Sleep(MinTypingDebounce + 200*time.Millisecond)
	assert.Equal(t, []bool{false}, w.snapshot())
}

func TestTypist_RetriesAfterRateLimitedWrite(t *testing.T) {
	e := newEnv(t)
	limiter := ratelimit.NewRateLimiter(map[ratelimit.Action]ratelimit.Policy{
		ratelimit.ActionTyping: {Burst: 1, Every: 2 * time.Second},
	})
	uc := NewMessageUseCase(e.chats, e.uploader, limiter, 0)
	chatID, err := e.chatUC.EnsurePrivateChat(context.Background(), e.alice, e.bob)
	require.NoError(t, err)

	typist := NewTypist(uc, chatID, "A", 0)
	defer typist.Close()
	typing := func() bool { return e.chat(t, chatID).IsTyping("A") }

	typist.Input(true)
	assert.Eventually(t, typing, 2*time.Second, 20*time.Millisecond)

	typist.Sent()
	assert.False(t, typing())

	// The bucket is empty, so the first settle is dropped and retried.
	typist.Input(true)
	time.Sleep(MinTypingDebounce + 200*time.Millisecond)
	assert.False(t, typing())
	assert.Eventually(t, typing, 4*time.Second, 50*time.Millisecond)
}
