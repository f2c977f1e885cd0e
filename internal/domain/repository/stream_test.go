package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_LatestSnapshotWins(t *testing.T) {
	emitted := make(chan struct{})
	s := NewStream(context.Background(), func(ctx context.Context, emit func(int)) error {
		for i := 1; i <= 5; i++ {
			emit(i)
		}
		close(emitted)
		<-ctx.Done()
		return nil
	})
	defer s.Cancel()

	<-emitted
	select {
	case v := <-s.C():
		assert.Equal(t, 5, v)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestStream_CancelClosesChannel(t *testing.T) {
	s := NewStream(context.Background(), func(ctx context.Context, emit func(string)) error {
		emit("first")
		<-ctx.Done()
		return ctx.Err()
	})

	assert.Equal(t, "first", <-s.C())
	s.Cancel()
	s.Cancel()

	_, ok := <-s.C()
	assert.False(t, ok)
	assert.NoError(t, s.Err())
}

func TestStream_SourceFailureIsReported(t *testing.T) {
	boom := errors.New("permission denied")
	s := NewStream(context.Background(), func(ctx context.Context, emit func(int)) error {
		return boom
	})

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("stream did not stop")
	}
	_, ok := <-s.C()
	require.False(t, ok)
	assert.ErrorIs(t, s.Err(), boom)
}
