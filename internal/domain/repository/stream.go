package repository

import (
	"context"
	"sync"
)

// Stream is a cancellable live subscription. Every value is a full snapshot,
// so a consumer that falls behind only ever sees the most recent one; order
// within a single stream never goes backwards.
type Stream[T any] struct {
	ch     chan T
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// NewStream runs pump on its own goroutine until ctx is cancelled or pump
// returns. pump must call emit from that goroutine only.
func NewStream[T any](ctx context.Context, pump func(ctx context.Context, emit func(T)) error) *Stream[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream[T]{
		ch:     make(chan T, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.ch)

		err := pump(ctx, s.emit)
		if err != nil && ctx.Err() == nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
	}()

	return s
}

func (s *Stream[T]) emit(v T) {
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		// Drop the stale snapshot still waiting in the buffer.
		select {
		case <-s.ch:
		default:
		}
	}
}

// C delivers snapshots. It is closed after Cancel or when the source fails.
func (s *Stream[T]) C() <-chan T {
	return s.ch
}

// Cancel stops the subscription and waits for the pump to exit. It is safe
// to call more than once.
func (s *Stream[T]) Cancel() {
	s.cancel()
	<-s.done
}

// Done is closed once the stream has stopped for any reason.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

// Err reports why the stream stopped delivering. It is nil while the stream
// is live and after a normal Cancel.
func (s *Stream[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
