// Package memory is a process-local live store with the same commit and
// subscription semantics as the Firestore adapters. It backs tests and the
// single-node STORE_DRIVER=memory mode.
package memory

import (
	"context"
	"reflect"
	"sync"
	"time"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
)

type Store struct {
	mux sync.Mutex

	users     map[string]*entity.User
	chats     map[string]*entity.Chat
	chatOrder []string
	messages  map[string][]*entity.Message

	now  func() time.Time
	last time.Time

	// changed is closed and replaced on every commit.
	changed chan struct{}
	faults  map[string]error
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*entity.User),
		chats:    make(map[string]*entity.Chat),
		messages: make(map[string][]*entity.Message),
		now:      time.Now,
		changed:  make(chan struct{}),
		faults:   make(map[string]error),
	}
}

// FailNext makes the next call of the named repository method return err.
// Watch methods fail their live stream on the next commit instead.
func (s *Store) FailNext(method string, err error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.faults[method] = err
}

// Poke wakes every watcher without changing any data.
func (s *Store) Poke() {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.commit()
}

// fault must be called with mux held.
func (s *Store) fault(method string) error {
	err, ok := s.faults[method]
	if !ok {
		return nil
	}
	delete(s.faults, method)
	return err
}

// tick returns a commit time strictly after the previous one, standing in for
// the server timestamp. Must be called with mux held.
func (s *Store) tick() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// commit must be called with mux held.
func (s *Store) commit() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// watch emits snapshot() once immediately and again after every commit that
// changes it. snapshot runs with mux held and must return copies.
func watch[T any](ctx context.Context, s *Store, method string, snapshot func() T) *repository.Stream[T] {
	return repository.NewStream(ctx, func(ctx context.Context, emit func(T)) error {
		var (
			last  T
			first = true
		)
		for {
			s.mux.Lock()
			if err := s.fault(method); err != nil {
				s.mux.Unlock()
				return err
			}
			v := snapshot()
			changed := s.changed
			s.mux.Unlock()

			if first || !reflect.DeepEqual(v, last) {
				emit(v)
				last = v
				first = false
			}

			select {
			case <-ctx.Done():
				return nil
			case <-changed:
			}
		}
	})
}
