package memory

import (
	"context"
	"sort"

	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
	"chatsync/pkg/errors"
)

type userRepository struct {
	store *Store
}

func NewUserRepository(store *Store) repository.UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	s := r.store
	s.mux.Lock()
	defer s.mux.Unlock()

	if err := s.fault("CreateUser"); err != nil {
		return err
	}

	stored := user.Clone()
	now := s.tick()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.LastSeen.IsZero() {
		stored.LastSeen = now
	}
	s.users[stored.UID] = stored
	s.commit()
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, uid string) (*entity.User, error) {
	s := r.store
	s.mux.Lock()
	defer s.mux.Unlock()

	user, ok := s.users[uid]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user.Clone(), nil
}

func (r *userRepository) List(ctx context.Context) ([]*entity.User, error) {
	s := r.store
	s.mux.Lock()
	defer s.mux.Unlock()

	out := make([]*entity.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UID < out[j].UID
	})
	return out, nil
}

func (r *userRepository) SetPresence(ctx context.Context, uid string, online bool) error {
	return r.update(uid, func(u *entity.User, s *Store) {
		u.Online = online
		u.LastSeen = s.tick()
	})
}

func (r *userRepository) UpdatePhoto(ctx context.Context, uid, photoURL string) error {
	return r.update(uid, func(u *entity.User, _ *Store) {
		u.PhotoURL = photoURL
	})
}

func (r *userRepository) update(uid string, mutate func(*entity.User, *Store)) error {
	s := r.store
	s.mux.Lock()
	defer s.mux.Unlock()

	if err := s.fault("UpdateUser"); err != nil {
		return err
	}
	user, ok := s.users[uid]
	if !ok {
		return errors.NotFound("User", nil)
	}

	next := user.Clone()
	mutate(next, s)
	s.users[uid] = next
	s.commit()
	return nil
}

func (r *userRepository) Watch(ctx context.Context, uid string) *repository.Stream[*entity.User] {
	s := r.store
	return watch(ctx, s, "WatchUser", func() *entity.User {
		return s.users[uid].Clone()
	})
}
