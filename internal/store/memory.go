package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/garuda-portal/apiserver/types"
)

// MemoryUserStore is a threadsafe in-memory store for tests and local
// development. Uniqueness of email and username is enforced under the
// same lock as the insert, so concurrent registrations behave like a
// backend with a unique index.
type MemoryUserStore struct {
	mu      sync.RWMutex
	users   map[int64]types.User
	byEmail map[string]int64
	byName  map[string]int64
	nextID  int64
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:   make(map[int64]types.User),
		byEmail: make(map[string]int64),
		byName:  make(map[string]int64),
		nextID:  1,
	}
}

func (s *MemoryUserStore) GetByID(ctx context.Context, id int64) (types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryUserStore) GetByEmail(ctx context.Context, email string) (types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return s.users[id], nil
}

func (s *MemoryUserStore) Create(ctx context.Context, user types.User) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return types.User{}, ErrDuplicate
	}
	if _, exists := s.byName[user.Username]; exists {
		return types.User{}, ErrDuplicate
	}

	now := time.Now()
	user.ID = s.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	s.nextID++

	s.users[user.ID] = user
	s.byEmail[user.Email] = user.ID
	s.byName[user.Username] = user.ID
	return user, nil
}

func (s *MemoryUserStore) Update(ctx context.Context, user types.User) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[user.ID]
	if !ok {
		return types.User{}, ErrNotFound
	}
	if id, exists := s.byEmail[user.Email]; exists && id != user.ID {
		return types.User{}, ErrDuplicate
	}
	if id, exists := s.byName[user.Username]; exists && id != user.ID {
		return types.User{}, ErrDuplicate
	}

	delete(s.byEmail, current.Email)
	delete(s.byName, current.Username)

	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = time.Now()
	s.users[user.ID] = user
	s.byEmail[user.Email] = user.ID
	s.byName[user.Username] = user.ID
	return user, nil
}

func (s *MemoryUserStore) SetLastLogin(ctx context.Context, id int64, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.LastLogin = &when
	user.UpdatedAt = when
	s.users[id] = user
	return nil
}

func (s *MemoryUserStore) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]types.User, 0, len(s.users))
	for _, user := range s.users {
		all = append(all, user)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	if offset >= total {
		return []types.User{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *MemoryUserStore) Close(ctx context.Context) error {
	return nil
}
