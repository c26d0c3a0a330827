package memory

import (
	"context"
	"sync"

	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
)

// Users is an in-memory user store.
type Users struct {
	mu    sync.RWMutex
	users map[int64]domain.User
}

// NewUsers returns an empty user store.
func NewUsers() *Users {
	return &Users{users: make(map[int64]domain.User)}
}

func (s *Users) Get(_ context.Context, userID int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	if u.Location != nil {
		loc := *u.Location
		u.Location = &loc
	}
	return u, nil
}

func (s *Users) update(userID int64, fn func(*domain.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		u = domain.User{ID: userID}
	}
	fn(&u)
	s.users[userID] = u
}

func (s *Users) UpsertPhone(_ context.Context, userID int64, phone string) error {
	s.update(userID, func(u *domain.User) { u.Phone = phone })
	return nil
}

func (s *Users) UpsertLocation(_ context.Context, userID int64, loc domain.Location) error {
	s.update(userID, func(u *domain.User) { u.Location = &loc })
	return nil
}

func (s *Users) UpsertAddress(_ context.Context, userID int64, address string) error {
	s.update(userID, func(u *domain.User) { u.Address = address })
	return nil
}
