package store

import (
	"context"
	"fmt"
	"sync"

	"consentd/internal/sentinel"
	"consentd/internal/user/models"
	"consentd/pkg/domain"
)

// InMemoryStore keeps users in memory for tests. It mirrors the Postgres
// store's error contract, including email-uniqueness translation. Cascade
// removal of consent rows is the database's job; tests wire it explicitly
// through the cascade hook when they need it.
type InMemoryStore struct {
	mu       sync.RWMutex
	users    map[domain.UserID]*models.User
	cascades []func(context.Context, domain.UserID)
}

// NewInMemory constructs an empty in-memory user store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{users: make(map[domain.UserID]*models.User)}
}

// OnDelete registers a hook invoked after a user row is removed, emulating
// the schema's cascade for tests that pair this store with an in-memory ledger.
func (s *InMemoryStore) OnDelete(fn func(context.Context, domain.UserID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cascades = append(s.cascades, fn)
}

func (s *InMemoryStore) Create(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return nil, &EmailUsedError{Email: email}
		}
	}

	user := &models.User{ID: domain.NewUserID(), Email: email}
	if _, exists := s.users[user.ID]; exists {
		// Matches the Postgres identifier-collision contract, however unlikely.
		return nil, ErrCreationExhausted
	}
	s.users[user.ID] = user

	copyUser := *user
	return &copyUser, nil
}

func (s *InMemoryStore) UpdateEmail(_ context.Context, userID domain.UserID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		if u.Email == email && id != userID {
			return &EmailUsedError{Email: email}
		}
	}

	if u, ok := s.users[userID]; ok {
		u.Email = email
	}
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, userID domain.UserID) error {
	s.mu.Lock()
	_, existed := s.users[userID]
	delete(s.users, userID)
	cascades := s.cascades
	s.mu.Unlock()

	if existed {
		for _, fn := range cascades {
			fn(ctx, userID)
		}
	}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID domain.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	copyUser := *u
	return &copyUser, nil
}
