package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"consentd/internal/consent/models"
	"consentd/pkg/domain"
)

// InMemoryStore is a map-backed consent ledger for tests and local
// development. It keeps the same write semantics as the PostgreSQL store:
// every Set appends one history event and replaces the current record.
type InMemoryStore struct {
	mu      sync.RWMutex
	current map[domain.UserID]map[models.Type]bool
	history map[domain.UserID][]*models.HistoryEvent
	now     func() time.Time
}

// NewInMemory constructs an empty in-memory ledger.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		current: make(map[domain.UserID]map[models.Type]bool),
		history: make(map[domain.UserID][]*models.HistoryEvent),
		now:     time.Now,
	}
}

// SetClock overrides the timestamp source for history events.
func (s *InMemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *InMemoryStore) Set(_ context.Context, userID domain.UserID, typ models.Type, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[userID] = append(s.history[userID], &models.HistoryEvent{
		UserID:    userID,
		Type:      typ,
		Enabled:   enabled,
		UpdatedAt: s.now(),
	})

	if s.current[userID] == nil {
		s.current[userID] = make(map[models.Type]bool)
	}
	s.current[userID][typ] = enabled
	return nil
}

func (s *InMemoryStore) ListCurrent(_ context.Context, userID domain.UserID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.Record
	for typ, enabled := range s.current[userID] {
		records = append(records, &models.Record{UserID: userID, Type: typ, Enabled: enabled})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Type < records[j].Type
	})
	return records, nil
}

func (s *InMemoryStore) ListHistory(_ context.Context, userID domain.UserID, offset, limit int) ([]*models.HistoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.history[userID]
	// Newest first; ties keep insertion order reversed, matching the index
	// scan direction of the SQL store closely enough for tests.
	ordered := make([]*models.HistoryEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].UpdatedAt.After(ordered[j].UpdatedAt)
	})

	if offset >= len(ordered) {
		return nil, nil
	}
	ordered = ordered[offset:]
	if limit < len(ordered) {
		ordered = ordered[:limit]
	}

	out := make([]*models.HistoryEvent, len(ordered))
	for i, event := range ordered {
		clone := *event
		out[i] = &clone
	}
	return out, nil
}

// DeleteByUser drops all consent state for a user. Wired as an OnDelete hook
// of the in-memory user store to emulate the foreign key cascade.
func (s *InMemoryStore) DeleteByUser(_ context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.current, userID)
	delete(s.history, userID)
	return nil
}
