package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"holdingsd/internal/domain"
)

type entry struct {
	expiresAt int64 // epoch seconds, 0 means no expiry
	payload   domain.HoldingsPayload
}

// Store keeps the holdings cache and event log in process memory. Used when
// no database is configured and as the fallback when postgres is unreachable.
type Store struct {
	mu     sync.RWMutex
	items  map[string]entry
	events []domain.Event
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{
		items:  make(map[string]entry),
		events: make([]domain.Event, 0, 256),
		now:    time.Now,
	}
}

func (s *Store) ReadHoldings(_ context.Context, key string) (domain.HoldingsPayload, bool, error) {
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return domain.HoldingsPayload{}, false, nil
	}
	if e.expiresAt != 0 && e.expiresAt < s.now().Unix() {
		return domain.HoldingsPayload{}, false, nil
	}
	return e.payload, true, nil
}

func (s *Store) WriteHoldings(_ context.Context, key string, payload domain.HoldingsPayload, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = entry{
		expiresAt: s.now().Add(ttl).Unix(),
		payload:   payload,
	}
	return nil
}

func (s *Store) DeleteHoldings(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *Store) AppendEvent(eventType domain.EventType, userID string, payload map[string]interface{}) domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	event := domain.Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: s.now().UTC(),
	}
	s.events = append(s.events, event)
	return event
}

func (s *Store) ListEvents(limit int) []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	if len(s.events) == 0 {
		return []domain.Event{}
	}
	start := max(len(s.events)-limit, 0)
	out := slices.Clone(s.events[start:])
	slices.Reverse(out)
	return out
}
