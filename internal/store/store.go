package store

import (
	"context"
	"time"

	"holdingsd/internal/domain"
)

// Store is the durable result-cache and audit-log contract used by the
// service and HTTP layers.
type Store interface {
	// ReadHoldings returns the cached payload for key, reporting a miss for
	// absent or logically expired entries. Expiry is lazy; expired rows are
	// simply ignored until overwritten.
	ReadHoldings(ctx context.Context, key string) (domain.HoldingsPayload, bool, error)
	// WriteHoldings overwrites any existing entry for key with the payload
	// and an expiry of now + ttl.
	WriteHoldings(ctx context.Context, key string, payload domain.HoldingsPayload, ttl time.Duration) error
	DeleteHoldings(ctx context.Context, key string) error

	AppendEvent(eventType domain.EventType, userID string, payload map[string]interface{}) domain.Event
	ListEvents(limit int) []domain.Event
}
