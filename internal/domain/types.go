package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldingItem is one positive balance for a single currency.
type HoldingItem struct {
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

// HoldingsPayload is a normalized holdings snapshot. Once built it is stored
// and served as-is, never mutated in place.
type HoldingsPayload struct {
	Source    string        `json:"source"`
	FetchedAt int64         `json:"fetched_at"`
	Count     int           `json:"count"`
	Items     []HoldingItem `json:"items"`
}

// HoldingsResult is a payload plus whether it was served from the cache.
type HoldingsResult struct {
	Cached  bool
	Payload HoldingsPayload
}

type EventType string

const (
	EventHoldingsFetched     EventType = "HoldingsFetched"
	EventCredentialRefreshed EventType = "CredentialRefreshed"
	EventCacheInvalidated    EventType = "CacheInvalidated"
)

type Event struct {
	ID        string                 `json:"event_id"`
	UserID    string                 `json:"user_id,omitempty"`
	Type      EventType              `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
}
