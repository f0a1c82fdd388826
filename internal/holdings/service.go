package holdings

import (
	"context"
	"time"

	"holdingsd/internal/domain"
	storepkg "holdingsd/internal/store"
)

// SourceTag identifies the upstream in served payloads.
const SourceTag = "coinbase_exchange_sandbox"

// keyPrefix namespaces holdings rows so unrelated entries sharing the same
// store cannot collide.
const keyPrefix = "holdings#"

func CacheKey(userID string) string { return keyPrefix + userID }

// AccountLister is the signed exchange surface the service depends on.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]map[string]interface{}, error)
}

// Service composes the result cache, the signed exchange client and the
// normalizer: read-through on the cache, fetch and write back on a miss.
type Service struct {
	exchange AccountLister
	store    storepkg.Store
	cacheTTL time.Duration
	now      func() time.Time
}

func NewService(exchange AccountLister, store storepkg.Store, cacheTTL time.Duration) *Service {
	return &Service{
		exchange: exchange,
		store:    store,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// GetHoldings serves the user's holdings from the cache when a fresh entry
// exists and forceRefresh is unset; otherwise it fetches from the exchange,
// normalizes, writes the result back under the configured TTL and returns it.
func (s *Service) GetHoldings(ctx context.Context, userID string, forceRefresh bool) (domain.HoldingsResult, error) {
	key := CacheKey(userID)

	if !forceRefresh {
		payload, ok, err := s.store.ReadHoldings(ctx, key)
		if err != nil {
			return domain.HoldingsResult{}, err
		}
		if ok {
			return domain.HoldingsResult{Cached: true, Payload: payload}, nil
		}
	}

	accounts, err := s.exchange.ListAccounts(ctx)
	if err != nil {
		return domain.HoldingsResult{}, err
	}

	items := Normalize(accounts)
	payload := domain.HoldingsPayload{
		Source:    SourceTag,
		FetchedAt: s.now().Unix(),
		Count:     len(items),
		Items:     items,
	}
	if err := s.store.WriteHoldings(ctx, key, payload, s.cacheTTL); err != nil {
		return domain.HoldingsResult{}, err
	}
	s.store.AppendEvent(domain.EventHoldingsFetched, userID, map[string]interface{}{
		"count":  len(items),
		"forced": forceRefresh,
	})
	return domain.HoldingsResult{Cached: false, Payload: payload}, nil
}

// InvalidateCache drops a user's cached payload.
func (s *Service) InvalidateCache(ctx context.Context, userID string) error {
	if err := s.store.DeleteHoldings(ctx, CacheKey(userID)); err != nil {
		return err
	}
	s.store.AppendEvent(domain.EventCacheInvalidated, userID, nil)
	return nil
}
