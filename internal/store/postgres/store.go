package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"holdingsd/internal/domain"
)

// Store persists the holdings cache and event log in postgres. Payloads are
// kept as the exact JSON text produced by encoding/json, so decimal balance
// strings round-trip bit-identically instead of passing through floats.
type Store struct {
	db *sql.DB
}

func NewStore(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		create table if not exists holdings_cache (
			key text primary key,
			expires_at bigint not null,
			payload jsonb not null,
			updated_at timestamptz not null default now()
		);
		create table if not exists events (
			id uuid primary key,
			user_id text,
			event_type text not null,
			payload jsonb,
			created_at timestamptz not null default now()
		);`)
	return err
}

func (s *Store) ReadHoldings(ctx context.Context, key string) (domain.HoldingsPayload, bool, error) {
	var expiresAt int64
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`select expires_at, payload from holdings_cache where key = $1`,
		key,
	).Scan(&expiresAt, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.HoldingsPayload{}, false, nil
		}
		return domain.HoldingsPayload{}, false, err
	}
	if expiresAt != 0 && expiresAt < time.Now().Unix() {
		return domain.HoldingsPayload{}, false, nil
	}
	var payload domain.HoldingsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.HoldingsPayload{}, false, fmt.Errorf("decode cached payload: %w", err)
	}
	return payload, true, nil
}

func (s *Store) WriteHoldings(ctx context.Context, key string, payload domain.HoldingsPayload, ttl time.Duration) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`insert into holdings_cache(key, expires_at, payload, updated_at)
		 values ($1, $2, $3::jsonb, now())
		 on conflict (key) do update
		 set expires_at = excluded.expires_at,
		     payload = excluded.payload,
		     updated_at = now()`,
		key, time.Now().Add(ttl).Unix(), string(raw),
	)
	return err
}

func (s *Store) DeleteHoldings(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `delete from holdings_cache where key = $1`, key)
	return err
}

func (s *Store) AppendEvent(eventType domain.EventType, userID string, payload map[string]interface{}) domain.Event {
	event := domain.Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("null")
	}
	_, _ = s.db.Exec(
		`insert into events(id, user_id, event_type, payload, created_at)
		 values ($1, $2, $3, $4::jsonb, $5)`,
		event.ID, event.UserID, string(event.Type), string(raw), event.CreatedAt,
	)
	return event
}

func (s *Store) ListEvents(limit int) []domain.Event {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`select id, coalesce(user_id, ''), event_type, coalesce(payload, 'null'), created_at
		 from events
		 order by created_at desc
		 limit $1`,
		limit,
	)
	if err != nil {
		return []domain.Event{}
	}
	defer rows.Close()

	out := make([]domain.Event, 0, limit)
	for rows.Next() {
		var event domain.Event
		var eventType string
		var raw []byte
		if err := rows.Scan(&event.ID, &event.UserID, &eventType, &raw, &event.CreatedAt); err != nil {
			continue
		}
		event.Type = domain.EventType(eventType)
		_ = json.Unmarshal(raw, &event.Payload)
		out = append(out, event)
	}
	return out
}
