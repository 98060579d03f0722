package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"palmera_listings/internal/adapters/observability"
)

// Status describes how a Get was satisfied.
type Status int

const (
	Fresh Status = iota // value within its TTL, or just refreshed
	Stale               // refresh failed, previous value served
	Empty               // refresh failed and nothing was ever cached
)

func (s Status) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "empty"
	}
}

type entry struct {
	value     any
	fetchedAt time.Time
}

// Store is a process-lifetime keyed cache. Entries are replaced on refresh
// and never evicted; a failed refresh keeps serving the previous value.
//
// Deliberately single-flight-naive: concurrent callers that both see an
// expired entry both invoke the producer. Staleness is bounded by the TTL,
// not by ordering, so last-writer-wins on replace is fine.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttls    map[string]time.Duration
	now     func() time.Time
}

// New builds a Store around the given clock. Pass time.Now in production;
// tests inject their own to exercise expiry deterministically.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		entries: make(map[string]entry),
		ttls:    make(map[string]time.Duration),
		now:     now,
	}
}

// SetTTL registers the expiry window for key. Keys without a TTL never expire
// once populated.
func (s *Store) SetTTL(key string, ttl time.Duration) {
	s.mu.Lock()
	s.ttls[key] = ttl
	s.mu.Unlock()
}

func (s *Store) lookup(key string) (entry, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false, false
	}
	ttl, hasTTL := s.ttls[key]
	fresh := !hasTTL || s.now().Sub(e.fetchedAt) < ttl
	return e, true, fresh
}

func (s *Store) store(key string, v any) {
	s.mu.Lock()
	s.entries[key] = entry{value: v, fetchedAt: s.now()}
	s.mu.Unlock()
}

// GetOrProduce returns the cached value for key, invoking produce to fill or
// refresh it. Failure semantics per the store contract: a failed refresh with
// a previous value serves that value as Stale with a nil error; a failed
// first fill returns the zero value, Empty, and the producer's error.
func GetOrProduce[T any](ctx context.Context, s *Store, key string, produce func(context.Context) (T, error)) (T, Status, error) {
	if e, ok, fresh := s.lookup(key); ok && fresh {
		if v, ok := e.value.(T); ok {
			observability.ObserveCache(key, "hit")
			return v, Fresh, nil
		}
		// stored type changed under us; fall through to refresh
	}
	observability.ObserveCache(key, "miss")

	v, err := produce(ctx)
	if err == nil {
		s.store(key, v)
		observability.ObserveCache(key, "set")
		return v, Fresh, nil
	}

	if e, ok, _ := s.lookup(key); ok {
		if old, ok := e.value.(T); ok {
			observability.ObserveCache(key, "stale")
			log.Warn().Str("key", key).Err(err).
				Time("fetched_at", e.fetchedAt).
				Msg("refresh failed, serving stale value")
			return old, Stale, nil
		}
	}

	observability.ObserveCache(key, "empty")
	log.Error().Str("key", key).Err(err).Msg("fetch failed with no cached value")
	var zero T
	return zero, Empty, err
}
