package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"palmera_listings/internal/cache"
)

// fixed-point clock the tests can advance by hand
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestGet_FreshHitSkipsProducer(t *testing.T) {
	ck := newClock()
	s := cache.New(ck.now)
	s.SetTTL("catalog", 30*time.Minute)

	calls := 0
	produce := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	v, st, err := cache.GetOrProduce(context.Background(), s, "catalog", produce)
	if err != nil || st != cache.Fresh || len(v) != 2 {
		t.Fatalf("first get: v=%v st=%v err=%v", v, st, err)
	}

	ck.advance(29 * time.Minute)
	v2, st2, err := cache.GetOrProduce(context.Background(), s, "catalog", produce)
	if err != nil || st2 != cache.Fresh {
		t.Fatalf("second get: st=%v err=%v", st2, err)
	}
	if calls != 1 {
		t.Fatalf("producer called %d times within TTL, want 1", calls)
	}
	if len(v2) != 2 {
		t.Fatalf("unexpected cached value: %v", v2)
	}
}

func TestGet_ExpiryTriggersRefresh(t *testing.T) {
	ck := newClock()
	s := cache.New(ck.now)
	s.SetTTL("zones", time.Hour)

	calls := 0
	produce := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	if v, _, _ := cache.GetOrProduce(context.Background(), s, "zones", produce); v != 1 {
		t.Fatalf("want first value 1, got %d", v)
	}
	ck.advance(61 * time.Minute)
	if v, _, _ := cache.GetOrProduce(context.Background(), s, "zones", produce); v != 2 {
		t.Fatalf("want refreshed value 2, got %d", v)
	}
	if calls != 2 {
		t.Fatalf("producer calls = %d, want 2", calls)
	}
}

func TestGet_StaleServedOnRefreshFailure(t *testing.T) {
	ck := newClock()
	s := cache.New(ck.now)
	s.SetTTL("blog", time.Hour)

	good := func(context.Context) (string, error) { return "first", nil }
	bad := func(context.Context) (string, error) { return "", errors.New("upstream down") }

	if v, _, err := cache.GetOrProduce(context.Background(), s, "blog", good); err != nil || v != "first" {
		t.Fatalf("seed: v=%q err=%v", v, err)
	}

	ck.advance(2 * time.Hour)
	v, st, err := cache.GetOrProduce(context.Background(), s, "blog", bad)
	if err != nil {
		t.Fatalf("stale serve must not surface the error, got %v", err)
	}
	if st != cache.Stale || v != "first" {
		t.Fatalf("want stale 'first', got st=%v v=%q", st, v)
	}
}

func TestGet_EmptyOnFirstFailure(t *testing.T) {
	s := cache.New(newClock().now)
	s.SetTTL("catalog", time.Minute)

	wantErr := errors.New("no upstream")
	v, st, err := cache.GetOrProduce(context.Background(), s, "catalog", func(context.Context) ([]int, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("want producer error surfaced, got %v", err)
	}
	if st != cache.Empty || v != nil {
		t.Fatalf("want empty zero value, got st=%v v=%v", st, v)
	}
}

func TestGet_NoTTLNeverExpires(t *testing.T) {
	ck := newClock()
	s := cache.New(ck.now)

	calls := 0
	produce := func(context.Context) (string, error) { calls++; return "v", nil }

	_, _, _ = cache.GetOrProduce(context.Background(), s, "static", produce)
	ck.advance(1000 * time.Hour)
	_, _, _ = cache.GetOrProduce(context.Background(), s, "static", produce)
	if calls != 1 {
		t.Fatalf("key without TTL refetched: %d calls", calls)
	}
}
