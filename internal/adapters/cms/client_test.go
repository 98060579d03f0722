package cms_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"palmera_listings/internal/adapters/cms"
)

func newClient(base string) *cms.Client {
	return cms.New(base, 100, 5, 0, 2*time.Second) // high RPS, no pacing in tests
}

func TestListProperties_FallsBackToSecondCandidate(t *testing.T) {
	var legacyHits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wp/v2/property":
			w.WriteHeader(http.StatusNotFound)
		case "/wp/v2/properties":
			_ = json.NewEncoder(w).Encode([]map[string]any{{"id": 7.0, "title": "Casa Azul"}})
		case "/wp/v2/listing":
			atomic.AddInt32(&legacyHits, 1)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := newClient(ts.URL).ListProperties(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0]["title"] != "Casa Azul" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&legacyHits) != 0 {
		t.Fatalf("later candidate was probed after a success")
	}
}

func TestProbe_AggregateErrorNamesEveryCandidate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := newClient(ts.URL).ListProperties(ctx)
	if err == nil {
		t.Fatal("expected error when every candidate fails")
	}
	var pe *cms.ProbeError
	if !errors.As(err, &pe) {
		t.Fatalf("want ProbeError, got %T: %v", err, err)
	}
	if len(pe.Attempts) != 3 {
		t.Fatalf("want 3 attempts recorded, got %d", len(pe.Attempts))
	}
	msg := err.Error()
	for _, frag := range []string{"property collection", "500", "GET"} {
		if !strings.Contains(msg, frag) {
			t.Fatalf("error %q missing %q", msg, frag)
		}
	}
}

func TestConfiguredTimeoutAppliesToRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_ = json.NewEncoder(w).Encode([]map[string]any{})
	}))
	defer ts.Close()

	c := cms.New(ts.URL, 100, 5, 0, 20*time.Millisecond)
	_, err := c.ListProperties(context.Background())
	if err == nil {
		t.Fatal("expected timeout error from slow upstream")
	}
	var pe *cms.ProbeError
	if !errors.As(err, &pe) {
		t.Fatalf("want ProbeError, got %T: %v", err, err)
	}
	for _, a := range pe.Attempts {
		if a.Err == nil {
			t.Fatalf("attempt %s %s completed despite the deadline", a.Method, a.Path)
		}
	}
}

func TestListZones_MalformedBodyMovesOn(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wp/v2/zone":
			_, _ = w.Write([]byte("<html>not json</html>"))
		case "/wp/v2/zones":
			_ = json.NewEncoder(w).Encode([]map[string]any{{"id": 1.0, "name": "Rodadero", "slug": "rodadero"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	got, err := newClient(ts.URL).ListZones(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0]["slug"] != "rodadero" {
		t.Fatalf("unexpected zones: %+v", got)
	}
}
