package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	server "palmera_listings/internal/adapters/http_server"
	"palmera_listings/internal/app"
	"palmera_listings/internal/cache"
	"palmera_listings/internal/domain"
)

type stubCMS struct{ fail bool }

func (s *stubCMS) ListProperties(ctx context.Context) ([]map[string]any, error) {
	if s.fail {
		return nil, errors.New("cms down")
	}
	return []map[string]any{
		{"id": float64(1), "title": "Casa Uno", "acf": map[string]any{"price": "500", "zone": "Taganga"}},
	}, nil
}
func (s *stubCMS) ListZones(ctx context.Context) ([]map[string]any, error) { return nil, nil }
func (s *stubCMS) ListPosts(ctx context.Context) ([]map[string]any, error) { return nil, nil }
func (s *stubCMS) ResolveImages(ctx context.Context, records []map[string]any) map[int64][]domain.MediaItem {
	out := map[int64][]domain.MediaItem{}
	for _, r := range records {
		out[int64(r["id"].(float64))] = []domain.MediaItem{}
	}
	return out
}

type stubCRM struct{ createErr error }

func (s *stubCRM) SearchProperties(ctx context.Context) ([]map[string]any, error) { return nil, nil }
func (s *stubCRM) GetProperty(ctx context.Context, id int64) (map[string]any, error) {
	return nil, errors.New("not found")
}
func (s *stubCRM) CreateContact(ctx context.Context, l domain.Lead) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	return 42, nil
}
func (s *stubCRM) ListChannels(ctx context.Context) ([]domain.Channel, error) { return nil, nil }
func (s *stubCRM) FindContactTag(ctx context.Context, name string) (*domain.Label, error) {
	return nil, nil
}
func (s *stubCRM) ListLabels(ctx context.Context) ([]domain.Label, error) { return nil, nil }
func (s *stubCRM) CreateLabel(ctx context.Context, name, color string) (domain.Label, error) {
	return domain.Label{ID: 1, Name: name, Color: color}, nil
}
func (s *stubCRM) AssignLabel(ctx context.Context, contactID, labelID int64) error { return nil }

func newTestServer(cms *stubCMS, crm *stubCRM) *httptest.Server {
	store := cache.New(time.Now)
	catalog := app.NewCatalogService(cms, crm, store, 30*time.Minute, time.Hour, 48*time.Hour)
	leads := app.NewLeadService(crm)

	srv := server.New()
	srv.MountHandlers(&server.Handlers{Catalog: catalog, Leads: leads})
	return httptest.NewServer(srv.Mux())
}

func TestListProperties_OKAndETagRoundtrip(t *testing.T) {
	ts := newTestServer(&stubCMS{}, &stubCRM{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/properties")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	var items []domain.Property
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].Zone != "Taganga" {
		t.Fatalf("unexpected items: %+v", items)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/properties", nil)
	req.Header.Set("If-None-Match", etag)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("conditional get: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotModified {
		t.Fatalf("conditional status = %d, want 304", resp2.StatusCode)
	}
}

func TestListProperties_FailureDegradesToEmptyList(t *testing.T) {
	ts := newTestServer(&stubCMS{fail: true}, &stubCRM{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/properties")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read path must not hard-fail, status = %d", resp.StatusCode)
	}
	var items []domain.Property
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("want empty list, got %+v", items)
	}
}

func TestSubmitLead(t *testing.T) {
	ts := newTestServer(&stubCMS{}, &stubCRM{})
	defer ts.Close()

	body := `{"name":"Jane Doe","email":"jane@x.co","phone":"3000000000","label":"Cliente"}`
	resp, err := http.Post(ts.URL+"/v1/leads", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var out map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["contact_id"] != 42 {
		t.Fatalf("contact_id = %d", out["contact_id"])
	}
}

func TestSubmitLead_Validation(t *testing.T) {
	ts := newTestServer(&stubCMS{}, &stubCRM{})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/leads", "application/json", strings.NewReader(`{"name":"Jane"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSubmitLead_CRMWriteFailureSurfaced(t *testing.T) {
	ts := newTestServer(&stubCMS{}, &stubCRM{createErr: errors.New("crm down")})
	defer ts.Close()

	body := `{"name":"Jane Doe","email":"jane@x.co"}`
	resp, err := http.Post(ts.URL+"/v1/leads", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type = %q", ct)
	}
}
