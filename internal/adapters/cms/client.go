package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"palmera_listings/internal/adapters/observability"
)

// Client reads the content platform. The CMS exposes the same logical
// collection under different physical names depending on how its content
// types were configured at install time, so every read probes an ordered
// candidate list and keeps the first success.
type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter

	batchSize  int
	batchPause time.Duration
}

func New(base string, rps int, batchSize int, batchPause, timeout time.Duration) *Client {
	if rps <= 0 {
		rps = 5
	}
	if batchSize <= 0 {
		batchSize = 5
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		base:       strings.TrimRight(base, "/"),
		hc:         &http.Client{Timeout: timeout},
		rl:         rate.NewLimiter(rate.Limit(rps), rps),
		batchSize:  batchSize,
		batchPause: batchPause,
	}
}

// Endpoint is one candidate physical location for a logical resource.
type Endpoint struct {
	Method string
	Path   string
}

// Attempt records one failed candidate for diagnostics.
type Attempt struct {
	Method string
	Path   string
	Status int // 0 when the request never completed
	Err    error
}

// ProbeError aggregates every failed candidate for a logical resource.
type ProbeError struct {
	Resource string
	Attempts []Attempt
}

func (e *ProbeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cms: no candidate endpoint for %q:", e.Resource)
	for _, a := range e.Attempts {
		if a.Status != 0 {
			fmt.Fprintf(&b, " %s %s -> %d;", a.Method, a.Path, a.Status)
		} else {
			fmt.Fprintf(&b, " %s %s -> %v;", a.Method, a.Path, a.Err)
		}
	}
	return strings.TrimSuffix(b.String(), ";")
}

// probe tries candidates in order and decodes the first success into out.
// A failed candidate (non-2xx, network error, malformed body) moves on to the
// next; exhaustion returns a ProbeError naming every attempt. No retries
// within a single candidate.
func (c *Client) probe(ctx context.Context, resource string, candidates []Endpoint, out any) error {
	pe := &ProbeError{Resource: resource}
	for _, cand := range candidates {
		status, err := c.do(ctx, cand.Method, c.base+cand.Path, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		pe.Attempts = append(pe.Attempts, Attempt{Method: cand.Method, Path: cand.Path, Status: status, Err: err})
	}
	return pe
}

// do performs one rate-limited request and decodes JSON into out.
// Returns the HTTP status (0 if the request never completed) alongside any error.
func (c *Client) do(ctx context.Context, method, url string, out any) (int, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "palmera-listings/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("cms", endpointLabel(url), 0, time.Since(start))
		return 0, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("cms", endpointLabel(url), resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return resp.StatusCode, fmt.Errorf("cms: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("cms: decode: %w", err)
	}
	return resp.StatusCode, nil
}

// endpointLabel trims ids and query strings so metrics stay low-cardinality.
func endpointLabel(url string) string {
	if i := strings.Index(url, "?"); i >= 0 {
		url = url[:i]
	}
	parts := strings.Split(url, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts[3:] { // skip scheme + host
		if p == "" {
			continue
		}
		if isDigits(p) {
			p = ":id"
		}
		out = append(out, p)
	}
	return "/" + strings.Join(out, "/")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ---- logical resources ----

func (c *Client) ListProperties(ctx context.Context) ([]map[string]any, error) {
	candidates := []Endpoint{
		{http.MethodGet, "/wp/v2/property?per_page=100&status=publish"}, // preferred
		{http.MethodGet, "/wp/v2/properties?per_page=100"},
		{http.MethodGet, "/wp/v2/listing?per_page=100"}, // legacy installs
	}
	var out []map[string]any
	return out, c.probe(ctx, "property collection", candidates, &out)
}

func (c *Client) GetProperty(ctx context.Context, id int64) (map[string]any, error) {
	candidates := []Endpoint{
		{http.MethodGet, fmt.Sprintf("/wp/v2/property/%d", id)},
		{http.MethodGet, fmt.Sprintf("/wp/v2/properties/%d", id)},
		{http.MethodGet, fmt.Sprintf("/wp/v2/listing/%d", id)},
	}
	var out map[string]any
	return out, c.probe(ctx, "single property", candidates, &out)
}

func (c *Client) ListZones(ctx context.Context) ([]map[string]any, error) {
	candidates := []Endpoint{
		{http.MethodGet, "/wp/v2/zone?per_page=100"},
		{http.MethodGet, "/wp/v2/zones?per_page=100"},
		{http.MethodGet, "/wp/v2/location?per_page=100"},
	}
	var out []map[string]any
	return out, c.probe(ctx, "zone list", candidates, &out)
}

func (c *Client) ListPosts(ctx context.Context) ([]map[string]any, error) {
	candidates := []Endpoint{
		{http.MethodGet, "/wp/v2/posts?per_page=100&_embed=1"},
		{http.MethodGet, "/wp/v2/posts?per_page=100"},
	}
	var out []map[string]any
	return out, c.probe(ctx, "blog feed", candidates, &out)
}

// mediaForParent lists the media library entries attached to one record.
func (c *Client) mediaForParent(ctx context.Context, parent int64) ([]map[string]any, error) {
	candidates := []Endpoint{
		{http.MethodGet, fmt.Sprintf("/wp/v2/media?parent=%d&per_page=100", parent)},
	}
	var out []map[string]any
	return out, c.probe(ctx, "media by parent", candidates, &out)
}
