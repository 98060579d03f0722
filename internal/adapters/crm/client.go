package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"palmera_listings/internal/adapters/observability"
	"palmera_listings/internal/domain"
)

// The business serves a single market, so contact location is fixed rather
// than derived from input: Santa Marta, Magdalena, Colombia.
const (
	CountryID = 48
	RegionID  = 33
	CityID    = 498
)

var (
	ErrStatus   = errors.New("crm: error status in response")
	ErrNoResult = errors.New("crm: empty result")
)

// Client talks to the booking CRM. Every request carries the company id and
// static API token; GETs put them on the query string, POSTs in the body.
type Client struct {
	base    string
	hc      *http.Client
	rl      *rate.Limiter
	company string
	token   string
	userID  int64
}

func New(base, company, token string, userID int64, timeout time.Duration) (*Client, error) {
	if company == "" || token == "" {
		return nil, fmt.Errorf("crm: company id and token are required")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		hc:      &http.Client{Timeout: timeout},
		rl:      rate.NewLimiter(rate.Limit(5), 5),
		company: company,
		token:   token,
		userID:  userID,
	}, nil
}

// ---- transport ----

func (c *Client) getJSON(ctx context.Context, path string, out any) (int, error) {
	u := c.base + path
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	u += sep + "id_company=" + url.QueryEscape(c.company) + "&token=" + url.QueryEscape(c.token)
	return c.roundTrip(ctx, http.MethodGet, u, "", nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body map[string]any, out any) (int, error) {
	payload := map[string]any{"id_company": c.company, "token": c.token}
	for k, v := range body {
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	return c.roundTrip(ctx, http.MethodPost, c.base+path, "application/json", strings.NewReader(string(b)), out)
}

func (c *Client) postForm(ctx context.Context, path string, vals url.Values, out any) (int, error) {
	vals.Set("id_company", c.company)
	vals.Set("token", c.token)
	return c.roundTrip(ctx, http.MethodPost, c.base+path, "application/x-www-form-urlencoded", strings.NewReader(vals.Encode()), out)
}

func (c *Client) roundTrip(ctx context.Context, method, u, contentType string, body io.Reader, out any) (int, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "palmera-listings/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("crm", pathLabel(u), 0, time.Since(start))
		return 0, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("crm", pathLabel(u), resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return resp.StatusCode, fmt.Errorf("crm: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("crm: decode: %w", err)
	}
	return resp.StatusCode, nil
}

func pathLabel(u string) string {
	if i := strings.Index(u, "?"); i >= 0 {
		u = u[:i]
	}
	parts := strings.Split(u, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts[3:] {
		if p == "" {
			continue
		}
		if _, err := strconv.Atoi(p); err == nil {
			p = ":id"
		}
		out = append(out, p)
	}
	return "/" + strings.Join(out, "/")
}

// ---- response plumbing ----

// numericRecords enumerates the records of a numeric-string-keyed response
// ({"status":"success","total":2,"0":{...},"1":{...}}), in key order. The
// sibling status/total keys are metadata, not records.
func numericRecords(payload map[string]any) []map[string]any {
	type keyed struct {
		n   int
		rec map[string]any
	}
	var ks []keyed
	for k, v := range payload {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		if rec, ok := v.(map[string]any); ok {
			ks = append(ks, keyed{n, rec})
		}
	}
	sort.Slice(ks, func(i, j int) bool { return ks[i].n < ks[j].n })
	out := make([]map[string]any, len(ks))
	for i, k := range ks {
		out[i] = k.rec
	}
	return out
}

func statusOK(payload map[string]any) bool {
	s, _ := payload["status"].(string)
	return s == "success" || s == "ok" || s == ""
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// ---- properties ----

func (c *Client) SearchProperties(ctx context.Context) ([]map[string]any, error) {
	var payload map[string]any
	_, err := c.postJSON(ctx, "/property/search", map[string]any{
		"id_user":  c.userID,
		"status":   "active",
		"max_rows": 200,
	}, &payload)
	if err != nil {
		return nil, err
	}
	if !statusOK(payload) {
		return nil, fmt.Errorf("%w: %v", ErrStatus, payload["message"])
	}
	return numericRecords(payload), nil
}

func (c *Client) GetProperty(ctx context.Context, id int64) (map[string]any, error) {
	var payload map[string]any
	_, err := c.getJSON(ctx, fmt.Sprintf("/property/get/%d", id), &payload)
	if err != nil {
		return nil, err
	}
	if !statusOK(payload) {
		return nil, fmt.Errorf("%w: %v", ErrStatus, payload["message"])
	}
	return payload, nil
}

// ---- contacts & channels ----

// CreateContact registers a lead as a new CRM contact. Every submission is a
// fresh contact; dedup against existing contacts is the CRM's concern.
func (c *Client) CreateContact(ctx context.Context, l domain.Lead) (int64, error) {
	var payload map[string]any
	_, err := c.postJSON(ctx, "/client/add", map[string]any{
		"first_name":     l.FirstName,
		"last_name":      l.LastName,
		"email":          l.Email,
		"phone":          l.Phone,
		"comment":        l.Comment,
		"id_channel":     l.ChannelID,
		"id_user":        c.userID,
		"id_country":     CountryID,
		"id_region":      RegionID,
		"id_city":        CityID,
		"send_email_new": 0,
	}, &payload)
	if err != nil {
		return 0, err
	}
	if !statusOK(payload) {
		return 0, fmt.Errorf("%w: %v", ErrStatus, payload["message"])
	}
	id := asInt64(payload["id_client"])
	if id == 0 {
		id = asInt64(payload["id"])
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: contact id missing in response", ErrNoResult)
	}
	return id, nil
}

func (c *Client) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	var payload map[string]any
	if _, err := c.getJSON(ctx, "/channel/list", &payload); err != nil {
		return nil, err
	}
	if !statusOK(payload) {
		return nil, fmt.Errorf("%w: %v", ErrStatus, payload["message"])
	}
	recs := numericRecords(payload)
	out := make([]domain.Channel, 0, len(recs))
	for _, r := range recs {
		ch := domain.Channel{ID: asInt64(r["id_channel"]), Name: asString(r["name"])}
		if ch.ID == 0 {
			ch.ID = asInt64(r["id"])
		}
		if ch.ID != 0 {
			out = append(out, ch)
		}
	}
	return out, nil
}
