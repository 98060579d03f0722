package crm

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"palmera_listings/internal/domain"
)

func mapLabel(r map[string]any) domain.Label {
	l := domain.Label{
		ID:    asInt64(r["id_tag"]),
		Name:  asString(r["name"]),
		Color: asString(r["color"]),
	}
	if l.ID == 0 {
		l.ID = asInt64(r["id"])
	}
	return l
}

// FindContactTag scans tags surfaced on existing contacts for a
// case-insensitive name match. The CRM exposes two tag namespaces; this is
// the contact-scoped one.
func (c *Client) FindContactTag(ctx context.Context, name string) (*domain.Label, error) {
	var payload map[string]any
	_, err := c.postJSON(ctx, "/client/search", map[string]any{"max_rows": 100}, &payload)
	if err != nil {
		return nil, err
	}
	if !statusOK(payload) {
		return nil, fmt.Errorf("%w: %v", ErrStatus, payload["message"])
	}
	for _, contact := range numericRecords(payload) {
		tags, ok := contact["tags"].([]any)
		if !ok {
			continue
		}
		for _, t := range tags {
			rec, ok := t.(map[string]any)
			if !ok {
				continue
			}
			l := mapLabel(rec)
			if l.ID != 0 && strings.EqualFold(l.Name, name) {
				return &l, nil
			}
		}
	}
	return nil, nil
}

// ListLabels reads the named-label registry, the second tag namespace.
func (c *Client) ListLabels(ctx context.Context) ([]domain.Label, error) {
	var payload map[string]any
	if _, err := c.getJSON(ctx, "/tag/list", &payload); err != nil {
		return nil, err
	}
	if !statusOK(payload) {
		return nil, fmt.Errorf("%w: %v", ErrStatus, payload["message"])
	}
	recs := numericRecords(payload)
	out := make([]domain.Label, 0, len(recs))
	for _, r := range recs {
		if l := mapLabel(r); l.ID != 0 {
			out = append(out, l)
		}
	}
	return out, nil
}

func (c *Client) CreateLabel(ctx context.Context, name, color string) (domain.Label, error) {
	var payload map[string]any
	_, err := c.postJSON(ctx, "/tag/add", map[string]any{"name": name, "color": color}, &payload)
	if err != nil {
		return domain.Label{}, err
	}
	if !statusOK(payload) {
		return domain.Label{}, fmt.Errorf("%w: %v", ErrStatus, payload["message"])
	}
	id := asInt64(payload["id_tag"])
	if id == 0 {
		id = asInt64(payload["id"])
	}
	if id == 0 {
		return domain.Label{}, fmt.Errorf("%w: tag id missing in response", ErrNoResult)
	}
	return domain.Label{ID: id, Name: name, Color: color}, nil
}

// assignStrategy is one guess at the CRM's tag-assignment encoding. The
// accepted parameter name is not reliably documented, so strategies are tried
// in order until one sticks.
type assignStrategy struct {
	name string
	call func(ctx context.Context, c *Client, contactID, labelID int64) error
}

var assignStrategies = []assignStrategy{
	{
		name: "form id_tags",
		call: func(ctx context.Context, c *Client, contactID, labelID int64) error {
			vals := url.Values{}
			vals.Set("id_tags", strconv.FormatInt(labelID, 10))
			var payload map[string]any
			_, err := c.postForm(ctx, fmt.Sprintf("/client/update/%d", contactID), vals, &payload)
			if err != nil {
				return err
			}
			if !statusOK(payload) {
				return fmt.Errorf("%w: %v", ErrStatus, payload["message"])
			}
			return nil
		},
	},
	{
		// historically-observed variants sent together; the CRM ignores
		// parameters it does not recognize
		name: "json variants",
		call: func(ctx context.Context, c *Client, contactID, labelID int64) error {
			var payload map[string]any
			_, err := c.postJSON(ctx, fmt.Sprintf("/client/update/%d", contactID), map[string]any{
				"id_tags": []int64{labelID},
				"tags":    []int64{labelID},
				"tag_ids": []int64{labelID},
			}, &payload)
			if err != nil {
				return err
			}
			if !statusOK(payload) {
				return fmt.Errorf("%w: %v", ErrStatus, payload["message"])
			}
			return nil
		},
	},
}

// AssignLabel attaches a label to a contact, walking the strategy list until
// one succeeds. Exhaustion returns the last failure.
func (c *Client) AssignLabel(ctx context.Context, contactID, labelID int64) error {
	var last error
	for _, s := range assignStrategies {
		if err := s.call(ctx, c, contactID, labelID); err != nil {
			log.Debug().Str("strategy", s.name).Int64("contact", contactID).Err(err).
				Msg("tag assignment attempt failed")
			last = err
			continue
		}
		return nil
	}
	return last
}
