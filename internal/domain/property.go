package domain

import "time"

// PriceUnavailable is the canonical sentinel for "no meaningful price".
// Upstream sources encode this as the string "0" or omit the field entirely;
// neither means the property costs nothing.
const PriceUnavailable float64 = 0

type MediaItem struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Property is the canonical reconciled record. Every field is populated by the
// reconciler from whichever upstream source wins the priority order; raw
// source identifiers are kept for traceability.
type Property struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Zone        string      `json:"zone,omitempty"`
	City        string      `json:"city,omitempty"`
	Region      string      `json:"region,omitempty"`
	Price       float64     `json:"price"` // PriceUnavailable when unknown
	Bedrooms    int         `json:"bedrooms"`
	Bathrooms   int         `json:"bathrooms"`
	Guests      int         `json:"guests"`
	Media       []MediaItem `json:"media"` // no duplicate URLs, first-seen order
	PublishedAt *time.Time  `json:"published_at,omitempty"`
	ForRent     bool        `json:"for_rent"`
	ForSale     bool        `json:"for_sale"`
	SourceID    string      `json:"source_id,omitempty"` // upstream record id, verbatim
}

// DedupeMedia drops items whose URL already appeared earlier in the list,
// preserving first-seen order. Items with an empty URL are dropped outright.
func DedupeMedia(items []MediaItem) []MediaItem {
	if len(items) == 0 {
		return items
	}
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, it := range items {
		if it.URL == "" {
			continue
		}
		if _, dup := seen[it.URL]; dup {
			continue
		}
		seen[it.URL] = struct{}{}
		out = append(out, it)
	}
	return out
}

type Zone struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	CoverURL    string `json:"cover_url,omitempty"`
	Description string `json:"description,omitempty"`
	Featured    bool   `json:"featured,omitempty"`
	SortOrder   int    `json:"sort_order,omitempty"`
}

type BlogAuthor struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type BlogPost struct {
	ID          int64       `json:"id"`
	Slug        string      `json:"slug"`
	Title       string      `json:"title"`
	Excerpt     string      `json:"excerpt"`
	Body        string      `json:"body"`
	PublishedAt *time.Time  `json:"published_at,omitempty"`
	Author      *BlogAuthor `json:"author,omitempty"`
	Media       []MediaItem `json:"media,omitempty"`
}
