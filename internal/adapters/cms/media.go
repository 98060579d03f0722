package cms

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"palmera_listings/internal/domain"
)

// ResolveImages enriches records with their media lists. The media endpoint
// only answers "all media belonging to parent X", so ids are fanned out in
// fixed-size chunks with a pacing delay between chunks to bound outbound rate.
// Records the primary pass leaves empty get a second chance from the gallery
// embedded in their own custom-field bag.
//
// Always best-effort: a single record's fetch failing degrades that record to
// whatever was found so far, never aborts the batch. Every input id is present
// in the result, mapped to a possibly empty, never nil list.
func (c *Client) ResolveImages(ctx context.Context, records []map[string]any) map[int64][]domain.MediaItem {
	byID := make(map[int64]map[string]any, len(records))
	ids := make([]int64, 0, len(records))
	out := make(map[int64][]domain.MediaItem, len(records))
	for _, rec := range records {
		id := recordID(rec)
		if id == 0 {
			continue
		}
		if _, dup := byID[id]; dup {
			continue
		}
		byID[id] = rec
		ids = append(ids, id)
		out[id] = []domain.MediaItem{}
	}

	var mu sync.Mutex
	for start := 0; start < len(ids); start += c.batchSize {
		end := start + c.batchSize
		if end > len(ids) {
			end = len(ids)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, id := range ids[start:end] {
			id := id
			g.Go(func() error {
				raw, err := c.mediaForParent(gctx, id)
				if err != nil {
					log.Warn().Int64("id", id).Err(err).Msg("media fetch failed")
					return nil // best-effort, keep the batch going
				}
				items := domain.DedupeMedia(mapMediaList(raw))
				mu.Lock()
				out[id] = items
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if end < len(ids) && !sleepCtx(ctx, c.batchPause) {
			break
		}
	}

	// secondary pass: records still without media may carry a gallery inside
	// their custom-field bag, no extra request needed
	for id, items := range out {
		if len(items) > 0 {
			continue
		}
		if emb := embeddedGallery(byID[id]); len(emb) > 0 {
			out[id] = domain.DedupeMedia(emb)
		}
	}
	return out
}

// mapMediaList converts raw media library entries into MediaItems.
func mapMediaList(raw []map[string]any) []domain.MediaItem {
	out := make([]domain.MediaItem, 0, len(raw))
	for _, m := range raw {
		url := firstString(m, "source_url", "url", "guid.rendered")
		if url == "" {
			continue
		}
		out = append(out, domain.MediaItem{
			ID:  recordID(m),
			URL: url,
			Alt: firstString(m, "alt_text", "alt", "title.rendered"),
		})
	}
	return out
}

// embeddedGallery parses media out of a record's custom-field bag. Two shapes
// show up in the wild: a list of objects with url/id, and a comma-separated
// string of URLs under a legacy key.
func embeddedGallery(rec map[string]any) []domain.MediaItem {
	if rec == nil {
		return nil
	}
	for _, path := range []string{"acf.gallery", "acf.images", "meta.gallery"} {
		raw, ok := lookup(rec, path).([]any)
		if !ok {
			continue
		}
		items := make([]domain.MediaItem, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if t != "" {
					items = append(items, domain.MediaItem{URL: t})
				}
			case map[string]any:
				if u := firstString(t, "url", "source_url", "sizes.large"); u != "" {
					items = append(items, domain.MediaItem{ID: recordID(t), URL: u, Alt: firstString(t, "alt", "title")})
				}
			}
		}
		if len(items) > 0 {
			return items
		}
	}
	if s := firstString(rec, "meta.gallery_urls", "acf.gallery_urls"); s != "" {
		var items []domain.MediaItem
		for _, u := range strings.Split(s, ",") {
			if u = strings.TrimSpace(u); u != "" {
				items = append(items, domain.MediaItem{URL: u})
			}
		}
		return items
	}
	return nil
}

// ---- raw-map helpers ----

// lookup walks dot paths through nested maps; nil when any hop is missing.
func lookup(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func firstString(m map[string]any, paths ...string) string {
	for _, p := range paths {
		if s, ok := lookup(m, p).(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// recordID pulls the numeric id out of a raw record (float64 after JSON
// decode, occasionally a string).
func recordID(m map[string]any) int64 {
	for _, k := range []string{"id", "ID"} {
		switch v := m[k].(type) {
		case float64:
			return int64(v)
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
