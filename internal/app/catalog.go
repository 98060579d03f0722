package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"palmera_listings/internal/cache"
	"palmera_listings/internal/domain"
)

// Cache keys for the materialized aggregations.
const (
	KeyCatalog = "catalog"
	KeyZones   = "zones"
	KeyBlog    = "blog"
)

// CatalogService materializes the read-side aggregations: fetch raw
// collections from the CMS, enrich with media, reconcile attributes, cache
// with per-resource TTLs. Read failures degrade to stale or empty data,
// never to a hard error for the page.
type CatalogService struct {
	cms   domain.CMSClient
	crm   domain.CRMClient // single-property fallback reads; may be nil
	store *cache.Store
}

func NewCatalogService(cms domain.CMSClient, crm domain.CRMClient, store *cache.Store, catalogTTL, zonesTTL, blogTTL time.Duration) *CatalogService {
	store.SetTTL(KeyCatalog, catalogTTL)
	store.SetTTL(KeyZones, zonesTTL)
	store.SetTTL(KeyBlog, blogTTL)
	return &CatalogService{cms: cms, crm: crm, store: store}
}

// Properties returns the reconciled catalogue. The error is non-nil only on
// a total fetch failure with nothing cached; the slice is never nil.
func (s *CatalogService) Properties(ctx context.Context) ([]domain.Property, cache.Status, error) {
	out, st, err := cache.GetOrProduce(ctx, s.store, KeyCatalog, s.buildCatalog)
	if out == nil {
		out = []domain.Property{}
	}
	return out, st, err
}

func (s *CatalogService) buildCatalog(ctx context.Context) ([]domain.Property, error) {
	records, err := s.cms.ListProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	images := s.cms.ResolveImages(ctx, records)

	out := make([]domain.Property, 0, len(records))
	for _, rec := range records {
		p := ReconcileProperty(rec)
		if p.ID == 0 {
			log.Warn().Interface("record", rec["id"]).Msg("property record without usable id, skipped")
			continue
		}
		AttachMedia(&p, rec, images[p.ID])
		out = append(out, p)
	}
	log.Info().Int("count", len(out)).Msg("catalog rebuilt")
	return out, nil
}

// Property returns one reconciled record, served from the cached catalogue
// when possible and falling back to a direct CRM read on miss.
func (s *CatalogService) Property(ctx context.Context, id int64) (domain.Property, error) {
	list, _, _ := s.Properties(ctx)
	for _, p := range list {
		if p.ID == id {
			return p, nil
		}
	}
	if s.crm == nil {
		return domain.Property{}, fmt.Errorf("property %d not in catalog", id)
	}
	rec, err := s.crm.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, fmt.Errorf("property %d: %w", id, err)
	}
	p := reconcileCRMProperty(rec)
	if p.ID == 0 {
		p.ID = id
	}
	return p, nil
}

// Zones returns the reconciled zone list. Slug uniqueness holds within a
// snapshot: later records with an already-seen slug are dropped.
func (s *CatalogService) Zones(ctx context.Context) ([]domain.Zone, cache.Status, error) {
	out, st, err := cache.GetOrProduce(ctx, s.store, KeyZones, func(ctx context.Context) ([]domain.Zone, error) {
		records, err := s.cms.ListZones(ctx)
		if err != nil {
			return nil, fmt.Errorf("list zones: %w", err)
		}
		seen := make(map[string]struct{}, len(records))
		zones := make([]domain.Zone, 0, len(records))
		for _, rec := range records {
			z := ReconcileZone(rec)
			if z.ID == 0 || z.Slug == "" {
				continue
			}
			if _, dup := seen[z.Slug]; dup {
				log.Warn().Str("slug", z.Slug).Msg("duplicate zone slug dropped")
				continue
			}
			seen[z.Slug] = struct{}{}
			zones = append(zones, z)
		}
		return zones, nil
	})
	if out == nil {
		out = []domain.Zone{}
	}
	return out, st, err
}

// Blog returns the sanitized blog feed, slug-unique within a snapshot.
func (s *CatalogService) Blog(ctx context.Context) ([]domain.BlogPost, cache.Status, error) {
	out, st, err := cache.GetOrProduce(ctx, s.store, KeyBlog, func(ctx context.Context) ([]domain.BlogPost, error) {
		records, err := s.cms.ListPosts(ctx)
		if err != nil {
			return nil, fmt.Errorf("list posts: %w", err)
		}
		seen := make(map[string]struct{}, len(records))
		posts := make([]domain.BlogPost, 0, len(records))
		for _, rec := range records {
			p := ReconcilePost(rec)
			if p.ID == 0 || p.Slug == "" {
				continue
			}
			if _, dup := seen[p.Slug]; dup {
				log.Warn().Str("slug", p.Slug).Msg("duplicate post slug dropped")
				continue
			}
			seen[p.Slug] = struct{}{}
			posts = append(posts, p)
		}
		return posts, nil
	})
	if out == nil {
		out = []domain.BlogPost{}
	}
	return out, st, err
}

// reconcileCRMProperty maps the CRM's flat record shape onto the canonical
// type. Field names differ from the CMS but the same defaults apply.
func reconcileCRMProperty(rec map[string]any) domain.Property {
	p := domain.Property{
		ID:          rawID(rec),
		Title:       CleanText(lookupStr(rec, "title")),
		Description: CleanText(firstAlias(rec, map[string][]string{"d": {"observations", "description", "comment"}}, "d")),
		Zone:        firstAlias(rec, map[string][]string{"z": {"zone_label", "zone", "neighborhood"}}, "z"),
		City:        lookupStr(rec, "city_label"),
		Region:      lookupStr(rec, "region_label"),
		SourceID:    lookupStr(rec, "id_property"),
		PublishedAt: parseTimestamp(rec),
	}
	if p.Zone == "" {
		p.Zone = DefaultCity
	}
	if p.City == "" {
		p.City = DefaultCity
	}
	if p.Region == "" {
		p.Region = DefaultRegion
	}

	p.Price = domain.PriceUnavailable
	for _, k := range []string{"rent_price", "sale_price", "price"} {
		if v, ok := rec[k]; ok {
			if f := parsePrice(v); f != domain.PriceUnavailable {
				p.Price = f
				if k != "sale_price" {
					p.ForRent = true
				} else {
					p.ForSale = true
				}
				break
			}
		}
	}

	if n, ok := firstIntAlias(rec, map[string][]string{"b": {"bedrooms", "rooms"}}, "b"); ok && n >= 0 {
		p.Bedrooms = n
	}
	if n, ok := firstIntAlias(rec, map[string][]string{"b": {"bathrooms"}}, "b"); ok && n >= 0 {
		p.Bathrooms = n
	}
	if n, ok := firstIntAlias(rec, map[string][]string{"b": {"guests", "capacity"}}, "b"); ok && n >= 0 {
		p.Guests = n
	}

	var items []domain.MediaItem
	if galleries, ok := rec["galleries"].([]any); ok {
		for _, g := range galleries {
			gm, ok := g.(map[string]any)
			if !ok {
				continue
			}
			for _, size := range []string{"url_original", "url_big", "url"} {
				if u := lookupStr(gm, size); u != "" {
					items = append(items, domain.MediaItem{ID: rawID(gm), URL: u})
					break
				}
			}
		}
	}
	p.Media = domain.DedupeMedia(items)
	if p.Media == nil {
		p.Media = []domain.MediaItem{}
	}
	return p
}
