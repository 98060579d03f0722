package app

import (
	"strconv"
	"strings"

	"palmera_listings/internal/domain"
)

// Deployment serves a single market; these close the fallback chains.
const (
	DefaultCity   = "Santa Marta"
	DefaultRegion = "Magdalena"
)

// ReconcileProperty merges a raw CMS record's inconsistent attribute sources
// into one canonical record. Priority when sources disagree: structured
// custom-field bag, then legacy flat metadata, then taxonomy terms, then
// CSS-class-like status tokens, then the hard-coded default. Media is
// attached separately by the caller once the batch resolver has run.
func ReconcileProperty(rec map[string]any) domain.Property {
	tokens := classTokens(rec)
	terms := embeddedTerms(rec)

	p := domain.Property{
		ID:          rawID(rec),
		Title:       CleanText(firstAlias(rec, propertyAliases, "title")),
		Description: CleanText(firstAlias(rec, propertyAliases, "desc")),
		Zone:        resolveZone(rec, terms, tokens),
		City:        firstAlias(rec, propertyAliases, "city"),
		Region:      firstAlias(rec, propertyAliases, "region"),
		PublishedAt: parseTimestamp(rec),
		SourceID:    firstAlias(rec, propertyAliases, "source_id"),
	}
	if p.City == "" {
		p.City = DefaultCity
	}
	if p.Region == "" {
		p.Region = DefaultRegion
	}

	// price: the first source that carries the field wins, and for that
	// source "0" means unavailable, not free
	p.Price = domain.PriceUnavailable
	for _, path := range propertyAliases["price"] {
		if v := lookupAny(rec, path); v != nil {
			p.Price = parsePrice(v)
			break
		}
	}

	p.Bedrooms = resolveCount(rec, tokens, "bedrooms", "bedrooms-")
	p.Bathrooms = resolveCount(rec, tokens, "bathrooms", "bathrooms-")
	if n, ok := firstIntAlias(rec, propertyAliases, "guests"); ok && n >= 0 {
		p.Guests = n
	}

	p.ForRent, p.ForSale = resolveBusinessType(rec, terms, tokens)
	return p
}

// resolveZone walks the location fallback chain: custom field, then a
// location-like taxonomy term's readable name, then a "zone-<name>" class
// token title-cased, then the deployment default.
func resolveZone(rec map[string]any, terms []term, tokens []string) string {
	if z := firstAlias(rec, propertyAliases, "zone"); z != "" {
		return z
	}
	for _, t := range terms {
		if _, ok := locationTaxonomies[strings.ToLower(t.taxonomy)]; ok && t.name != "" {
			return t.name
		}
	}
	if v := tokenValue(tokens, "zone-"); v != "" {
		return titleWords(v)
	}
	return DefaultCity
}

func resolveCount(rec map[string]any, tokens []string, key, tokenPrefix string) int {
	if n, ok := firstIntAlias(rec, propertyAliases, key); ok && n >= 0 {
		return n
	}
	if v := tokenValue(tokens, tokenPrefix); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return 0
}

func resolveBusinessType(rec map[string]any, terms []term, tokens []string) (rent, sale bool) {
	rentSet, saleSet := false, false
	if v, ok := firstBoolAlias(rec, propertyAliases, "for_rent"); ok {
		rent, rentSet = v, true
	}
	if v, ok := firstBoolAlias(rec, propertyAliases, "for_sale"); ok {
		sale, saleSet = v, true
	}
	for _, t := range terms {
		switch strings.ToLower(t.slug) {
		case "rent", "for-rent", "alquiler", "arriendo":
			if !rentSet {
				rent, rentSet = true, true
			}
		case "sale", "for-sale", "venta":
			if !saleSet {
				sale, saleSet = true, true
			}
		}
	}
	if !rentSet && hasToken(tokens, "status-for-rent") {
		rent = true
	}
	if !saleSet && hasToken(tokens, "status-for-sale") {
		sale = true
	}
	return rent, sale
}

func hasToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

// AttachMedia builds the final ordered media list: main image first, then the
// resolved gallery, duplicates dropped by URL in first-seen order.
func AttachMedia(p *domain.Property, rec map[string]any, gallery []domain.MediaItem) {
	items := make([]domain.MediaItem, 0, len(gallery)+1)
	if u := firstAlias(rec, propertyAliases, "main_img"); u != "" {
		items = append(items, domain.MediaItem{URL: u, Alt: p.Title})
	}
	items = append(items, gallery...)
	p.Media = domain.DedupeMedia(items)
	if p.Media == nil {
		p.Media = []domain.MediaItem{}
	}
}

// ReconcileZone maps a raw taxonomy/zone record to the canonical Zone.
func ReconcileZone(rec map[string]any) domain.Zone {
	z := domain.Zone{
		ID:          rawID(rec),
		Name:        CleanText(firstAlias(rec, zoneAliases, "name")),
		Slug:        firstAlias(rec, zoneAliases, "slug"),
		CoverURL:    firstAlias(rec, zoneAliases, "cover"),
		Description: CleanText(firstAlias(rec, zoneAliases, "desc")),
	}
	if z.Slug == "" && z.Name != "" {
		z.Slug = strings.ToLower(strings.ReplaceAll(z.Name, " ", "-"))
	}
	if v, ok := firstBoolAlias(rec, map[string][]string{"featured": {"acf.featured", "meta.featured"}}, "featured"); ok {
		z.Featured = v
	}
	if n, ok := firstIntAlias(rec, map[string][]string{"order": {"acf.sort_order", "meta.order", "menu_order"}}, "order"); ok {
		z.SortOrder = n
	}
	return z
}

// ReconcilePost maps a raw blog record to the canonical BlogPost. Excerpt and
// body leave this layer decoded and stripped of source markup artifacts.
func ReconcilePost(rec map[string]any) domain.BlogPost {
	p := domain.BlogPost{
		ID:          rawID(rec),
		Slug:        firstAlias(rec, postAliases, "slug"),
		Title:       CleanText(firstAlias(rec, postAliases, "title")),
		Excerpt:     CleanText(firstAlias(rec, postAliases, "excerpt")),
		Body:        CleanText(firstAlias(rec, postAliases, "body")),
		PublishedAt: parseTimestamp(rec),
	}
	if authors, ok := lookupAny(rec, "_embedded.author").([]any); ok && len(authors) > 0 {
		if a, ok := authors[0].(map[string]any); ok {
			author := domain.BlogAuthor{
				Name:      lookupStr(a, "name"),
				AvatarURL: lookupStr(a, "avatar_urls.96"),
			}
			if author.Name != "" {
				p.Author = &author
			}
		}
	}
	return p
}
