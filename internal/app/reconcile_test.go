package app_test

import (
	"testing"

	"palmera_listings/internal/app"
	"palmera_listings/internal/domain"
)

func TestReconcileProperty_PriceZeroMeansUnavailable(t *testing.T) {
	cases := []struct {
		name string
		rec  map[string]any
		want float64
	}{
		{"string zero", map[string]any{"id": 1.0, "acf": map[string]any{"price": "0"}}, domain.PriceUnavailable},
		{"absent", map[string]any{"id": 1.0}, domain.PriceUnavailable},
		{"numeric zero", map[string]any{"id": 1.0, "acf": map[string]any{"price": 0.0}}, domain.PriceUnavailable},
		{"formatted", map[string]any{"id": 1.0, "acf": map[string]any{"price": "$1,200,000"}}, 1200000},
		{"plain number", map[string]any{"id": 1.0, "meta": map[string]any{"price": 850.0}}, 850},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := app.ReconcileProperty(tc.rec).Price; got != tc.want {
				t.Fatalf("price = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReconcileProperty_PriceCustomFieldOutranksMeta(t *testing.T) {
	rec := map[string]any{
		"id":   1.0,
		"acf":  map[string]any{"price": "0"}, // highest-priority source says unavailable
		"meta": map[string]any{"price": "900"},
	}
	if got := app.ReconcileProperty(rec).Price; got != domain.PriceUnavailable {
		t.Fatalf("custom-field '0' must win over meta, got %v", got)
	}
}

func TestReconcileProperty_ZonePriorityChain(t *testing.T) {
	taxonomy := []any{
		map[string]any{"taxonomy": "zone", "name": "Taganga", "slug": "taganga"},
	}
	classList := []any{"type-property", "zone-el-rodadero", "status-for-rent"}

	cases := []struct {
		name string
		rec  map[string]any
		want string
	}{
		{
			"custom field wins over all",
			map[string]any{
				"id":         1.0,
				"acf":        map[string]any{"zone": "Bello Horizonte"},
				"terms":      taxonomy,
				"class_list": classList,
			},
			"Bello Horizonte",
		},
		{
			"legacy meta beats taxonomy",
			map[string]any{
				"id":    1.0,
				"meta":  map[string]any{"zone": "Pozos Colorados"},
				"terms": taxonomy,
			},
			"Pozos Colorados",
		},
		{
			"taxonomy beats class token",
			map[string]any{"id": 1.0, "terms": taxonomy, "class_list": classList},
			"Taganga",
		},
		{
			"class token title-cased",
			map[string]any{"id": 1.0, "class_list": classList},
			"El Rodadero",
		},
		{
			"default city",
			map[string]any{"id": 1.0},
			app.DefaultCity,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := app.ReconcileProperty(tc.rec).Zone; got != tc.want {
				t.Fatalf("zone = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestReconcileProperty_CountsAndFlags(t *testing.T) {
	rec := map[string]any{
		"id":         3.0,
		"acf":        map[string]any{"bathrooms": "2"},
		"class_list": []any{"bedrooms-4", "status-for-rent"},
	}
	p := app.ReconcileProperty(rec)
	if p.Bedrooms != 4 {
		t.Fatalf("bedrooms from class token = %d, want 4", p.Bedrooms)
	}
	if p.Bathrooms != 2 {
		t.Fatalf("bathrooms = %d, want 2", p.Bathrooms)
	}
	if p.Guests != 0 {
		t.Fatalf("absent guests must default to 0, got %d", p.Guests)
	}
	if !p.ForRent || p.ForSale {
		t.Fatalf("flags = rent:%v sale:%v, want rent only", p.ForRent, p.ForSale)
	}
}

func TestReconcileProperty_BusinessTypeFromTaxonomy(t *testing.T) {
	rec := map[string]any{
		"id": 4.0,
		"terms": []any{
			map[string]any{"taxonomy": "operation", "name": "Venta", "slug": "venta"},
		},
	}
	p := app.ReconcileProperty(rec)
	if p.ForSale != true || p.ForRent != false {
		t.Fatalf("flags = rent:%v sale:%v, want sale only", p.ForRent, p.ForSale)
	}
}

func TestAttachMedia_DedupesMainImageAgainstGallery(t *testing.T) {
	rec := map[string]any{
		"id":  5.0,
		"acf": map[string]any{"main_image": "https://img.test/main.jpg"},
	}
	p := app.ReconcileProperty(rec)
	app.AttachMedia(&p, rec, []domain.MediaItem{
		{ID: 51, URL: "https://img.test/main.jpg"}, // duplicate of main
		{ID: 52, URL: "https://img.test/side.jpg"},
	})
	if len(p.Media) != 2 {
		t.Fatalf("want 2 deduped items, got %+v", p.Media)
	}
	if p.Media[0].URL != "https://img.test/main.jpg" || p.Media[1].URL != "https://img.test/side.jpg" {
		t.Fatalf("order not first-seen: %+v", p.Media)
	}
}

func TestAttachMedia_EmptyNeverNil(t *testing.T) {
	rec := map[string]any{"id": 6.0}
	p := app.ReconcileProperty(rec)
	app.AttachMedia(&p, rec, nil)
	if p.Media == nil || len(p.Media) != 0 {
		t.Fatalf("want empty non-nil media, got %#v", p.Media)
	}
}

func TestReconcileZone_SlugFallback(t *testing.T) {
	z := app.ReconcileZone(map[string]any{"id": 9.0, "name": "Bello Horizonte"})
	if z.Slug != "bello-horizonte" {
		t.Fatalf("slug = %q", z.Slug)
	}
}
