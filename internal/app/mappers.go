package app

import (
	"strconv"
	"strings"
	"time"

	"palmera_listings/internal/domain"
)

/********** alias registries (single source of truth) **********/

// Path order encodes source priority: the structured custom-field bag (acf.*)
// always outranks the legacy flat metadata bag (meta.*).
var propertyAliases = map[string][]string{
	"title":     {"title.rendered", "title", "acf.title", "meta.title"},
	"desc":      {"content.rendered", "acf.description", "meta.description", "excerpt.rendered"},
	"zone":      {"acf.zone", "acf.zona", "meta.zone", "meta.zona"},
	"city":      {"acf.city", "acf.ciudad", "meta.city"},
	"region":    {"acf.region", "acf.departamento", "meta.region"},
	"price":     {"acf.price", "acf.precio", "acf.price_per_night", "meta.price", "meta._price"},
	"bedrooms":  {"acf.bedrooms", "acf.habitaciones", "acf.rooms", "meta.bedrooms"},
	"bathrooms": {"acf.bathrooms", "acf.banos", "meta.bathrooms"},
	"guests":    {"acf.guests", "acf.huespedes", "acf.capacity", "meta.guests"},
	"main_img":  {"acf.main_image.url", "acf.main_image", "acf.featured_image", "meta.main_image"},
	"source_id": {"acf.crm_id", "acf.external_id", "meta.crm_id", "meta.external_id"},
	"for_rent":  {"acf.for_rent", "acf.rent", "meta.for_rent"},
	"for_sale":  {"acf.for_sale", "acf.sale", "meta.for_sale"},
}

var zoneAliases = map[string][]string{
	"name":  {"name", "title.rendered", "title"},
	"slug":  {"slug"},
	"desc":  {"description", "acf.description"},
	"cover": {"acf.cover.url", "acf.cover", "acf.image", "meta.cover"},
}

var postAliases = map[string][]string{
	"title":   {"title.rendered", "title"},
	"slug":    {"slug"},
	"excerpt": {"excerpt.rendered", "excerpt"},
	"body":    {"content.rendered", "content"},
}

// taxonomies that carry location information on at least one known install
var locationTaxonomies = map[string]struct{}{
	"zone":      {},
	"zona":      {},
	"location":  {},
	"ubicacion": {},
	"area":      {},
}

/********** tiny raw-map helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
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

func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// firstAlias: first non-empty string for a named alias set.
func firstAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// firstIntAlias: first parseable non-negative integer for a named alias set.
func firstIntAlias(m map[string]any, aliases map[string][]string, key string) (int, bool) {
	for _, p := range aliases[key] {
		switch v := lookupAny(m, p).(type) {
		case float64:
			return int(v), true
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func firstBoolAlias(m map[string]any, aliases map[string][]string, key string) (bool, bool) {
	for _, p := range aliases[key] {
		switch v := lookupAny(m, p).(type) {
		case bool:
			return v, true
		case float64:
			return v != 0, true
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "1", "true", "yes", "si", "sí":
				return true, true
			case "0", "false", "no":
				return false, true
			}
		}
	}
	return false, false
}

func rawID(m map[string]any) int64 {
	for _, k := range []string{"id", "ID", "id_property"} {
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

/********** taxonomy terms & class tokens **********/

type term struct {
	taxonomy string
	name     string
	slug     string
}

// embeddedTerms flattens the taxonomy terms attached to a record, whichever
// of the two known shapes the install uses.
func embeddedTerms(rec map[string]any) []term {
	var out []term
	appendTerm := func(v any) {
		t, ok := v.(map[string]any)
		if !ok {
			return
		}
		out = append(out, term{
			taxonomy: lookupStr(t, "taxonomy"),
			name:     lookupStr(t, "name"),
			slug:     lookupStr(t, "slug"),
		})
	}
	// _embedded["wp:term"] is a list of per-taxonomy lists
	if groups, ok := lookupAny(rec, "_embedded.wp:term").([]any); ok {
		for _, g := range groups {
			if terms, ok := g.([]any); ok {
				for _, v := range terms {
					appendTerm(v)
				}
			}
		}
	}
	if terms, ok := rec["terms"].([]any); ok {
		for _, v := range terms {
			appendTerm(v)
		}
	}
	return out
}

// classTokens returns the record's CSS-class-like token list.
func classTokens(rec map[string]any) []string {
	raw, ok := rec["class_list"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// tokenValue scans tokens for "<prefix><value>" and returns the value.
func tokenValue(tokens []string, prefix string) string {
	for _, t := range tokens {
		if strings.HasPrefix(t, prefix) {
			return strings.TrimPrefix(t, prefix)
		}
	}
	return ""
}

// titleWords turns "el-rodadero" into "El Rodadero".
func titleWords(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
		}
	}
	return strings.Join(words, " ")
}

/********** misc parsing **********/

// parsePrice maps the amount string/number to the canonical price. The
// literal "0" and an absent field both mean "price unavailable", not free.
func parsePrice(v any) float64 {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			return t
		}
	case string:
		s := strings.TrimSpace(t)
		s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
			return f
		}
	}
	return domain.PriceUnavailable
}

func parseTimestamp(rec map[string]any) *time.Time {
	for _, p := range []string{"date_gmt", "date", "published_at", "created_at"} {
		s := lookupStr(rec, p)
		if s == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
	}
	return nil
}
