package app

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// textRule is one step of the cleanup pipeline. Rules run in declaration
// order on purpose: the input is fully entity-decoded before any rule runs,
// so rules match characters, never escape sequences, and boilerplate is
// removed before whitespace collapses.
type textRule struct {
	name string
	re   *regexp.Regexp
	repl string
}

var cleanupRules = []textRule{
	{"nbsp", regexp.MustCompile(`\x{00a0}`), " "},
	{"straighten quotes", regexp.MustCompile(`[‘’]`), "'"},
	{"straighten dquotes", regexp.MustCompile(`[“”]`), `"`},
	{"straighten dashes", regexp.MustCompile(`[–—]`), "-"},
	{"truncation marker", regexp.MustCompile(`\[…\]|…`), ""},
	{"continue-reading boilerplate", regexp.MustCompile(`(?i)(continue reading|read more|leer más|leer mas|seguir leyendo).*$`), ""},
	{"collapse whitespace", regexp.MustCompile(`\s+`), " "},
}

// CleanText turns a CMS rich-text fragment into plain prose: markup stripped,
// entities decoded, truncation markers and "continue reading" boilerplate
// removed. Safe on already-plain input.
func CleanText(s string) string {
	if s == "" {
		return s
	}
	if strings.Contains(s, "<") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err != nil {
			log.Warn().Err(err).Msg("markup parse failed, cleaning raw text")
		} else {
			s = doc.Text()
		}
	}
	// Titles and excerpts arrive double-escaped from the CMS even without any
	// markup, so decoding cannot hide behind the goquery path.
	s = html.UnescapeString(s)
	for _, r := range cleanupRules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return strings.TrimSpace(s)
}
