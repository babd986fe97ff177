// Package extractor locates downloadable archive links on an index page.
//
// The NCDC bulk-download pages are rendered dynamically and their structure
// has changed over time, so extraction does not rely on a single selector.
// Instead a fixed, priority-ordered chain of selection rules is tried in
// sequence and the first rule that yields any surviving link wins outright;
// broader rules further down the chain are fallbacks, never merged in.
package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// SelectionRule is a named CSS selector for locating candidate anchors
type SelectionRule struct {
	Name     string
	Selector string
}

// DefaultRules is the priority-ordered selection chain, most specific first.
// The final "a" rule is a last resort that inspects every anchor on the page.
var DefaultRules = []SelectionRule{
	{Name: "bdp-link-container", Selector: "div.bdpLink a"},
	{Name: "gzip-extension", Selector: "a[href*='.gz']"},
	{Name: "tar-extension", Selector: "a[href*='.tar']"},
	{Name: "bzip2-extension", Selector: "a[href*='.bz2']"},
	{Name: "download-keyword", Selector: "a[href*='download']"},
	{Name: "volume-format", Selector: "a[href*='V06']"},
	{Name: "product-code", Selector: "a[href*='AAL2']"},
	{Name: "table-links", Selector: "table a"},
	{Name: "download-class", Selector: ".download a"},
	{Name: "file-link-class", Selector: ".file-link a"},
	{Name: "all-anchors", Selector: "a"},
}

// fileMarkers are substrings that mark an href as a likely data file.
// V06 appears in NEXRAD Level-II volume filenames, AAL2 is the product code.
var fileMarkers = []string{".gz", ".tar", ".bz2", "V06", "AAL2"}

// Anchor is one anchor element captured for diagnostics
type Anchor struct {
	Text string
	Href string
}

// Extractor extracts absolute file URLs from index-page HTML
type Extractor struct {
	rules []SelectionRule

	// OnRuleMatch, when set, is called once with the winning rule and the
	// number of links it produced.
	OnRuleMatch func(rule SelectionRule, count int)

	// OnNoMatch, when set, is called with every anchor on the page when no
	// rule produced a link.
	OnNoMatch func(anchors []Anchor)
}

// New creates an Extractor using the default selection chain
func New() *Extractor {
	return NewWithRules(DefaultRules)
}

// NewWithRules creates an Extractor with a custom selection chain
func NewWithRules(rules []SelectionRule) *Extractor {
	return &Extractor{rules: rules}
}

// Extract returns the deduplicated, order-preserving sequence of absolute
// file URLs found in htmlText, resolved against baseURL. An empty result is
// not an error: it means no rule matched anything worth downloading.
func (e *Extractor) Extract(htmlText, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, fmt.Errorf("failed to parse index page HTML: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	seen := make(map[string]bool)
	var links []string

	for _, rule := range e.rules {
		// A selector that fails to compile found nothing; move on
		sel, err := cascadia.Compile(rule.Selector)
		if err != nil {
			continue
		}

		found := 0
		doc.FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok {
				return
			}
			if !looksLikeDataFile(href) {
				return
			}

			ref, err := url.Parse(href)
			if err != nil {
				// Unresolvable candidate, skip just this one
				return
			}
			absolute := base.ResolveReference(ref).String()

			if seen[absolute] {
				return
			}
			seen[absolute] = true
			links = append(links, absolute)
			found++
		})

		// First rule that finds anything wins
		if found > 0 {
			if e.OnRuleMatch != nil {
				e.OnRuleMatch(rule, found)
			}
			break
		}
	}

	if len(links) == 0 && e.OnNoMatch != nil {
		e.OnNoMatch(collectAnchors(doc))
	}

	return links, nil
}

// looksLikeDataFile reports whether an href plausibly points at archive data
func looksLikeDataFile(href string) bool {
	for _, marker := range fileMarkers {
		if strings.Contains(href, marker) {
			return true
		}
	}
	// The bare word "download" is only trusted on already-absolute URLs
	return strings.HasPrefix(href, "http") && strings.Contains(href, "download")
}

func collectAnchors(doc *goquery.Document) []Anchor {
	var anchors []Anchor
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		anchors = append(anchors, Anchor{
			Text: strings.TrimSpace(s.Text()),
			Href: href,
		})
	})
	return anchors
}
