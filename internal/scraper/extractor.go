package scraper

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/pagelens/pagelens/internal/models"
)

// Select-all directives bypass explicit selectors in favor of heuristic
// container detection.
const (
	DirectiveAll       = "*"
	DirectiveSelectAll = "selectAll"
)

// productPatterns is the ordered chain tried by select-all mode: generic
// containers first, then marketplace and e-commerce specifics. The first
// pattern producing at least one meaningful record wins.
var productPatterns = []string{
	".product",
	".item",
	"article",
	".card",
	"[data-asin]",
	`[data-component-type="s-search-result"]`,
	".s-result-item",
	".product-item",
	".product-card",
	"[data-sku]",
	"[data-product-id]",
	".grid-item",
}

// Options bound extraction work. The caps are safety valves, not business
// rules; zero values pick the defaults.
type Options struct {
	Profile             Profile
	MaxTreeRecords      int // full-tree walk output cap, default 200
	MaxSelectorElements int // per-selector traversal cap, default 100
	MaxTableRows        int // per-table row cap, default 100
}

// Extractor synthesizes semi-structured records from matched elements.
type Extractor struct {
	opts   Options
	policy descriptionPolicy
	logger *slog.Logger
}

func NewExtractor(opts Options, logger *slog.Logger) *Extractor {
	if opts.Profile == "" {
		opts.Profile = ProfileProduct
	}
	if opts.MaxTreeRecords <= 0 {
		opts.MaxTreeRecords = 200
	}
	if opts.MaxSelectorElements <= 0 {
		opts.MaxSelectorElements = 100
	}
	if opts.MaxTableRows <= 0 {
		opts.MaxTableRows = 100
	}
	return &Extractor{
		opts:   opts,
		policy: opts.Profile.policy(),
		logger: logger.With("component", "extractor"),
	}
}

// WithProfile returns a copy of the extractor using the given description
// policy; extractors themselves stay immutable and safe for concurrent use.
func (e *Extractor) WithProfile(p Profile) *Extractor {
	if p == "" || p == e.opts.Profile {
		return e
	}
	clone := *e
	clone.opts.Profile = p
	clone.policy = p.policy()
	return &clone
}

// Extract resolves each selector against the document and synthesizes one
// record per matched element. Table-like selectors are routed through the
// table extractor; the select-all directive replaces explicit selectors with
// heuristic container detection. Failures of individual selectors are logged
// and skipped so one malformed selector cannot blank the response.
func (e *Extractor) Extract(rawHTML string, selectors []string, baseURL string) ([]models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDocument, err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	records := []models.Record{}
	selectAll := false
	var regular []string

	for _, raw := range selectors {
		selector := strings.TrimSpace(raw)
		switch {
		case selector == "":
		case selector == DirectiveAll || selector == DirectiveSelectAll:
			selectAll = true
		case e.isTableSelector(doc, selector):
			records = append(records, e.extractTables(doc, selector, base)...)
		default:
			regular = append(regular, selector)
		}
	}

	if selectAll {
		return append(records, e.extractSmart(doc, base)...), nil
	}

	for _, selector := range regular {
		recs, err := e.extractSelector(doc, selector, base)
		if err != nil {
			e.logger.Warn("selector failed, skipping", "selector", selector, "error", err)
			continue
		}
		records = append(records, recs...)
	}
	return records, nil
}

// isTableSelector decides whether a selector should take the table route:
// the literal "table", anything mentioning table, or a selector whose
// matches are (or contain) table elements.
func (e *Extractor) isTableSelector(doc *goquery.Document, selector string) bool {
	if strings.Contains(strings.ToLower(selector), "table") {
		return true
	}
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return false
	}
	found := doc.FindMatcher(matcher)
	if found.Length() == 0 {
		return false
	}
	return found.Is("table") || found.Find("table").Length() > 0
}

func (e *Extractor) extractTables(doc *goquery.Document, selector string, base *url.URL) []models.Record {
	var tables *goquery.Selection
	if selector == "table" {
		tables = doc.Find("table")
	} else {
		matcher, err := cascadia.Compile(selector)
		if err != nil {
			e.logger.Warn("table selector failed, skipping", "selector", selector, "error", err)
			return nil
		}
		found := doc.FindMatcher(matcher)
		tables = found.Filter("table").AddSelection(found.Find("table"))
	}

	var records []models.Record
	tables.Each(func(_ int, table *goquery.Selection) {
		records = append(records, ExtractTable(table, base, e.opts.MaxTableRows)...)
	})
	return records
}

// extractSmart implements select-all mode: try the product-pattern chain
// with early exit, then degrade to a bounded full-tree walk.
func (e *Extractor) extractSmart(doc *goquery.Document, base *url.URL) []models.Record {
	for _, pattern := range productPatterns {
		matches := doc.Find(pattern)
		if matches.Length() == 0 {
			continue
		}

		var records []models.Record
		matches.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			rec := e.productRecord(s, base)
			if meaningfulProduct(rec) {
				rec[models.SelectorKey] = pattern
				records = append(records, rec)
			}
			return len(records) < e.opts.MaxSelectorElements
		})

		if len(records) > 0 {
			e.logger.Debug("product pattern matched", "pattern", pattern, "records", len(records))
			return records
		}
	}

	e.logger.Debug("no product pattern matched, walking full tree")
	return e.fullTreeWalk(doc, base)
}

// fullTreeWalk attempts structured extraction on every element, keeping
// records with more than one populated field, deduplicated by their
// title|image|price|url composite and capped at MaxTreeRecords.
func (e *Extractor) fullTreeWalk(doc *goquery.Document, base *url.URL) []models.Record {
	var records []models.Record
	seen := make(map[string]struct{})

	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rec := e.structuredRecord(s, base)
		if rec.PopulatedFields() <= 1 {
			return true
		}
		if key := dedupeKey(rec); key != "" {
			if _, dup := seen[key]; dup {
				return true
			}
			seen[key] = struct{}{}
		}
		rec[models.SelectorKey] = goquery.NodeName(s)
		records = append(records, rec)
		return len(records) < e.opts.MaxTreeRecords
	})
	return records
}

func (e *Extractor) extractSelector(doc *goquery.Document, selector string, base *url.URL) ([]models.Record, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, selector, err)
	}

	var records []models.Record
	doc.FindMatcher(matcher).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= e.opts.MaxSelectorElements {
			return false
		}
		rec := e.structuredRecord(s, base)
		if rec.PopulatedFields() > 1 {
			rec[models.SelectorKey] = selector
			records = append(records, rec)
		}
		return true
	})
	return records, nil
}

// meaningfulProduct is the stricter select-all filter: a non-empty title,
// price or image, or more than two populated fields.
func meaningfulProduct(rec models.Record) bool {
	for _, key := range []string{"title", "price", "image"} {
		if v, ok := rec[key].(string); ok && v != "" {
			return true
		}
	}
	return rec.PopulatedFields() > 2
}

// dedupeKey joins the non-empty parts of title|image|price|url. Records
// lacking all four are never deduplicated against each other.
func dedupeKey(rec models.Record) string {
	var parts []string
	for _, key := range []string{"title", "image", "price", "url"} {
		if v, ok := rec[key].(string); ok && v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "|")
}
