package scraper

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/pagelens/pagelens/internal/models"
)

const previewLimit = 150

// commonTags is the allow-list of structural and content tags offered as
// TAG-kind catalog entries.
var commonTags = []string{
	"h1", "h2", "h3", "p", "a", "img", "table",
	"ul", "ol", "li", "div", "span", "article", "section",
}

// Tags occurring this often or more are layout noise and suppressed.
const tagCountCeiling = 100

// idSelectorSafe limits id-derived selectors to tokens that keep their
// meaning in #-form. An id like "section.one" compiles but addresses an id
// plus a class, which matches nothing in the source document.
var idSelectorSafe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Analyzer builds the selector catalog for a page.
type Analyzer struct {
	logger *slog.Logger
}

func NewAnalyzer(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: logger.With("component", "analyzer")}
}

// Analyze inspects the document and produces a ranked catalog of candidate
// selectors: one entry per element id, one per distinct class token (the
// first bearer acts as representative, though the selector matches all
// bearers) and one per common tag within the 1-99 occurrence window.
// A *ParseError return means the markup produced unusable selector tokens;
// callers should retry with AnalyzeBasic.
func (a *Analyzer) Analyze(rawHTML, pageURL string) (*models.PageAnalysis, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, &ParseError{cause: err}
	}

	analysis := &models.PageAnalysis{
		URL:   pageURL,
		Title: pageTitle(doc, pageURL),
	}

	a.collectIDs(doc, analysis)
	if err := a.collectClasses(doc, analysis); err != nil {
		return nil, err
	}
	a.collectTags(doc, analysis)

	a.logger.Debug("analyzed page", "url", pageURL, "elements", len(analysis.Elements))
	return analysis, nil
}

func (a *Analyzer) collectIDs(doc *goquery.Document, analysis *models.PageAnalysis) {
	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id := s.AttrOr("id", "")
		if !idSelectorSafe.MatchString(id) {
			return
		}
		analysis.Elements = append(analysis.Elements, catalogEntry("#"+id, models.KindID, s))
	})
}

func (a *Analyzer) collectClasses(doc *goquery.Document, analysis *models.PageAnalysis) error {
	// Scoped to this call; each distinct token is processed once regardless
	// of how many elements carry it.
	processed := make(map[string]struct{})
	var parseErr error
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, token := range strings.Fields(s.AttrOr("class", "")) {
			if _, done := processed[token]; done {
				continue
			}
			processed[token] = struct{}{}

			selector := "." + token
			matcher, err := cascadia.Compile(selector)
			if err != nil {
				parseErr = &ParseError{Token: selector, cause: err}
				return false
			}
			first := doc.FindMatcher(matcher).First()
			if first.Length() == 0 {
				continue
			}
			analysis.Elements = append(analysis.Elements, catalogEntry(selector, models.KindClass, first))
		}
		return true
	})
	return parseErr
}

func (a *Analyzer) collectTags(doc *goquery.Document, analysis *models.PageAnalysis) {
	for _, tag := range commonTags {
		matches := doc.Find(tag)
		count := matches.Length()
		if count == 0 || count >= tagCountCeiling {
			continue
		}
		first := matches.First()
		analysis.Elements = append(analysis.Elements, models.ScrapedElement{
			Selector:    tag,
			Kind:        models.KindTag,
			TextPreview: fmt.Sprintf("%d %s element(s)", count, tag),
			ChildCount:  first.Children().Length(),
			HasImage:    tag == "img" || first.Find("img").Length() > 0,
			HasTable:    tag == "table" || first.Find("table").Length() > 0,
			Attributes:  whitelistedAttributes(first),
		})
	}
}

func catalogEntry(selector string, kind models.ElementKind, s *goquery.Selection) models.ScrapedElement {
	return models.ScrapedElement{
		Selector:    selector,
		Kind:        kind,
		TextPreview: truncate(cleanText(s), previewLimit),
		ChildCount:  s.Children().Length(),
		HasImage:    goquery.NodeName(s) == "img" || s.Find("img").Length() > 0,
		HasTable:    goquery.NodeName(s) == "table" || s.Find("table").Length() > 0,
		Attributes:  whitelistedAttributes(s),
	}
}

func pageTitle(doc *goquery.Document, pageURL string) string {
	if title := collapse(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return pageURL
}
