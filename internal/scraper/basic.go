package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/pagelens/pagelens/internal/models"
)

// maxBasicElements hard-caps the fallback catalog.
const maxBasicElements = 100

// selectorBreakers are characters that make a class token unusable as
// selector syntax downstream.
const selectorBreakers = "[](){}'\"=" + " \t\n\r"

// AnalyzeBasic is the degraded-mode catalog builder, used when Analyze
// returns a ParseError. It runs the same id/class/tag scan with defensive
// token filtering and never fails: adversarial markup costs completeness,
// not availability.
func (a *Analyzer) AnalyzeBasic(rawHTML, pageURL string) *models.PageAnalysis {
	analysis := &models.PageAnalysis{URL: pageURL, Title: pageURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		a.logger.Warn("basic parse failed, returning empty catalog", "url", pageURL, "error", err)
		return analysis
	}
	analysis.Title = pageTitle(doc, pageURL)

	full := func() bool { return len(analysis.Elements) >= maxBasicElements }

	doc.Find("[id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		id := s.AttrOr("id", "")
		if !idSelectorSafe.MatchString(id) {
			return true
		}
		analysis.Elements = append(analysis.Elements, catalogEntry("#"+id, models.KindID, s))
		return !full()
	})

	processed := make(map[string]struct{})
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, token := range strings.Fields(s.AttrOr("class", "")) {
			if full() {
				return false
			}
			if _, done := processed[token]; done {
				continue
			}
			processed[token] = struct{}{}
			if strings.ContainsAny(token, selectorBreakers) {
				continue
			}
			selector := "." + token
			matcher, err := cascadia.Compile(selector)
			if err != nil {
				continue
			}
			first := doc.FindMatcher(matcher).First()
			if first.Length() == 0 {
				continue
			}
			analysis.Elements = append(analysis.Elements, catalogEntry(selector, models.KindClass, first))
		}
		return !full()
	})

	for _, tag := range commonTags {
		if full() {
			break
		}
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
		})
	}

	a.logger.Debug("basic analysis complete", "url", pageURL, "elements", len(analysis.Elements))
	return analysis
}
