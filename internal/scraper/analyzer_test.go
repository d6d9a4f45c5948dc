package scraper

import (
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func findElement(elements []models.ScrapedElement, selector string) *models.ScrapedElement {
	for i := range elements {
		if elements[i].Selector == selector {
			return &elements[i]
		}
	}
	return nil
}

func TestAnalyzeCatalog(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	html := `<html><head><title>  My   Shop  </title></head><body>
		<div id="main">
			<p class="intro">First paragraph</p>
			<p>Second paragraph</p>
			<p>Third paragraph</p>
		</div>
	</body></html>`

	analysis, err := analyzer.Analyze(html, "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", analysis.URL)
	assert.Equal(t, "My Shop", analysis.Title)

	main := findElement(analysis.Elements, "#main")
	require.NotNil(t, main)
	assert.Equal(t, models.KindID, main.Kind)
	assert.Equal(t, 3, main.ChildCount)
	assert.False(t, main.HasImage)
	assert.False(t, main.HasTable)

	intro := findElement(analysis.Elements, ".intro")
	require.NotNil(t, intro)
	assert.Equal(t, models.KindClass, intro.Kind)
	assert.Equal(t, "First paragraph", intro.TextPreview)

	p := findElement(analysis.Elements, "p")
	require.NotNil(t, p)
	assert.Equal(t, models.KindTag, p.Kind)
	assert.Equal(t, "3 p element(s)", p.TextPreview)

	div := findElement(analysis.Elements, "div")
	require.NotNil(t, div)
	assert.Equal(t, "1 div element(s)", div.TextPreview)
}

func TestAnalyzeSkipsUnusableIDs(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	// "section.one" compiles as id "section" plus class "one" and would
	// match nothing here, so it must not become a catalog entry
	html := `<body>
		<div id="with space">a</div>
		<div id="section.one">b</div>
		<div id="main:content">c</div>
		<div id="1numeric">d</div>
		<div id="ok">e</div>
	</body>`
	analysis, err := analyzer.Analyze(html, "https://example.com")
	require.NoError(t, err)

	assert.Nil(t, findElement(analysis.Elements, "#with space"))
	assert.Nil(t, findElement(analysis.Elements, "#section.one"))
	assert.Nil(t, findElement(analysis.Elements, "#main:content"))
	assert.Nil(t, findElement(analysis.Elements, "#1numeric"))
	assert.NotNil(t, findElement(analysis.Elements, "#ok"))
}

func TestAnalyzeSelectorsResolve(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	html := `<body>
		<div id="section.one">Hello</div>
		<div id="main"><p class="intro">text</p></div>
		<span class="badge">b</span>
	</body>`
	analysis, err := analyzer.Analyze(html, "https://example.com")
	require.NoError(t, err)
	require.NotEmpty(t, analysis.Elements)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	// every catalog entry must match at least one element in the document
	// it was derived from
	for _, el := range analysis.Elements {
		matcher, err := cascadia.Compile(el.Selector)
		require.NoError(t, err, "selector %q", el.Selector)
		assert.Positive(t, doc.FindMatcher(matcher).Length(), "selector %q matched nothing", el.Selector)
	}
}

func TestAnalyzeClassDeduplication(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	html := `<body>
		<span class="badge">first</span>
		<span class="badge">second</span>
		<span class="badge extra">third</span>
	</body>`
	analysis, err := analyzer.Analyze(html, "https://example.com")
	require.NoError(t, err)

	var badges int
	for _, el := range analysis.Elements {
		if el.Selector == ".badge" {
			badges++
			// first bearer acts as representative
			assert.Equal(t, "first", el.TextPreview)
		}
	}
	assert.Equal(t, 1, badges)
	assert.NotNil(t, findElement(analysis.Elements, ".extra"))
}

func TestAnalyzeTagWindow(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	var b strings.Builder
	b.WriteString("<body><p>solo</p>")
	for i := 0; i < 100; i++ {
		b.WriteString("<span>x</span>")
	}
	b.WriteString("</body>")

	analysis, err := analyzer.Analyze(b.String(), "https://example.com")
	require.NoError(t, err)

	assert.NotNil(t, findElement(analysis.Elements, "p"))
	// 100 occurrences hits the ceiling and is suppressed as layout noise
	assert.Nil(t, findElement(analysis.Elements, "span"))
	assert.Nil(t, findElement(analysis.Elements, "img"))
}

func TestAnalyzePreviewTruncation(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	long := strings.Repeat("a", 200)
	analysis, err := analyzer.Analyze(`<body><div id="long">`+long+`</div></body>`, "https://example.com")
	require.NoError(t, err)

	el := findElement(analysis.Elements, "#long")
	require.NotNil(t, el)
	assert.Len(t, el.TextPreview, 153)
	assert.True(t, strings.HasSuffix(el.TextPreview, "..."))
}

func TestAnalyzeContentFlags(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	html := `<body>
		<div id="gallery"><img src="a.png" alt="a"></div>
		<div id="prices"><table><tr><td>1</td></tr></table></div>
	</body>`
	analysis, err := analyzer.Analyze(html, "https://example.com")
	require.NoError(t, err)

	gallery := findElement(analysis.Elements, "#gallery")
	require.NotNil(t, gallery)
	assert.True(t, gallery.HasImage)
	assert.False(t, gallery.HasTable)

	prices := findElement(analysis.Elements, "#prices")
	require.NotNil(t, prices)
	assert.True(t, prices.HasTable)

	img := findElement(analysis.Elements, "img")
	require.NotNil(t, img)
	assert.True(t, img.HasImage)
	assert.Equal(t, "a.png", img.Attributes["src"])
}

func TestAnalyzeTitleFallsBackToURL(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	analysis, err := analyzer.Analyze(`<body><p>no title here</p></body>`, "https://example.com/page")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", analysis.Title)
}

func TestAnalyzeReportsParseError(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	// a class token with selector syntax makes the primary pass bail out
	html := `<body><div class="price[">broken</div></body>`
	_, err := analyzer.Analyze(html, "https://example.com")
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, ".price[", parseErr.Token)
}

func TestAnalyzeBasicSkipsBrokenTokens(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	html := `<body>
		<div class="price[">broken</div>
		<div class="clean">fine</div>
		<div id="it's">also broken</div>
		<div id="section.one">unresolvable</div>
	</body>`
	analysis := analyzer.AnalyzeBasic(html, "https://example.com")

	assert.Nil(t, findElement(analysis.Elements, ".price["))
	assert.Nil(t, findElement(analysis.Elements, "#it's"))
	assert.Nil(t, findElement(analysis.Elements, "#section.one"))
	assert.NotNil(t, findElement(analysis.Elements, ".clean"))
}

func TestAnalyzeBasicCapsCatalog(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	var b strings.Builder
	b.WriteString("<body>")
	for i := 0; i < 150; i++ {
		b.WriteString(`<div id="item-` + strconv.Itoa(i) + `">x</div>`)
	}
	b.WriteString("</body>")

	analysis := analyzer.AnalyzeBasic(b.String(), "https://example.com")
	assert.Len(t, analysis.Elements, maxBasicElements)
}
