package scraper

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/models"
)

func TestExtractProductFields(t *testing.T) {
	extractor := NewExtractor(Options{}, testLogger())

	html := `<body>
		<div class="offer">
			<h2 class="title">Widget</h2>
			<span class="cost">$19.99</span>
			<p>A sturdy widget for everyday use.</p>
		</div>
	</body>`

	records, err := extractor.Extract(html, []string{".offer"}, "https://shop.example")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, ".offer", rec[models.SelectorKey])
	assert.Equal(t, "Widget", rec["title"])
	assert.Equal(t, "$19.99", rec["price"])
	assert.Equal(t, 19.99, rec["priceValue"])
	assert.Equal(t, "$", rec["priceCurrency"])
	assert.Equal(t, "A sturdy widget for everyday use.", rec["description"])
}

func TestExtractNoPriceWithoutCurrencyMarker(t *testing.T) {
	extractor := NewExtractor(Options{}, testLogger())

	html := `<body>
		<div class="contact">
			<h3>Support</h3>
			<p>Contact us at 555 1234 for assistance.</p>
		</div>
	</body>`

	records, err := extractor.Extract(html, []string{".contact"}, "https://shop.example")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.NotContains(t, rec, "price")
	assert.NotContains(t, rec, "priceValue")
	assert.Equal(t, "Support", rec["title"])
}

func TestExtractSkipsSparseElements(t *testing.T) {
	extractor := NewExtractor(Options{}, testLogger())

	// one populated field is not enough to make a record
	html := `<body><div class="note"><h4>Just a heading</h4></div></body>`
	records, err := extractor.Extract(html, []string{".note"}, "https://shop.example")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExtractResolvesRelativeURLs(t *testing.T) {
	extractor := NewExtractor(Options{}, testLogger())

	html := `<body>
		<div class="offer">
			<h2>Widget</h2>
			<a href="/w1">Details</a>
			<img src="img/w1.png" alt="widget">
		</div>
	</body>`

	records, err := extractor.Extract(html, []string{".offer"}, "https://shop.example/items/")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, []string{"https://shop.example/w1"}, rec["urls"])
	assert.Equal(t, "https://shop.example/items/img/w1.png", rec["image"])
}

func TestExtractInvalidSelectorIsSkipped(t *testing.T) {
	extractor := NewExtractor(Options{}, testLogger())

	html := `<body>
		<div class="offer"><h2>Widget</h2><span>$5.00</span></div>
	</body>`

	records, err := extractor.Extract(html, []string{"div[", ".offer"}, "https://shop.example")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ".offer", records[0][models.SelectorKey])
}

func TestExtractTableSelector(t *testing.T) {
	extractor := NewExtractor(Options{}, testLogger())

	html := `<body><table>
		<thead><tr><th>Name</th><th>Price</th></tr></thead>
		<tbody>
			<tr><td>Widget</td><td>$5</td></tr>
			<tr><td>Gadget</td><td>$7</td></tr>
		</tbody>
	</table></body>`

	records, err := extractor.Extract(html, []string{"table"}, "https://shop.example")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Widget", records[0]["Name"])
	assert.Equal(t, "$5", records[0]["Price"])
	assert.Equal(t, "Gadget", records[1]["Name"])
}

func TestExtractTableViaContainerSelector(t *testing.T) {
	extractor := NewExtractor(Options{}, testLogger())

	// selector does not mention "table" but resolves to an element containing one
	html := `<body><div class="pricing">
		<table>
			<tr><th>Plan</th><th>Cost</th></tr>
			<tr><td>Basic</td><td>$1</td></tr>
		</table>
	</div></body>`

	records, err := extractor.Extract(html, []string{".pricing"}, "https://shop.example")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Basic", records[0]["Plan"])
	assert.Equal(t, "$1", records[0]["Cost"])
}

func TestSelectAllUsesProductPatterns(t *testing.T) {
	extractor := NewExtractor(Options{}, testLogger())

	html := `<body>
		<article><h2>Ignored Article</h2><span>$99.00</span></article>
		<ul>
			<li class="product"><h2>Widget A</h2><span class="cost">$10.00</span></li>
			<li class="product"><h2>Widget B</h2><span class="cost">$12.00</span></li>
		</ul>
	</body>`

	records, err := extractor.Extract(html, []string{"*"}, "https://shop.example")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// first pattern with meaningful matches wins; later patterns never run
	for _, rec := range records {
		assert.Equal(t, ".product", rec[models.SelectorKey])
	}
	assert.Equal(t, "Widget A", records[0]["title"])
	assert.Equal(t, "Widget B", records[1]["title"])
}

func TestSelectAllIgnoresExplicitSelectors(t *testing.T) {
	extractor := NewExtractor(Options{}, testLogger())

	html := `<body>
		<div class="product"><h2>Widget</h2><span>$10.00</span></div>
		<div class="other"><h2>Other</h2><span>$11.00</span></div>
	</body>`

	records, err := extractor.Extract(html, []string{"selectAll", ".other"}, "https://shop.example")
	require.NoError(t, err)
	require.NotEmpty(t, records)
	for _, rec := range records {
		assert.NotEqual(t, ".other", rec[models.SelectorKey])
	}
}

func TestSelectAllFallsBackToTreeWalk(t *testing.T) {
	extractor := NewExtractor(Options{}, testLogger())

	html := `<body>
		<section>
			<h1>Solo Item</h1>
			<p>A description that is comfortably long enough to keep.</p>
		</section>
	</body>`

	records, err := extractor.Extract(html, []string{"*"}, "https://shop.example")
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "section", records[0][models.SelectorKey])
	assert.Equal(t, "Solo Item", records[0]["title"])
}

func TestTreeWalkDeduplicates(t *testing.T) {
	extractor := NewExtractor(Options{}, testLogger())

	section := `<section>
		<h1>Solo Item</h1>
		<p>A description that is comfortably long enough to keep.</p>
	</section>`
	html := "<body>" + section + section + "</body>"

	records, err := extractor.Extract(html, []string{"*"}, "https://shop.example")
	require.NoError(t, err)

	var titled int
	for _, rec := range records {
		if rec["title"] == "Solo Item" {
			titled++
		}
	}
	assert.Equal(t, 1, titled)
}

func TestTreeWalkRespectsCap(t *testing.T) {
	extractor := NewExtractor(Options{MaxTreeRecords: 3}, testLogger())

	var b strings.Builder
	b.WriteString("<body>")
	for i := 0; i < 10; i++ {
		b.WriteString(`<div><h2>Item ` + strconv.Itoa(i) + `</h2><span>$` + strconv.Itoa(i+1) + `.00</span></div>`)
	}
	b.WriteString("</body>")

	records, err := extractor.Extract(b.String(), []string{"*"}, "https://shop.example")
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestExtractPerSelectorCap(t *testing.T) {
	extractor := NewExtractor(Options{MaxSelectorElements: 2}, testLogger())

	var b strings.Builder
	b.WriteString("<body>")
	for i := 0; i < 5; i++ {
		b.WriteString(`<div class="offer"><h2>Item ` + strconv.Itoa(i) + `</h2><span>$` + strconv.Itoa(i+1) + `.00</span></div>`)
	}
	b.WriteString("</body>")

	records, err := extractor.Extract(b.String(), []string{".offer"}, "https://shop.example")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestExtractIdempotent(t *testing.T) {
	extractor := NewExtractor(Options{}, testLogger())

	html := `<body>
		<div class="offer"><h2>Widget</h2><span>$19.99</span></div>
	</body>`

	first, err := extractor.Extract(html, []string{".offer"}, "https://shop.example")
	require.NoError(t, err)
	second, err := extractor.Extract(html, []string{".offer"}, "https://shop.example")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWithProfileClones(t *testing.T) {
	extractor := NewExtractor(Options{Profile: ProfileProduct}, testLogger())

	same := extractor.WithProfile("")
	assert.Same(t, extractor, same)
	same = extractor.WithProfile(ProfileProduct)
	assert.Same(t, extractor, same)

	article := extractor.WithProfile(ProfileArticle)
	assert.NotSame(t, extractor, article)
	assert.Equal(t, ProfileProduct, extractor.opts.Profile)
	assert.Equal(t, ProfileArticle, article.opts.Profile)
}
