package scraper

import (
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/models"
)

func TestExtractTableWithHead(t *testing.T) {
	table := selection(t, `<body><table>
		<thead><tr><th>Name</th><th>Price</th></tr></thead>
		<tbody>
			<tr><td>Widget</td><td>$5</td></tr>
			<tr><td>Gadget</td><td></td></tr>
		</tbody>
	</table></body>`, "table")

	records := ExtractTable(table, nil, 100)
	require.Len(t, records, 2)
	assert.Equal(t, models.Record{"Name": "Widget", "Price": "$5"}, records[0])
	// empty cells are omitted rather than stored as ""
	assert.Equal(t, models.Record{"Name": "Gadget"}, records[1])
}

func TestExtractTableFirstRowHeaders(t *testing.T) {
	table := selection(t, `<body><table>
		<tr><td>Name</td><td>Price</td></tr>
		<tr><td>Widget</td><td>$5</td></tr>
	</table></body>`, "table")

	records := ExtractTable(table, nil, 100)
	require.Len(t, records, 1)
	assert.Equal(t, "Widget", records[0]["Name"])
}

func TestExtractTableSynthesizesBlankHeaders(t *testing.T) {
	table := selection(t, `<body><table>
		<thead><tr><th>Name</th><th></th></tr></thead>
		<tbody><tr><td>Widget</td><td>$5</td></tr></tbody>
	</table></body>`, "table")

	records := ExtractTable(table, nil, 100)
	require.Len(t, records, 1)
	assert.Equal(t, "$5", records[0]["column2"])
}

func TestExtractTableImageCell(t *testing.T) {
	base, err := url.Parse("https://shop.example/catalog/")
	require.NoError(t, err)

	table := selection(t, `<body><table>
		<thead><tr><th>Product</th><th>Photo</th></tr></thead>
		<tbody><tr><td>Widget</td><td><img src="w.png" alt="widget photo"></td></tr></tbody>
	</table></body>`, "table")

	records := ExtractTable(table, base, 100)
	require.Len(t, records, 1)

	cell, ok := records[0]["Photo"].(models.ImageCell)
	require.True(t, ok)
	assert.Equal(t, "https://shop.example/catalog/w.png", cell.Image)
	assert.Equal(t, "widget photo", cell.Alt)
}

func TestExtractTableDropsEmptyRowsAndExtraCells(t *testing.T) {
	table := selection(t, `<body><table>
		<thead><tr><th>Name</th></tr></thead>
		<tbody>
			<tr><td></td></tr>
			<tr><td>Widget</td><td>spillover</td></tr>
		</tbody>
	</table></body>`, "table")

	records := ExtractTable(table, nil, 100)
	require.Len(t, records, 1)
	assert.Equal(t, models.Record{"Name": "Widget"}, records[0])
}

func TestExtractTableRowCap(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<body><table><thead><tr><th>N</th></tr></thead><tbody>`)
	for i := 0; i < 10; i++ {
		b.WriteString(`<tr><td>` + strconv.Itoa(i) + `</td></tr>`)
	}
	b.WriteString(`</tbody></table></body>`)

	table := selection(t, b.String(), "table")
	records := ExtractTable(table, nil, 4)
	assert.Len(t, records, 4)
}

func TestExtractTableHeaderless(t *testing.T) {
	table := selection(t, `<body><table></table></body>`, "table")
	assert.Nil(t, ExtractTable(table, nil, 100))
}
