package scraper

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagelens/pagelens/internal/models"
)

// ExtractTable converts one <table> element into flat records keyed by
// column header. Headers come from the <thead> row when present, otherwise
// from the first row; blank headers are synthesized as column<N>. A cell
// containing an image becomes a {text, image, alt} composite with the image
// URL resolved against base.
func ExtractTable(table *goquery.Selection, base *url.URL, maxRows int) []models.Record {
	headers, usedHead := tableHeaders(table)
	if len(headers) == 0 {
		return nil
	}

	var rows *goquery.Selection
	if usedHead {
		rows = table.Find("tbody tr")
	} else {
		rows = table.Find("tr").Slice(1, goquery.ToEnd)
	}

	var out []models.Record
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		rec := models.Record{}
		row.Find("th, td").EachWithBreak(func(i int, cell *goquery.Selection) bool {
			if i >= len(headers) {
				return false
			}
			if v, ok := cellValue(cell, base); ok {
				rec[headers[i]] = v
			}
			return true
		})
		if len(rec) > 0 {
			out = append(out, rec)
		}
		return len(out) < maxRows
	})
	return out
}

func tableHeaders(table *goquery.Selection) ([]string, bool) {
	headerRow := table.Find("thead tr").First()
	usedHead := headerRow.Length() > 0
	if !usedHead {
		headerRow = table.Find("tr").First()
	}

	var headers []string
	headerRow.Find("th, td").Each(func(i int, cell *goquery.Selection) {
		name := cleanText(cell)
		if name == "" {
			name = fmt.Sprintf("column%d", i+1)
		}
		headers = append(headers, name)
	})
	return headers, usedHead
}

func cellValue(cell *goquery.Selection, base *url.URL) (any, bool) {
	img := cell.Find("img").First()
	if img.Length() > 0 {
		src := imageSrc(img)
		if src != "" {
			return models.ImageCell{
				Text:  cleanText(cell),
				Image: resolveRef(base, src),
				Alt:   img.AttrOr("alt", ""),
			}, true
		}
	}
	text := cleanText(cell)
	return text, text != ""
}
