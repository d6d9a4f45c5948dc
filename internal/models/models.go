package models

import (
	"time"
)

// ElementKind classifies how a catalog entry's selector was derived.
type ElementKind string

const (
	KindID    ElementKind = "id"
	KindClass ElementKind = "class"
	KindTag   ElementKind = "tag"
)

// ScrapedElement is one candidate selector discovered during page analysis.
// The selector is guaranteed to be resolvable against the document it was
// derived from.
type ScrapedElement struct {
	Selector    string            `json:"selector"`
	Kind        ElementKind       `json:"kind"`
	TextPreview string            `json:"textPreview,omitempty"`
	ChildCount  int               `json:"childCount"`
	HasImage    bool              `json:"hasImage"`
	HasTable    bool              `json:"hasTable"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// PageAnalysis is the result of analyzing a page: its title plus the catalog
// of selectable elements shown to the user.
type PageAnalysis struct {
	URL      string           `json:"url"`
	Title    string           `json:"pageTitle"`
	Elements []ScrapedElement `json:"elements"`
}

// Record is one extracted, semi-structured result for a matched element or
// table row. Recognized keys (title, price, priceValue, priceCurrency,
// rating, reviews, image, images, imageData, url, urls, description,
// availability, inStock, brand, sku, attributes, _selector) carry defined
// extraction semantics; any other key is an opportunistic class-named field.
// Values stay flat (string, float64, bool, []string) except for the
// documented composites: imageData entries and table image cells.
type Record map[string]any

// SelectorKey holds the originating selector of a record.
const SelectorKey = "_selector"

// PopulatedFields counts informative fields, ignoring the selector tag.
func (r Record) PopulatedFields() int {
	n := 0
	for k, v := range r {
		if k == SelectorKey {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				n++
			}
		case nil:
		default:
			n++
		}
	}
	return n
}

// ImageMeta describes one extracted image beyond its URL.
type ImageMeta struct {
	Src         string `json:"src"`
	Alt         string `json:"alt,omitempty"`
	Title       string `json:"title,omitempty"`
	Width       string `json:"width,omitempty"`
	Height      string `json:"height,omitempty"`
	ParentClass string `json:"parentClass,omitempty"`
}

// ImageCell is the composite value stored for a table cell containing an image.
type ImageCell struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image"`
	Alt   string `json:"alt,omitempty"`
}

// Extraction is a persisted extraction result set.
type Extraction struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Selectors []string  `json:"selectors"`
	Data      []Record  `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
}
