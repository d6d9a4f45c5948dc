package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagelens/pagelens/internal/models"
)

var (
	// Currency marker adjacent to a decimal number, in either order.
	pricePattern = regexp.MustCompile(`(?i)([$€£¥₹]|USD|EUR|GBP|JPY|INR|CHF|CAD|AUD)\s*(\d[\d,]*(?:\.\d+)?)|(\d[\d,]*(?:\.\d+)?)\s*([$€£¥₹]|USD|EUR|GBP|JPY|INR|CHF|CAD|AUD)`)

	// Tried in order; "out of 5" must precede "stars" so that
	// "4.5 out of 5 stars" does not resolve to 5.
	ratingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b([0-5](?:\.\d{1,2})?)\s*/\s*5\b`),
		regexp.MustCompile(`(?i)\b([0-5](?:\.\d{1,2})?)\s*out\s*of\s*5\b`),
		regexp.MustCompile(`(?i)\b([0-5](?:\.\d{1,2})?)\s*stars?\b`),
	}

	reviewsPattern = regexp.MustCompile(`(?i)\(?\s*([\d,]+)\s*\)?\s*(?:customer\s+)?(?:reviews?|ratings?|votes?)`)

	numericPattern = regexp.MustCompile(`^-?\d[\d,]*(?:\.\d+)?$`)
)

var availabilityPositive = []string{"in stock", "available", "ships"}
var availabilityNegative = []string{"out of stock", "unavailable", "sold out"}

// layoutPrefixes mark utility classes that never name a data field.
var layoutPrefixes = []string{
	"d-", "flex-", "text-", "bg-", "border-", "justify-", "align-",
	"m-", "mt-", "mb-", "ms-", "me-", "mx-", "my-",
	"p-", "pt-", "pb-", "ps-", "pe-", "px-", "py-",
	"w-", "h-", "gap-", "col-", "row-", "position-", "float-",
}

// recognizedFields are keys with defined extraction semantics; opportunistic
// class-named fields never collide with them.
var recognizedFields = map[string]struct{}{
	"title": {}, "price": {}, "pricevalue": {}, "pricecurrency": {},
	"rating": {}, "reviews": {}, "image": {}, "images": {}, "imagedata": {},
	"url": {}, "urls": {}, "linktext": {}, "description": {},
	"availability": {}, "instock": {}, "brand": {}, "sku": {}, "attributes": {},
}

// structuredRecord runs the generic heuristic battery against one matched
// element: every link collected into urls, images unfiltered by size.
func (e *Extractor) structuredRecord(s *goquery.Selection, base *url.URL) models.Record {
	rec := models.Record{}
	if title := extractTitle(s); title != "" {
		rec["title"] = title
	}
	extractPrice(s, rec)
	extractRating(s, rec)
	extractReviews(s, rec)
	collectImages(s, base, rec, false)
	if urls := collectLinks(s, base); len(urls) > 0 {
		rec["urls"] = urls
	}
	if desc := extractDescription(s, e.policy); desc != "" {
		rec["description"] = desc
	}
	extractAvailability(s, rec)
	extractBrandAndSKU(s, rec)
	opportunisticFields(s, rec)
	if attrs := whitelistedAttributes(s); attrs != nil {
		rec["attributes"] = attrs
	}
	return rec
}

// productRecord is the product-oriented variant used by select-all mode:
// icon-sized images are dropped and only the first link is kept, as a
// singular url with its visible text.
func (e *Extractor) productRecord(s *goquery.Selection, base *url.URL) models.Record {
	rec := models.Record{}
	if title := extractTitle(s); title != "" {
		rec["title"] = title
	}
	extractPrice(s, rec)
	extractRating(s, rec)
	extractReviews(s, rec)
	collectImages(s, base, rec, true)
	if link := firstLink(s); link != nil {
		rec["url"] = resolveRef(base, link.AttrOr("href", ""))
		if text := cleanText(link); text != "" {
			rec["linkText"] = text
		}
	}
	if desc := extractDescription(s, e.policy); desc != "" {
		rec["description"] = desc
	}
	extractAvailability(s, rec)
	extractBrandAndSKU(s, rec)
	opportunisticFields(s, rec)
	if attrs := whitelistedAttributes(s); attrs != nil {
		rec["attributes"] = attrs
	}
	return rec
}

// scanNodes visits the element itself, then its descendants in document
// order, stopping when visit returns true.
func scanNodes(root *goquery.Selection, visit func(s *goquery.Selection) bool) {
	if visit(root) {
		return
	}
	root.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		return !visit(s)
	})
}

// extractTitle prefers headings carrying a title-like class or id, then
// plain headings, then any other descendant named like a title. The first
// non-empty match wins.
func extractTitle(root *goquery.Selection) string {
	const headings = "h1, h2, h3, h4, h5, h6"

	var title string
	pick := func(s *goquery.Selection) bool {
		if text := cleanText(s); text != "" {
			title = text
			return true
		}
		return false
	}

	scanNodes(root, func(s *goquery.Selection) bool {
		return s.Is(headings) && classOrIDContains(s, "title", "name", "heading") && pick(s)
	})
	if title != "" {
		return title
	}
	scanNodes(root, func(s *goquery.Selection) bool {
		return s.Is(headings) && pick(s)
	})
	if title != "" {
		return title
	}
	scanNodes(root, func(s *goquery.Selection) bool {
		return classOrIDContains(s, "title", "name", "heading") && pick(s)
	})
	return title
}

func extractPrice(root *goquery.Selection, rec models.Record) {
	scanNodes(root, func(s *goquery.Selection) bool {
		for _, key := range []string{"data-price", "data-value"} {
			raw, ok := s.Attr(key)
			if !ok {
				continue
			}
			if value, err := parseNumeric(raw); err == nil {
				rec["price"] = strings.TrimSpace(raw)
				rec["priceValue"] = value
				return true
			}
		}
		m := pricePattern.FindStringSubmatch(ownText(s))
		if m == nil {
			return false
		}
		currency, number := m[1], m[2]
		if currency == "" {
			currency, number = m[4], m[3]
		}
		rec["price"] = strings.TrimSpace(m[0])
		if value, err := parseNumeric(number); err == nil {
			rec["priceValue"] = value
		}
		rec["priceCurrency"] = currency
		return true
	})
}

func extractRating(root *goquery.Selection, rec models.Record) {
	scanNodes(root, func(s *goquery.Selection) bool {
		for _, key := range []string{"data-rating", "data-score"} {
			raw, ok := s.Attr(key)
			if !ok {
				continue
			}
			if value, err := parseNumeric(raw); err == nil && value >= 0 && value <= 5 {
				rec["rating"] = value
				return true
			}
		}
		text := ownText(s)
		for _, pattern := range ratingPatterns {
			m := pattern.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			if value, err := strconv.ParseFloat(m[1], 64); err == nil && value <= 5 {
				rec["rating"] = value
				return true
			}
		}
		return false
	})
}

func extractReviews(root *goquery.Selection, rec models.Record) {
	scanNodes(root, func(s *goquery.Selection) bool {
		m := reviewsPattern.FindStringSubmatch(ownText(s))
		if m == nil {
			return false
		}
		count, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			return false
		}
		rec["reviews"] = float64(count)
		return true
	})
}

// imageSrc resolves the effective source of an img element, falling back to
// the usual lazy-load attributes and finally the first srcset entry.
func imageSrc(img *goquery.Selection) string {
	for _, key := range []string{"src", "data-src", "data-original", "data-lazy-src", "data-url"} {
		if v := strings.TrimSpace(img.AttrOr(key, "")); v != "" {
			return v
		}
	}
	if srcset := img.AttrOr("srcset", ""); srcset != "" {
		first := strings.Split(srcset, ",")[0]
		if fields := strings.Fields(first); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

// iconSized reports whether the element declares a width or height under 50px.
func iconSized(img *goquery.Selection) bool {
	for _, key := range []string{"width", "height"} {
		raw := strings.TrimSuffix(strings.TrimSpace(img.AttrOr(key, "")), "px")
		if raw == "" {
			continue
		}
		if v, err := strconv.Atoi(raw); err == nil && v < 50 {
			return true
		}
	}
	return false
}

func collectImages(root *goquery.Selection, base *url.URL, rec models.Record, skipIcons bool) {
	var srcs []string
	var meta []models.ImageMeta

	add := func(img *goquery.Selection) {
		src := imageSrc(img)
		if src == "" {
			return
		}
		if skipIcons && iconSized(img) {
			return
		}
		resolved := resolveRef(base, src)
		srcs = append(srcs, resolved)
		meta = append(meta, models.ImageMeta{
			Src:         resolved,
			Alt:         img.AttrOr("alt", ""),
			Title:       img.AttrOr("title", ""),
			Width:       img.AttrOr("width", ""),
			Height:      img.AttrOr("height", ""),
			ParentClass: img.Parent().AttrOr("class", ""),
		})
	}

	if goquery.NodeName(root) == "img" {
		add(root)
	}
	root.Find("img").Each(func(_ int, img *goquery.Selection) { add(img) })

	if len(srcs) == 0 {
		return
	}
	rec["image"] = srcs[0]
	if len(srcs) > 1 {
		rec["images"] = srcs
	}
	rec["imageData"] = meta
}

func collectLinks(root *goquery.Selection, base *url.URL) []string {
	var urls []string
	if goquery.NodeName(root) == "a" {
		if href := root.AttrOr("href", ""); href != "" {
			urls = append(urls, resolveRef(base, href))
		}
	}
	root.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if href := a.AttrOr("href", ""); href != "" {
			urls = append(urls, resolveRef(base, href))
		}
	})
	return urls
}

func firstLink(root *goquery.Selection) *goquery.Selection {
	if goquery.NodeName(root) == "a" && root.AttrOr("href", "") != "" {
		return root
	}
	if a := root.Find("a[href]").First(); a.Length() > 0 {
		return a
	}
	return nil
}

func extractDescription(root *goquery.Selection, policy descriptionPolicy) string {
	var desc string
	scanNodes(root, func(s *goquery.Selection) bool {
		if goquery.NodeName(s) != "p" && !classOrIDContains(s, "desc", "summary", "about") {
			return false
		}
		text := cleanText(s)
		length := len([]rune(text))
		if length <= policy.minLen {
			return false
		}
		if policy.maxLen > 0 && length >= policy.maxLen {
			return false
		}
		desc = text
		return true
	})
	if desc != "" && policy.truncateAt > 0 {
		desc = truncate(desc, policy.truncateAt)
	}
	return desc
}

func extractAvailability(root *goquery.Selection, rec models.Record) {
	scanNodes(root, func(s *goquery.Selection) bool {
		text := ownText(s)
		if text == "" || len(text) > 100 {
			return false
		}
		lower := strings.ToLower(text)
		positive := containsAny(lower, availabilityPositive)
		negative := containsAny(lower, availabilityNegative)
		if !positive && !negative {
			return false
		}
		rec["availability"] = text
		rec["inStock"] = positive && !negative
		return true
	})
}

func extractBrandAndSKU(root *goquery.Selection, rec models.Record) {
	if _, ok := rec["brand"]; !ok {
		scanNodes(root, func(s *goquery.Selection) bool {
			if v := strings.TrimSpace(s.AttrOr("data-brand", "")); v != "" {
				rec["brand"] = v
				return true
			}
			if !classOrIDContains(s, "brand") {
				return false
			}
			if text := cleanText(s); text != "" && len(text) <= 100 {
				rec["brand"] = text
				return true
			}
			return false
		})
	}
	if _, ok := rec["sku"]; !ok {
		scanNodes(root, func(s *goquery.Selection) bool {
			if v := strings.TrimSpace(s.AttrOr("data-sku", "")); v != "" {
				rec["sku"] = v
				return true
			}
			if !classOrIDContains(s, "sku") {
				return false
			}
			if text := cleanText(s); text != "" && len(text) <= 100 {
				rec["sku"] = text
				return true
			}
			return false
		})
	}
}

// opportunisticFields stores short text of span/div descendants under a key
// derived from their first usable class token, skipping layout utilities and
// anything already on the record.
func opportunisticFields(root *goquery.Selection, rec models.Record) {
	root.Find("span, div").Each(func(_ int, s *goquery.Selection) {
		for _, token := range strings.Fields(s.AttrOr("class", "")) {
			if layoutUtility(token) {
				continue
			}
			key := sanitizeFieldKey(token)
			if key == "" {
				continue
			}
			if _, known := recognizedFields[key]; known {
				continue
			}
			if _, present := rec[key]; present {
				continue
			}
			text := cleanText(s)
			if text == "" {
				continue
			}
			if numericPattern.MatchString(text) {
				if value, err := parseNumeric(text); err == nil {
					rec[key] = value
					return
				}
			}
			rec[key] = truncate(text, 100)
			return
		}
	})
}

func layoutUtility(token string) bool {
	lower := strings.ToLower(token)
	for _, prefix := range layoutPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

var fieldKeyCleaner = regexp.MustCompile(`[^a-z0-9]+`)

func sanitizeFieldKey(token string) string {
	key := fieldKeyCleaner.ReplaceAllString(strings.ToLower(token), "_")
	return strings.Trim(key, "_")
}

func parseNumeric(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	// a single comma followed by one or two digits reads as a decimal
	// separator ("19,99"); any other comma layout is a thousands separator
	if i := strings.LastIndex(raw, ","); i >= 0 &&
		strings.Count(raw, ",") == 1 &&
		len(raw)-i-1 >= 1 && len(raw)-i-1 <= 2 &&
		!strings.Contains(raw[i+1:], ".") {
		raw = strings.ReplaceAll(raw[:i], ".", "") + "." + raw[i+1:]
	} else {
		raw = strings.ReplaceAll(raw, ",", "")
	}
	return strconv.ParseFloat(raw, 64)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
