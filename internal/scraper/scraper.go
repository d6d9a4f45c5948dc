package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	ErrNoDocument      = errors.New("document could not be parsed")
	ErrInvalidSelector = errors.New("invalid selector")
)

// ParseError reports that the primary catalog builder could not process the
// document, usually because markup produced selector tokens that are not
// valid query syntax. Callers recover by switching to the basic parser; it is
// never surfaced to API clients.
type ParseError struct {
	Token string
	cause error
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("parse failed on token %q: %v", e.Token, e.cause)
	}
	return fmt.Sprintf("parse failed: %v", e.cause)
}

func (e *ParseError) Unwrap() error { return e.cause }

// PageFetcher retrieves raw HTML for an address. Implemented by
// fetcher.Fetcher; tests substitute stubs.
type PageFetcher interface {
	Fetch(ctx context.Context, address string) (string, error)
}

// Profile names a description extraction policy.
type Profile string

const (
	// ProfileProduct keeps descriptions with length in (10, 500), untruncated.
	ProfileProduct Profile = "product"
	// ProfileArticle keeps descriptions longer than 20 characters, truncated
	// to 200 with an ellipsis.
	ProfileArticle Profile = "article"
)

type descriptionPolicy struct {
	minLen     int
	maxLen     int // 0 means unbounded
	truncateAt int // 0 means no truncation
}

func (p Profile) policy() descriptionPolicy {
	if p == ProfileArticle {
		return descriptionPolicy{minLen: 20, truncateAt: 200}
	}
	return descriptionPolicy{minLen: 10, maxLen: 500}
}

// reservedDataAttr is internal bookkeeping and never exposed in output.
const reservedDataAttr = "data-pagelens-id"

var whitespaceRe = regexp.MustCompile(`\s+`)

// cleanText flattens a selection's text: trimmed, whitespace collapsed.
func cleanText(s *goquery.Selection) string {
	return collapse(s.Text())
}

func collapse(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// truncate shortens text to limit runes, appending an ellipsis marker.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// ownText returns the text of a node's direct text children only, so a
// parent's match does not shadow the descendant that actually holds a value.
func ownText(s *goquery.Selection) string {
	if len(s.Nodes) == 0 {
		return ""
	}
	var b strings.Builder
	for c := s.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return collapse(b.String())
}

// whitelistedAttributes keeps only export-safe attributes of the element
// itself: href, src, alt, title, aria-label and data-* keys.
func whitelistedAttributes(s *goquery.Selection) map[string]string {
	if len(s.Nodes) == 0 {
		return nil
	}
	attrs := make(map[string]string)
	for _, a := range s.Nodes[0].Attr {
		if a.Val == "" || a.Key == reservedDataAttr {
			continue
		}
		switch a.Key {
		case "href", "src", "alt", "title", "aria-label":
			attrs[a.Key] = a.Val
		default:
			if strings.HasPrefix(a.Key, "data-") {
				attrs[a.Key] = a.Val
			}
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// resolveRef resolves ref against base, returning ref unchanged when it is
// already absolute or cannot be parsed.
func resolveRef(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == nil || ref == "" {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func classAndID(s *goquery.Selection) string {
	return strings.ToLower(s.AttrOr("class", "") + " " + s.AttrOr("id", ""))
}

func classOrIDContains(s *goquery.Selection, keywords ...string) bool {
	haystack := classAndID(s)
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
