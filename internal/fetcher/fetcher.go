package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/pagelens/pagelens/internal/ratelimit"
)

// ErrorKind classifies transport failures.
type ErrorKind string

const (
	KindHTTPStatus   ErrorKind = "http_status"
	KindNoResponse   ErrorKind = "no_response"
	KindMalformedURL ErrorKind = "malformed_url"
)

// FetchError is the only error type Fetch returns.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	URL        string
	cause      error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("failed to fetch website: HTTP status %d", e.StatusCode)
	case KindMalformedURL:
		return fmt.Sprintf("failed to fetch website: malformed URL %q", e.URL)
	default:
		return "failed to fetch website: no response received"
	}
}

func (e *FetchError) Unwrap() error { return e.cause }

const maxRedirects = 5

// Options configures a Fetcher. Zero values fall back to sane defaults.
type Options struct {
	Timeout        time.Duration
	UserAgent      string
	AcceptLanguage string
	Limiter        ratelimit.Limiter
}

// Fetcher retrieves raw HTML for a target address. It performs exactly one
// attempt per call; retries, if any, belong to the caller.
type Fetcher struct {
	client         *http.Client
	userAgent      string
	acceptLanguage string
	limiter        ratelimit.Limiter
	logger         *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	lang := opts.AcceptLanguage
	if lang == "" {
		lang = "en-US,en;q=0.9"
	}

	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Fetcher{
		client:         client,
		userAgent:      ua,
		acceptLanguage: lang,
		limiter:        opts.Limiter,
		logger:         logger.With("component", "fetcher"),
	}
}

// NormalizeURL prepends https:// when the address carries no scheme.
func NormalizeURL(address string) string {
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		return "https://" + address
	}
	return address
}

// Fetch retrieves the raw HTML of the page at address. The body is decoded
// to UTF-8 based on the response Content-Type.
func (f *Fetcher) Fetch(ctx context.Context, address string) (string, error) {
	target := NormalizeURL(address)

	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return "", &FetchError{Kind: KindMalformedURL, URL: address, cause: err}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", &FetchError{Kind: KindNoResponse, URL: target, cause: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", &FetchError{Kind: KindMalformedURL, URL: address, cause: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", f.acceptLanguage)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("fetch failed", "url", target, "error", err)
		return "", &FetchError{Kind: KindNoResponse, URL: target, cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		f.logger.Warn("fetch returned error status", "url", target, "status", resp.StatusCode)
		return "", &FetchError{Kind: KindHTTPStatus, StatusCode: resp.StatusCode, URL: target}
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		reader = resp.Body
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", &FetchError{Kind: KindNoResponse, URL: target, cause: err}
	}

	f.logger.Debug("fetched page", "url", target, "bytes", len(body))
	return string(body), nil
}
