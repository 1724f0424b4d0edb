// Package fetch retrieves web pages and reduces them to clean plain text
// for prompt assembly. Fetch failures (transport errors, non-2xx status,
// pages with no extractable content) come back as error values; the
// caller skips the URL and moves on.
package fetch

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Fetcher returns normalized plain text for a URL.
type Fetcher interface {
	Text(ctx context.Context, url string) (string, error)
}

// Options configures the HTTP fetcher.
type Options struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	// RequestsPerSec throttles outbound page fetches. Zero disables
	// throttling.
	RequestsPerSec float64
	UserAgents     []string
}

// defaultUserAgents is a small desktop-browser rotation. Some bird sites
// refuse the Go default agent outright.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
}

// HTTPFetcher implements Fetcher over net/http.
type HTTPFetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgents []string
	maxBytes   int64
}

// NewHTTPFetcher creates a fetcher with the given options.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	maxBytes := opts.MaxBodyBytes
	if maxBytes == 0 {
		maxBytes = 4 << 20
	}
	agents := opts.UserAgents
	if len(agents) == 0 {
		agents = defaultUserAgents
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1)
	}

	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return eris.New("stopped after 5 redirects")
				}
				return nil
			},
		},
		limiter:    limiter,
		userAgents: agents,
		maxBytes:   maxBytes,
	}
}

// Text fetches the URL and returns cleaned plain text.
func (f *HTTPFetcher) Text(ctx context.Context, url string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "fetch: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.userAgents[rand.IntN(len(f.userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: get %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", eris.Errorf("fetch: %s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", eris.Wrapf(err, "fetch: read %s", url)
	}

	text := CleanHTML(string(body))
	if text == "" {
		return "", eris.Errorf("fetch: no extractable content at %s", url)
	}
	return text, nil
}
