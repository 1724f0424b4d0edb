package refdata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// Builder scrapes the species index and per-species pages to produce the
// image and link databases the Provider serves. It is the only component
// that fetches concurrently; the fact pipeline itself stays sequential.
type Builder struct {
	httpClient  *http.Client
	indexURL    string
	concurrency int
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithHTTPClient overrides the HTTP client used for scraping.
func WithHTTPClient(c *http.Client) BuilderOption {
	return func(b *Builder) { b.httpClient = c }
}

// WithConcurrency caps the number of in-flight page fetches.
func WithConcurrency(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBuilder creates a Builder scraping from the given species index URL.
func NewBuilder(indexURL string, opts ...BuilderOption) *Builder {
	b := &Builder{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		indexURL:    indexURL,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SpeciesLinks scrapes the species index page and returns common name to
// species page URL for every species anchor found.
func (b *Builder) SpeciesLinks(ctx context.Context) (map[string]string, error) {
	doc, err := b.fetchHTML(ctx, b.indexURL)
	if err != nil {
		return nil, eris.Wrap(err, "refdata: fetch species index")
	}

	base := baseOf(b.indexURL)
	links := make(map[string]string)
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "a" {
			return
		}
		href := attr(n, "href")
		if !strings.Contains(href, "/species/") {
			return
		}
		name := commonName(n)
		if name == "" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = base + href
		}
		links[name] = href
	})

	if len(links) == 0 {
		return nil, eris.New("refdata: no species links found in index page")
	}
	return links, nil
}

// ImageURL scrapes a species page for its lead image and returns the
// higher-resolution variant of the thumbnail URL. An empty string with a
// nil error means the page has no usable image.
func (b *Builder) ImageURL(ctx context.Context, pageURL string) (string, error) {
	doc, err := b.fetchHTML(ctx, pageURL)
	if err != nil {
		return "", eris.Wrapf(err, "refdata: fetch species page %s", pageURL)
	}

	var src string
	walk(doc, func(n *html.Node) {
		if src != "" || n.Type != html.ElementNode || n.Data != "img" {
			return
		}
		if s := attr(n, "src"); strings.Contains(s, "320") {
			src = s
		}
	})
	if src == "" {
		return "", nil
	}
	return strings.ReplaceAll(src, "320", "480"), nil
}

// Build resolves an image URL for every species link, skipping species
// already present in existing. Fetches run concurrently under the
// builder's limit. Per-species failures are logged and skipped.
func (b *Builder) Build(ctx context.Context, links map[string]string, existing map[string]string) (map[string]string, error) {
	images := make(map[string]string, len(links))
	for name, url := range existing {
		images[name] = url
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for name, pageURL := range links {
		if _, ok := images[name]; ok {
			continue
		}
		g.Go(func() error {
			imgURL, err := b.ImageURL(gctx, pageURL)
			if err != nil {
				zap.L().Warn("image scrape failed",
					zap.String("species", name),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			images[name] = imgURL
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "refdata: build image db")
	}
	return images, nil
}

// WriteJSON persists a database map as indented JSON, creating parent
// directories as needed.
func WriteJSON(path string, db map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "refdata: create dir for %s", path)
	}
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return eris.Wrap(err, "refdata: marshal db")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "refdata: write %s", path)
	}
	return nil
}

func (b *Builder) fetchHTML(ctx context.Context, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, eris.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "parse html")
	}
	return doc, nil
}

// commonName extracts the species common name from an index anchor: the
// anchor text minus any scientific-name span.
func commonName(a *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "span" &&
			strings.Contains(attr(n, "class"), "sci") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(a)
	return strings.TrimSpace(sb.String())
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func baseOf(rawURL string) string {
	rest := rawURL
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			return rawURL[:len(rawURL)-len(rest)+j]
		}
	}
	return rawURL
}
