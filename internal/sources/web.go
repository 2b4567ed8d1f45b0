package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/textaudit/collector/internal/models"
	"github.com/textaudit/collector/internal/shared"
	"golang.org/x/time/rate"
)

const (
	// defaultWebMaxItems caps a crawl when the config does not set one.
	defaultWebMaxItems = 100
	// defaultCrawlWorkers fetches linked pages concurrently.
	defaultCrawlWorkers = 4
	// maxFollowedLinks bounds the one-level link crawl from the root page.
	maxFollowedLinks = 25
)

// defaultSelectors extract readable text when the config does not override them.
var defaultSelectors = []string{"article", "p", "h1", "h2", "h3", "blockquote", "li"}

// Extensions that never contain extractable text.
var skippedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
	".css": true, ".js": true, ".pdf": true, ".zip": true, ".ico": true,
}

// WebSource collects text from web pages via CSS selectors.
//
// The root page is always extracted; when the follow_links option is "true",
// same-host links found on the root page are fetched one level deep by a
// small worker pool.
type WebSource struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewWebSource creates a WebSource with the given HTTP client and request rate.
func NewWebSource(client *http.Client, requestsPerSecond float64, userAgent string) *WebSource {
	if client == nil {
		client = http.DefaultClient
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &WebSource{
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		userAgent: userAgent,
	}
}

func (s *WebSource) Kind() models.SourceKind { return models.SourceKindWeb }

// Collect crawls src.Locator and emits filtered text fragments on out.
func (s *WebSource) Collect(ctx context.Context, src models.Source, config models.CollectionConfig, out chan<- models.RawItem) error {
	maxItems := config.MaxItems
	if maxItems <= 0 {
		maxItems = defaultWebMaxItems
	}

	base, err := url.Parse(src.Locator)
	if err != nil {
		return fmt.Errorf("%w: invalid URL %s: %v", shared.ErrAdapterFailure, src.Locator, err)
	}

	selectors := defaultSelectors
	if raw := config.Options["selectors"]; raw != "" {
		selectors = strings.Split(raw, ",")
	}

	doc, err := s.fetchDocument(ctx, src.Locator)
	if err != nil {
		return err
	}

	tag := "web:" + base.Host
	count := 0
	for _, text := range extractTexts(doc, selectors) {
		if count >= maxItems {
			return nil
		}
		if !keepContent(text, config.Filters) {
			continue
		}
		item := models.NewRawItem(shared.GenerateID(), text, tag)
		item.Metadata = map[string]string{"url": src.Locator}
		if err := push(ctx, out, item); err != nil {
			return err
		}
		count++
	}

	if config.Options["follow_links"] != "true" || count >= maxItems {
		return nil
	}

	return s.crawlLinks(ctx, base, doc, selectors, config, tag, maxItems, &count, out)
}

// crawlLinks fetches same-host links from the root page with a worker pool
// and pushes their extracted text until maxItems is reached.
func (s *WebSource) crawlLinks(ctx context.Context, base *url.URL, doc *goquery.Document, selectors []string, config models.CollectionConfig, tag string, maxItems int, count *int, out chan<- models.RawItem) error {
	links := sameHostLinks(doc, base, maxFollowedLinks)
	if len(links) == 0 {
		return nil
	}

	workers := config.ConcurrentWorkers
	if workers <= 0 {
		workers = defaultCrawlWorkers
	}
	if workers > len(links) {
		workers = len(links)
	}

	crawlCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type pageTexts struct {
		url   string
		texts []string
	}

	jobs := make(chan string, len(links))
	results := make(chan pageTexts, len(links))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for link := range jobs {
				select {
				case <-crawlCtx.Done():
					return
				default:
				}
				// Failed pages are skipped, not fatal for the crawl.
				page, err := s.fetchDocument(crawlCtx, link)
				if err != nil {
					continue
				}
				results <- pageTexts{url: link, texts: extractTexts(page, selectors)}
			}
		}()
	}

	for _, link := range links {
		jobs <- link
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for page := range results {
		for _, text := range page.texts {
			if *count >= maxItems {
				cancel()
				continue
			}
			if !keepContent(text, config.Filters) {
				continue
			}
			item := models.NewRawItem(shared.GenerateID(), text, tag)
			item.Metadata = map[string]string{"url": page.url}
			if err := push(ctx, out, item); err != nil {
				cancel()
				for range results {
				}
				return err
			}
			*count++
		}
	}

	return nil
}

// fetchDocument GETs a page and parses it with goquery.
func (s *WebSource) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: bad request for %s: %v", shared.ErrAdapterFailure, pageURL, err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrAdapterFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", shared.ErrAdapterFailure, resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse failed: %v", shared.ErrAdapterFailure, err)
	}
	return doc, nil
}

// extractTexts pulls trimmed text for each selector match in document order.
func extractTexts(doc *goquery.Document, selectors []string) []string {
	var texts []string
	seen := make(map[string]bool)
	for _, selector := range selectors {
		doc.Find(strings.TrimSpace(selector)).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if text == "" || seen[text] {
				return
			}
			seen[text] = true
			texts = append(texts, text)
		})
	}
	return texts
}

// sameHostLinks collects up to limit absolute same-host links from anchors.
func sameHostLinks(doc *goquery.Document, base *url.URL, limit int) []string {
	var links []string
	seen := map[string]bool{base.String(): true}

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return true
		}

		resolved, err := base.Parse(href)
		if err != nil || resolved.Host != base.Host {
			return true
		}
		resolved.Fragment = ""

		if skippedExtensions[strings.ToLower(path.Ext(resolved.Path))] {
			return true
		}

		link := resolved.String()
		if seen[link] {
			return true
		}
		seen[link] = true
		links = append(links, link)

		return len(links) < limit
	})

	return links
}
