package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/textaudit/collector/internal/models"
	"github.com/textaudit/collector/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// defaultAPIMaxItems caps an API run when the config does not set one.
const defaultAPIMaxItems = 1000

// APISource collects text from paginated JSON HTTP APIs.
//
// Each page is a {"data": [...], "has_more": bool, "next_url": string}
// envelope or a bare JSON array. Requests are rate limited; an OAuth2
// client-credentials token source is wired in when the config options carry
// client_id, client_secret and token_url.
type APISource struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewAPISource creates an APISource with the given HTTP client and request rate.
func NewAPISource(client *http.Client, requestsPerSecond float64, userAgent string) *APISource {
	if client == nil {
		client = http.DefaultClient
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &APISource{
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		userAgent: userAgent,
	}
}

func (s *APISource) Kind() models.SourceKind { return models.SourceKindAPI }

// apiPage is one page of an API response.
type apiPage struct {
	Data    []json.RawMessage `json:"data"`
	HasMore bool              `json:"has_more"`
	NextURL string            `json:"next_url"`
}

// Collect pages through the API at src.Locator and emits filtered items on out.
func (s *APISource) Collect(ctx context.Context, src models.Source, config models.CollectionConfig, out chan<- models.RawItem) error {
	maxItems := config.MaxItems
	if maxItems <= 0 {
		maxItems = defaultAPIMaxItems
	}

	limiter := s.limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	client := s.client
	if cc := clientCredentials(config.Options); cc != nil {
		client = cc.Client(ctx)
	}

	base, err := url.Parse(src.Locator)
	if err != nil {
		return fmt.Errorf("%w: invalid URL %s: %v", shared.ErrAdapterFailure, src.Locator, err)
	}
	tag := "api:" + base.Host

	currentURL := src.Locator
	pageNum := 1
	count := 0

	for currentURL != "" && count < maxItems {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		page, err := s.fetchPage(ctx, client, currentURL)
		if err != nil {
			return err
		}

		for _, entry := range page.Data {
			if count >= maxItems {
				return nil
			}
			content, ok := textFromJSON(entry, config.Options["text_column"])
			if !ok || !keepContent(content, config.Filters) {
				continue
			}
			item := models.NewRawItem(shared.GenerateID(), strings.TrimSpace(content), tag)
			item.Metadata = map[string]string{"page": strconv.Itoa(pageNum)}
			if err := push(ctx, out, item); err != nil {
				return err
			}
			count++
		}

		currentURL = nextPageURL(base, page, config.Options, pageNum)
		pageNum++
	}

	return nil
}

// fetchPage performs one GET and decodes the page envelope.
func (s *APISource) fetchPage(ctx context.Context, client *http.Client, pageURL string) (*apiPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: bad request for %s: %v", shared.ErrAdapterFailure, pageURL, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrAdapterFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", shared.ErrAdapterFailure, resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read failed: %v", shared.ErrAdapterFailure, err)
	}

	var page apiPage
	if err := json.Unmarshal(body, &page); err == nil && page.Data != nil {
		return &page, nil
	}

	// Fallback: a bare JSON array with no pagination envelope.
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: unrecognised response shape: %v", shared.ErrAdapterFailure, err)
	}
	return &apiPage{Data: entries}, nil
}

// nextPageURL resolves the URL for the following page, or "" when done.
//
// next_url from the response wins; has_more with a configured page_param
// builds the next page by query parameter.
func nextPageURL(base *url.URL, page *apiPage, options map[string]string, pageNum int) string {
	if page.NextURL != "" {
		next, err := base.Parse(page.NextURL)
		if err != nil {
			return ""
		}
		return next.String()
	}

	param := options["page_param"]
	if !page.HasMore || param == "" {
		return ""
	}

	next := *base
	q := next.Query()
	q.Set(param, strconv.Itoa(pageNum+1))
	next.RawQuery = q.Encode()
	return next.String()
}

// clientCredentials builds an OAuth2 client-credentials config from options.
func clientCredentials(options map[string]string) *clientcredentials.Config {
	id := options["client_id"]
	secret := options["client_secret"]
	tokenURL := options["token_url"]
	if id == "" || secret == "" || tokenURL == "" {
		return nil
	}
	cc := &clientcredentials.Config{
		ClientID:     id,
		ClientSecret: secret,
		TokenURL:     tokenURL,
	}
	if scopes := options["scopes"]; scopes != "" {
		cc.Scopes = strings.Split(scopes, ",")
	}
	return cc
}
