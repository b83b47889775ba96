package metafetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/cerberus-dl/cerberus/internal/config"
	"github.com/cerberus-dl/cerberus/internal/models"
)

// metaCacheSize bounds the page-metadata cache; entries expire after an hour.
const metaCacheSize = 100

// Fetcher retrieves page metadata over HTTP, best-effort. Results are cached
// per URL so a page is fetched at most once per run, and transient fetch
// failures are retried with backoff before giving up.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	retry      retrypolicy.RetryPolicy[*http.Response]
	cache      *lru.LRU[string, *PageMeta]
}

// NewFetcher creates a metadata fetcher using the shared HTTP client.
func NewFetcher(settings *config.Settings, httpClient *http.Client) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		userAgent:  settings.UserAgent,
		retry: retrypolicy.Builder[*http.Response]().
			WithBackoff(500*time.Millisecond, 4*time.Second).
			WithMaxRetries(2).
			Build(),
		cache: lru.NewLRU[string, *PageMeta](metaCacheSize, nil, time.Hour),
	}
}

// PageMeta fetches and parses the page's meta tags. It never fails: on any
// error the remaining fields default to Unknown and the platform falls back
// to the domain name, matching the sorter's bucketing expectations.
func (f *Fetcher) PageMeta(ctx context.Context, pageURL string) *PageMeta {
	logger := config.GetLogger()

	if cached, found := f.cache.Get(pageURL); found {
		logger.Debug().Str("url", pageURL).Msg("Page metadata served from cache")
		return cached
	}

	meta, err := f.fetch(ctx, pageURL)
	if err != nil {
		logger.Warn().Err(err).Str("url", pageURL).Msg("Page metadata fetch failed, using defaults")
		meta = &PageMeta{
			Title:    models.UnknownMetadata,
			Platform: models.UnknownMetadata,
			Artist:   models.UnknownMetadata,
			Genre:    models.UnknownMetadata,
		}
	}
	if meta.Platform == models.UnknownMetadata {
		meta.Platform = PlatformFromURL(pageURL)
	}

	f.cache.Add(pageURL, meta)
	return meta
}

func (f *Fetcher) fetch(ctx context.Context, pageURL string) (*PageMeta, error) {
	resp, err := failsafe.Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return resp, nil
	}, f.retry)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return ParsePageMeta(resp.Body)
}
