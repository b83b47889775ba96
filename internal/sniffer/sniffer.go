package sniffer

import (
	"context"
	"errors"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/cerberus-dl/cerberus/internal/apperrors"
	"github.com/cerberus-dl/cerberus/internal/config"
	"github.com/cerberus-dl/cerberus/internal/metafetch"
	"github.com/cerberus-dl/cerberus/internal/models"
)

// Sniffer extracts media items from pages the library engine does not
// recognize, by watching what the page actually loads.
type Sniffer struct {
	driver BrowserDriver
	window time.Duration
}

// New creates a sniffer with the given browser driver and capture window.
func New(driver BrowserDriver, window time.Duration) *Sniffer {
	return &Sniffer{driver: driver, window: window}
}

// Extract implements the engine Extractor interface. Items are ordered by the
// time their media URL was first observed.
func (s *Sniffer) Extract(ctx context.Context, task models.URLTask) (*models.Session, error) {
	logger := config.GetLogger()
	logger.Info().
		Str("url", task.SourceURL).
		Dur("window", s.window).
		Msg("Extracting via network sniffer")

	traffic, err := s.driver.NavigateAndCapture(ctx, task.SourceURL, s.window)
	if err != nil {
		if errors.Is(err, &apperrors.ErrBrowserLaunch{}) {
			return nil, err
		}
		return nil, apperrors.NewNetworkError(task.SourceURL, err)
	}

	candidates := mediaCandidates(traffic.Responses)
	if len(candidates) == 0 {
		return nil, apperrors.NewExtractionTimeoutError(task.SourceURL, s.window.Seconds())
	}

	meta := pageMetaFromHTML(traffic.PageHTML, task.SourceURL)

	session := models.NewSession(task.SourceURL)
	for _, c := range candidates {
		session.AddItem(&models.MediaItem{
			Title:     meta.Title,
			DirectURL: c.url,
			Ext:       c.ext,
			Platform:  meta.Platform,
			Artist:    meta.Artist,
			Genre:     meta.Genre,
			AvailableQualities: []models.QualityVariant{
				{Label: "default", URL: c.url, Ext: c.ext},
			},
		})
	}

	logger.Info().
		Str("url", task.SourceURL).
		Int("responses", len(traffic.Responses)).
		Int("items", len(session.Items)).
		Msg("Sniffer extraction complete")
	return session, nil
}

func pageMetaFromHTML(html, pageURL string) *metafetch.PageMeta {
	meta, err := metafetch.ParsePageMeta(strings.NewReader(html))
	if err != nil {
		meta = &metafetch.PageMeta{
			Title:    models.UnknownMetadata,
			Platform: models.UnknownMetadata,
			Artist:   models.UnknownMetadata,
			Genre:    models.UnknownMetadata,
		}
	}
	if meta.Platform == models.UnknownMetadata {
		meta.Platform = metafetch.PlatformFromURL(pageURL)
	}
	return meta
}

// candidate is one qualifying media URL with its observation time.
type candidate struct {
	url        string
	ext        string
	observedAt time.Time
}

// cacheBusterParams are query parameters that only defeat caches; they are
// stripped before URLs are compared for deduplication.
var cacheBusterParams = map[string]struct{}{
	"_":           {},
	"cb":          {},
	"cache":       {},
	"cachebuster": {},
	"nocache":     {},
	"rand":        {},
	"random":      {},
	"ts":          {},
}

// mediaCandidates filters captured responses down to downloadable media:
// video content types and known media suffixes. HLS ".ts" segments collapse
// into their manifest; repeated fetches of the same canonical URL collapse to
// the first observation. The result is ordered by first-observed time.
func mediaCandidates(responses []CapturedResponse) []candidate {
	logger := config.GetLogger()

	manifests := make(map[string]struct{})
	byCanonical := make(map[string]candidate)

	for _, resp := range responses {
		canonical, suffix := canonicalize(resp.URL)
		if canonical == "" {
			continue
		}

		if suffix == ".ts" {
			// Segments belong to an HLS manifest that was (or will be)
			// captured on its own; they are never downloadable items.
			if _, seen := manifests[segmentPrefix(canonical)]; !seen {
				logger.Debug().Str("url", resp.URL).Msg("Dropping orphan HLS segment")
			}
			continue
		}

		ext, ok := mediaExt(suffix, resp.MimeType)
		if !ok {
			continue
		}
		if suffix == ".m3u8" {
			manifests[segmentPrefix(canonical)] = struct{}{}
		}

		// Signed media URLs can be sensitive to parameter order, so the
		// first-observed raw URL is what gets downloaded; the canonical
		// form only collapses duplicates.
		if existing, dup := byCanonical[canonical]; dup {
			if resp.ObservedAt.Before(existing.observedAt) {
				existing.observedAt = resp.ObservedAt
				existing.url = resp.URL
				byCanonical[canonical] = existing
			}
			continue
		}
		byCanonical[canonical] = candidate{url: resp.URL, ext: ext, observedAt: resp.ObservedAt}
	}

	candidates := make([]candidate, 0, len(byCanonical))
	for _, c := range byCanonical {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].observedAt.Before(candidates[j].observedAt)
	})
	return candidates
}

// canonicalize strips the fragment and cache-busting query parameters and
// returns the cleaned URL plus its lowercase path suffix.
func canonicalize(rawURL string) (string, string) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", ""
	}
	parsed.Fragment = ""

	query := parsed.Query()
	for param := range query {
		if _, busting := cacheBusterParams[strings.ToLower(param)]; busting {
			query.Del(param)
		}
	}
	parsed.RawQuery = query.Encode()

	return parsed.String(), strings.ToLower(path.Ext(parsed.Path))
}

// mediaExt reports whether a response qualifies as media and which file
// extension its download should carry.
func mediaExt(suffix, mimeType string) (string, bool) {
	switch suffix {
	case ".mp4":
		return "mp4", true
	case ".m3u8":
		return "m3u8", true
	case ".wav":
		return "wav", true
	}
	mime := strings.ToLower(mimeType)
	if strings.HasPrefix(mime, "video/") {
		sub := strings.TrimPrefix(mime, "video/")
		if idx := strings.Index(sub, ";"); idx >= 0 {
			sub = sub[:idx]
		}
		switch sub {
		case "mp4", "webm", "ogg":
			return sub, true
		case "mp2t":
			// Raw transport stream served without a .ts suffix.
			return "", false
		default:
			return "mp4", true
		}
	}
	return "", false
}

// segmentPrefix keys a manifest by its directory, the natural grouping for
// the segments that belong to it.
func segmentPrefix(canonical string) string {
	if idx := strings.LastIndex(canonical, "/"); idx > 0 {
		return canonical[:idx]
	}
	return canonical
}
