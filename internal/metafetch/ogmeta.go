package metafetch

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/cerberus-dl/cerberus/internal/models"
)

// PageMeta holds the best-effort metadata parsed from a page's meta tags.
// Fields the page does not declare carry the Unknown sentinel, never "".
type PageMeta struct {
	Title    string
	Platform string
	Artist   string
	Genre    string
}

// ParsePageMeta extracts Open Graph and classic meta tags from an HTML
// document. The reader may be in any charset; it is normalized to UTF-8
// before parsing.
func ParsePageMeta(body io.Reader) (*PageMeta, error) {
	utf8Body, err := charset.NewReader(body, "")
	if err != nil {
		return nil, fmt.Errorf("failed to normalize page charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	meta := &PageMeta{
		Title:    models.UnknownMetadata,
		Platform: models.UnknownMetadata,
		Artist:   models.UnknownMetadata,
		Genre:    models.UnknownMetadata,
	}

	if title := metaContent(doc, `meta[property="og:title"]`); title != "" {
		meta.Title = title
	} else if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		meta.Title = title
	}
	if site := metaContent(doc, `meta[property="og:site_name"]`); site != "" {
		meta.Platform = site
	}
	if author := metaContent(doc, `meta[name="author"]`); author != "" {
		meta.Artist = author
	}
	if genre := metaContent(doc, `meta[name="genre"]`); genre != "" {
		meta.Genre = genre
	}
	return meta, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// PlatformFromURL falls back to the second-level domain name when a page
// declares no og:site_name, mirroring how humans name "the site".
func PlatformFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return models.UnknownMetadata
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	if idx := strings.Index(host, "."); idx > 0 {
		host = host[:idx]
	}
	if host == "" {
		return models.UnknownMetadata
	}
	return host
}
