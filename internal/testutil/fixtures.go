package testutil

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cerberus-dl/cerberus/internal/sniffer"
)

// MediaPageOptions describes the metadata embedded in a generated page.
type MediaPageOptions struct {
	OGTitle   string // og:title meta property
	HeadTitle string // <title> element
	SiteName  string // og:site_name meta property
	Author    string // author meta tag
	Genre     string // genre meta tag
	Charset   string // defaults to utf-8
	BodyHTML  string
}

// GenerateMediaPageHTML builds a page with the Open Graph and meta tags real
// video hosts expose.
func GenerateMediaPageHTML(opts MediaPageOptions) string {
	var sb strings.Builder

	charset := opts.Charset
	if charset == "" {
		charset = "utf-8"
	}

	sb.WriteString("<html>\n<head>\n")
	fmt.Fprintf(&sb, "<meta charset=%q>\n", charset)
	if opts.HeadTitle != "" {
		fmt.Fprintf(&sb, "<title>%s</title>\n", opts.HeadTitle)
	}
	if opts.OGTitle != "" {
		fmt.Fprintf(&sb, "<meta property=\"og:title\" content=%q>\n", opts.OGTitle)
	}
	if opts.SiteName != "" {
		fmt.Fprintf(&sb, "<meta property=\"og:site_name\" content=%q>\n", opts.SiteName)
	}
	if opts.Author != "" {
		fmt.Fprintf(&sb, "<meta name=\"author\" content=%q>\n", opts.Author)
	}
	if opts.Genre != "" {
		fmt.Fprintf(&sb, "<meta name=\"genre\" content=%q>\n", opts.Genre)
	}
	sb.WriteString("</head>\n<body>")
	sb.WriteString(opts.BodyHTML)
	sb.WriteString("</body>\n</html>")

	return sb.String()
}

// GenerateEmptyHTML returns a minimal document with no usable metadata.
func GenerateEmptyHTML() string {
	return `<html><head></head><body></body></html>`
}

// CapturedAt spaces fixture responses one second apart so observation order
// is unambiguous.
func CapturedAt(offset int) time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Second)
}

// Response builds one captured network response for a fixture traffic log.
func Response(url, mimeType string, offset int) sniffer.CapturedResponse {
	return sniffer.CapturedResponse{
		URL:        url,
		MimeType:   mimeType,
		ObservedAt: CapturedAt(offset),
	}
}

// FakeBrowserDriver replays a canned traffic log instead of launching a
// browser.
type FakeBrowserDriver struct {
	Traffic *sniffer.TrafficLog
	Err     error

	// Calls records every page URL the driver was asked to visit.
	Calls []string
}

// NavigateAndCapture implements the sniffer.BrowserDriver interface.
func (d *FakeBrowserDriver) NavigateAndCapture(_ context.Context, pageURL string, _ time.Duration) (*sniffer.TrafficLog, error) {
	d.Calls = append(d.Calls, pageURL)
	if d.Err != nil {
		return nil, d.Err
	}
	traffic := *d.Traffic
	traffic.PageURL = pageURL
	return &traffic, nil
}
