package metafetch

import (
	"strings"
	"testing"

	"github.com/cerberus-dl/cerberus/internal/models"
)

func TestParsePageMeta(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		html string
		want PageMeta
	}{
		{
			name: "full open graph tags",
			html: `<html><head>
				<title>Fallback Title</title>
				<meta property="og:title" content="Real Title">
				<meta property="og:site_name" content="VideoHub">
				<meta name="author" content="Some Artist">
				<meta name="genre" content="Electronic">
			</head><body></body></html>`,
			want: PageMeta{Title: "Real Title", Platform: "VideoHub", Artist: "Some Artist", Genre: "Electronic"},
		},
		{
			name: "title element fallback",
			html: `<html><head><title> Plain Page </title></head><body></body></html>`,
			want: PageMeta{
				Title:    "Plain Page",
				Platform: models.UnknownMetadata,
				Artist:   models.UnknownMetadata,
				Genre:    models.UnknownMetadata,
			},
		},
		{
			name: "empty document",
			html: `<html><head></head><body></body></html>`,
			want: PageMeta{
				Title:    models.UnknownMetadata,
				Platform: models.UnknownMetadata,
				Artist:   models.UnknownMetadata,
				Genre:    models.UnknownMetadata,
			},
		},
		{
			name: "whitespace-only content treated as missing",
			html: `<html><head><meta property="og:title" content="   "></head><body></body></html>`,
			want: PageMeta{
				Title:    models.UnknownMetadata,
				Platform: models.UnknownMetadata,
				Artist:   models.UnknownMetadata,
				Genre:    models.UnknownMetadata,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParsePageMeta(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("ParsePageMeta() unexpected error: %v", err)
			}
			if *got != tt.want {
				t.Errorf("ParsePageMeta() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestParsePageMetaCharset(t *testing.T) {
	t.Parallel()
	// ISO-8859-1 encoded title with an accented character.
	html := "<html><head>" +
		`<meta http-equiv="Content-Type" content="text/html; charset=iso-8859-1">` +
		"<title>Caf\xe9 Session</title></head><body></body></html>"

	got, err := ParsePageMeta(strings.NewReader(html))
	if err != nil {
		t.Fatalf("ParsePageMeta() unexpected error: %v", err)
	}
	if got.Title != "Café Session" {
		t.Errorf("Title = %q, want %q", got.Title, "Café Session")
	}
}

func TestPlatformFromURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		rawURL string
		want   string
	}{
		{name: "plain domain", rawURL: "https://example.com/watch/1", want: "example"},
		{name: "www stripped", rawURL: "https://www.newgrounds.com/portal/view/1", want: "newgrounds"},
		{name: "subdomain kept as name", rawURL: "https://video.example.co.uk/x", want: "video"},
		{name: "invalid url", rawURL: "://broken", want: models.UnknownMetadata},
		{name: "no host", rawURL: "/relative/path", want: models.UnknownMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := PlatformFromURL(tt.rawURL); got != tt.want {
				t.Errorf("PlatformFromURL(%q) = %q, want %q", tt.rawURL, got, tt.want)
			}
		})
	}
}
