package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/cerberus-dl/cerberus/internal/apperrors"
	"github.com/cerberus-dl/cerberus/internal/config"
	"github.com/cerberus-dl/cerberus/internal/models"
)

// LibraryExtractor resolves URLs of known hosts through yt-dlp. It never
// downloads media itself; it extracts the metadata document once and
// normalizes the entries into media items with quality variants.
type LibraryExtractor struct {
	settings *config.Settings
}

// NewLibraryExtractor creates a library extractor bound to the given settings.
func NewLibraryExtractor(settings *config.Settings) *LibraryExtractor {
	return &LibraryExtractor{settings: settings}
}

// Extract implements the Extractor interface.
func (l *LibraryExtractor) Extract(ctx context.Context, task models.URLTask) (*models.Session, error) {
	logger := config.GetLogger()
	logger.Info().Str("url", task.SourceURL).Msg("Extracting via library engine")

	dl := ytdlp.New().
		DumpSingleJSON().
		SkipDownload().
		NoWarnings()
	if l.settings.UseBrowserCookies {
		dl = dl.CookiesFromBrowser("chrome")
	}

	result, err := dl.Run(ctx, task.SourceURL)
	if err != nil {
		return nil, classifyRunError(task.SourceURL, result, err)
	}

	session, err := sessionFromInfoJSON(task.SourceURL, []byte(result.Stdout))
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("url", task.SourceURL).
		Int("items", len(session.Items)).
		Msg("Library extraction complete")
	return session, nil
}

// noMediaMarkers are yt-dlp stderr fragments that mean the page itself has no
// extractable media, as opposed to a transport problem.
var noMediaMarkers = []string{
	"unsupported url",
	"unable to extract",
	"no video formats",
	"does not exist",
	"video unavailable",
}

// classifyRunError distinguishes "this page has no media" from transport
// failures. Only the latter make sense to retry with the same URL.
func classifyRunError(url string, result *ytdlp.Result, err error) error {
	diagnostic := err.Error()
	if result != nil && strings.TrimSpace(result.Stderr) != "" {
		diagnostic = result.Stderr
	}
	lowered := strings.ToLower(diagnostic)
	for _, marker := range noMediaMarkers {
		if strings.Contains(lowered, marker) {
			return apperrors.NewExtractionError(url, strings.TrimSpace(diagnostic))
		}
	}
	return apperrors.NewNetworkError(url, err)
}

// infoDict mirrors the subset of yt-dlp's --dump-single-json output that the
// normalization needs. Playlists nest further infoDicts under "entries".
type infoDict struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	WebpageURL     string       `json:"webpage_url"`
	URL            string       `json:"url"`
	Ext            string       `json:"ext"`
	Duration       float64      `json:"duration"`
	Filesize       int64        `json:"filesize"`
	FilesizeApprox int64        `json:"filesize_approx"`
	Uploader       string       `json:"uploader"`
	Artist         string       `json:"artist"`
	Genre          string       `json:"genre"`
	ExtractorKey   string       `json:"extractor_key"`
	Entries        []*infoDict  `json:"entries"`
	Formats        []formatDict `json:"formats"`
}

type formatDict struct {
	FormatID   string  `json:"format_id"`
	FormatNote string  `json:"format_note"`
	URL        string  `json:"url"`
	Ext        string  `json:"ext"`
	Height     int     `json:"height"`
	TBR        float64 `json:"tbr"`
	VCodec     string  `json:"vcodec"`
}

// sessionFromInfoJSON normalizes a yt-dlp info document into a session.
func sessionFromInfoJSON(sourceURL string, raw []byte) (*models.Session, error) {
	var info infoDict
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, apperrors.NewExtractionError(sourceURL, fmt.Sprintf("unreadable extractor output: %v", err))
	}

	entries := info.Entries
	if len(entries) == 0 {
		entries = []*infoDict{&info}
	}

	session := models.NewSession(sourceURL)
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		key := entryKey(entry)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		item := itemFromEntry(entry, &info)
		if item == nil {
			continue
		}
		session.AddItem(item)
	}

	if session.IsEmpty() {
		return nil, apperrors.NewExtractionError(sourceURL, "extractor returned no playable entries")
	}
	return session, nil
}

// entryKey builds a stable deduplication key for a playlist entry: the entry
// ID when present, else its page URL, else a title|duration|size composite.
func entryKey(entry *infoDict) string {
	if entry.ID != "" {
		return entry.ID
	}
	if entry.WebpageURL != "" {
		return entry.WebpageURL
	}
	if entry.URL != "" {
		return entry.URL
	}
	size := entry.Filesize
	if size == 0 {
		size = entry.FilesizeApprox
	}
	return fmt.Sprintf("%s|%.0f|%d", strings.TrimSpace(entry.Title), entry.Duration, size)
}

// itemFromEntry maps one entry to a media item, defaulting missing metadata
// to the Unknown sentinel. Returns nil when the entry offers nothing to fetch.
func itemFromEntry(entry, parent *infoDict) *models.MediaItem {
	variants := variantsFromFormats(entry.Formats)
	if len(variants) == 0 && entry.URL != "" {
		// Flat entry without a formats list: the entry URL is the media.
		variants = []models.QualityVariant{{
			Label: "default",
			URL:   entry.URL,
			Ext:   orDefault(entry.Ext, "mp4"),
		}}
	}
	if len(variants) == 0 {
		return nil
	}

	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = strings.TrimSpace(parent.Title)
	}
	if title == "" {
		title = orDefault(entry.ID, "video")
	}

	return &models.MediaItem{
		Title:              title,
		DirectURL:          variants[0].URL,
		Ext:                orDefault(entry.Ext, variants[0].Ext),
		Platform:           firstKnown(entry.ExtractorKey, parent.ExtractorKey),
		Artist:             firstKnown(entry.Artist, entry.Uploader, parent.Artist, parent.Uploader),
		Genre:              firstKnown(entry.Genre, parent.Genre),
		AvailableQualities: variants,
	}
}

// variantsFromFormats converts the formats list, ordered by descending
// height then bitrate. Formats without a direct URL are unusable and dropped.
func variantsFromFormats(formats []formatDict) []models.QualityVariant {
	usable := make([]formatDict, 0, len(formats))
	for _, f := range formats {
		if f.URL != "" {
			usable = append(usable, f)
		}
	}
	// yt-dlp lists formats worst-first; callers want best-first.
	sort.SliceStable(usable, func(i, j int) bool {
		if usable[i].Height != usable[j].Height {
			return usable[i].Height > usable[j].Height
		}
		return usable[i].TBR > usable[j].TBR
	})

	variants := make([]models.QualityVariant, 0, len(usable))
	for _, f := range usable {
		label := f.FormatNote
		if f.Height > 0 {
			label = fmt.Sprintf("%dp", f.Height)
		}
		if label == "" {
			label = f.FormatID
		}
		variants = append(variants, models.QualityVariant{
			Label: label,
			Rank:  f.Height,
			URL:   f.URL,
			Ext:   orDefault(f.Ext, "mp4"),
		})
	}
	return variants
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// firstKnown returns the first non-empty candidate, else the Unknown sentinel.
func firstKnown(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return strings.TrimSpace(c)
		}
	}
	return models.UnknownMetadata
}
