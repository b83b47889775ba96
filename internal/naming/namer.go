package naming

import (
	"fmt"
	"strings"

	"github.com/cerberus-dl/cerberus/internal/config"
	"github.com/cerberus-dl/cerberus/internal/models"
)

// maxFilenameLength leaves headroom for the numbering suffix and extension
// under common 255-byte filename limits.
const maxFilenameLength = 200

// invalidFilenameChars are replaced so titles survive on every filesystem.
const invalidFilenameChars = `<>:"/\|?*`

// SanitizeFilename turns a media title into a safe filename stem.
func SanitizeFilename(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(invalidFilenameChars, r) {
			return '_'
		}
		return r
	}, title)
	cleaned = strings.Trim(cleaned, " .")
	if len(cleaned) > maxFilenameLength {
		cleaned = strings.Trim(cleaned[:maxFilenameLength], " .")
	}
	if cleaned == "" {
		return "video"
	}
	return cleaned
}

// ExistsProbe reports whether a path is already present on disk. Injected so
// destination planning stays deterministic under test.
type ExistsProbe func(path string) bool

// Plan pairs a resolved destination with the decision of whether to skip it.
type Plan struct {
	Destination models.ResolvedDestination
	Skip        bool
}

// AssignDestinations names every item of a session. Numbering is scoped to
// the session: the first item keeps the bare title and later items get "(1)",
// "(2)" and so on, whether or not earlier files already exist on disk. With
// overwrite disabled, items whose exact destination exists are marked as
// skips but still consume their position in the sequence.
func AssignDestinations(session *models.Session, directoryFor func(*models.MediaItem) string, probe ExistsProbe, overwrite bool) []Plan {
	logger := config.GetLogger()

	plans := make([]Plan, 0, len(session.Items))
	for i, item := range session.Items {
		item.IndexInSession = i
		suffix := ""
		if i > 0 {
			suffix = fmt.Sprintf("(%d)", i)
		}

		dest := models.ResolvedDestination{
			Item:      item,
			Directory: directoryFor(item),
			Filename:  SanitizeFilename(item.Title) + suffix + "." + item.Ext,
		}

		skip := false
		if !overwrite && probe(dest.Path()) {
			logger.Info().Str("path", dest.Path()).Msg("File already exists, skipping")
			skip = true
		}
		plans = append(plans, Plan{Destination: dest, Skip: skip})
	}
	return plans
}
