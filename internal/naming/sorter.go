package naming

import (
	"fmt"
	"path/filepath"

	"github.com/cerberus-dl/cerberus/internal/models"
)

// SortDimension selects which metadata field partitions downloads into
// subdirectories.
type SortDimension string

const (
	SortNone     SortDimension = "none"
	SortArtist   SortDimension = "artist"
	SortPlatform SortDimension = "platform"
	SortGenre    SortDimension = "genre"
)

// ParseSortDimension validates a configured sort mode.
func ParseSortDimension(value string) (SortDimension, error) {
	switch SortDimension(value) {
	case SortNone, SortArtist, SortPlatform, SortGenre:
		return SortDimension(value), nil
	case "":
		return SortNone, nil
	default:
		return SortNone, fmt.Errorf("unknown sort_by value %q (expected none, artist, platform or genre)", value)
	}
}

// ResolveDirectory returns the directory an item belongs in under root. It
// never touches the filesystem, so the same item always resolves to the same
// place regardless of what already exists on disk.
func ResolveDirectory(item *models.MediaItem, root string, dim SortDimension) string {
	var bucket string
	switch dim {
	case SortArtist:
		bucket = item.Artist
	case SortPlatform:
		bucket = item.Platform
	case SortGenre:
		bucket = item.Genre
	default:
		return root
	}
	return filepath.Join(root, SanitizeFilename(bucketOrUnknown(bucket)))
}

func bucketOrUnknown(value string) string {
	if value == "" {
		return models.UnknownMetadata
	}
	return value
}
