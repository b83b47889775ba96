package models

import (
	"strconv"
	"strings"
)

// Requested quality keywords understood by ChooseVariant. Anything else is
// treated as a resolution string like "720p".
const (
	QualityBest  = "best"
	QualityWorst = "worst"
)

// QualityVariant is one downloadable rendition of a media item.
type QualityVariant struct {
	Label string `json:"label"` // e.g. "1080p", "audio", or the extractor's format id
	Rank  int    `json:"rank"`  // ordering key, higher is better (height, else bitrate)
	URL   string `json:"url"`
	Ext   string `json:"ext"`
}

// ChooseVariant selects a variant for the requested quality. Selection is
// deterministic and idempotent over the same variant slice:
//
//   - an exact label match always wins
//   - "best" picks the maximum rank, "worst" the minimum
//   - a resolution request with no exact match falls back to the nearest
//     available rank below it, or "best" if nothing is lower
//
// The boolean is false only when the slice is empty.
func ChooseVariant(variants []QualityVariant, requested string) (QualityVariant, bool) {
	if len(variants) == 0 {
		return QualityVariant{}, false
	}

	requested = strings.TrimSpace(strings.ToLower(requested))
	if requested == "" {
		requested = QualityBest
	}

	for _, v := range variants {
		if strings.EqualFold(v.Label, requested) {
			return v, true
		}
	}

	switch requested {
	case QualityBest:
		return maxRank(variants), true
	case QualityWorst:
		return minRank(variants), true
	}

	height, ok := parseResolution(requested)
	if !ok {
		return maxRank(variants), true
	}

	// Nearest rank strictly below the requested resolution.
	var lower *QualityVariant
	for i := range variants {
		v := &variants[i]
		if v.Rank >= height {
			continue
		}
		if lower == nil || v.Rank > lower.Rank {
			lower = v
		}
	}
	if lower != nil {
		return *lower, true
	}
	return maxRank(variants), true
}

func maxRank(variants []QualityVariant) QualityVariant {
	best := variants[0]
	for _, v := range variants[1:] {
		if v.Rank > best.Rank {
			best = v
		}
	}
	return best
}

func minRank(variants []QualityVariant) QualityVariant {
	worst := variants[0]
	for _, v := range variants[1:] {
		if v.Rank < worst.Rank {
			worst = v
		}
	}
	return worst
}

// parseResolution converts strings like "720p" or "1080" to a height.
func parseResolution(s string) (int, bool) {
	s = strings.TrimSuffix(s, "p")
	height, err := strconv.Atoi(s)
	if err != nil || height <= 0 {
		return 0, false
	}
	return height, true
}
