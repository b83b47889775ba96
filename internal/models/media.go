package models

import "github.com/google/uuid"

// UnknownMetadata is the sentinel value for metadata fields the extractors
// could not determine. Fields carrying it are never empty, so the sorter can
// always bucket an item.
const UnknownMetadata = "Unknown"

// MediaItem is one concrete downloadable media resource plus its metadata.
type MediaItem struct {
	SessionID      string `json:"sessionId"`
	IndexInSession int    `json:"indexInSession"` // zero-based, assigned by the session namer
	SourceURL      string `json:"sourceUrl"`
	DirectURL      string `json:"directUrl"`
	Title          string `json:"title"`
	Platform       string `json:"platform"`
	Artist         string `json:"artist"`
	Genre          string `json:"genre"`
	Ext            string `json:"ext"` // file extension without leading dot, e.g. "mp4"

	// AvailableQualities is ordered by descending rank. ChosenQuality is
	// populated from it before the item is handed to the download manager.
	AvailableQualities []QualityVariant `json:"availableQualities"`
	ChosenQuality      QualityVariant   `json:"chosenQuality"`
}

// Session is everything obtained from one input URL. All items in a session
// share SourceURL; index values are unique and contiguous starting at 0 once
// the session namer has run.
type Session struct {
	ID        string       `json:"id"`
	SourceURL string       `json:"sourceUrl"`
	Items     []*MediaItem `json:"items"`
}

// NewSession creates an empty session for the given input URL.
func NewSession(sourceURL string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		SourceURL: sourceURL,
	}
}

// AddItem appends an item to the session, stamping it with the session ID and
// source URL. Index assignment is left to the session namer.
func (s *Session) AddItem(item *MediaItem) {
	item.SessionID = s.ID
	item.SourceURL = s.SourceURL
	s.Items = append(s.Items, item)
}

// IsEmpty reports whether the session produced no media items.
func (s *Session) IsEmpty() bool {
	return len(s.Items) == 0
}
