package models

import "path/filepath"

// ResolvedDestination pins a media item to its final directory and filename.
// It is computed once by the metadata sorter and session namer and never
// mutated afterwards.
type ResolvedDestination struct {
	Item      *MediaItem
	Directory string
	Filename  string
}

// Path returns the full destination path.
func (d ResolvedDestination) Path() string {
	return filepath.Join(d.Directory, d.Filename)
}

// OutcomeStatus is the terminal status of one media item.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "Success"
	OutcomeSkipped OutcomeStatus = "Skipped"
	OutcomeFailed  OutcomeStatus = "Failed"
)

// String returns the string representation of the status.
func (s OutcomeStatus) String() string {
	return string(s)
}

// DownloadOutcome is the terminal record for one media item. It is created
// exactly once and never updated.
type DownloadOutcome struct {
	Item         *MediaItem
	Status       OutcomeStatus
	Err          error // populated only when Status is OutcomeFailed
	BytesWritten int64
	FinalPath    string
}
