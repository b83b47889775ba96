// Package progress maps the two extraction paths and the byte stream of a
// download onto one event shape, so consumers never need to know which engine
// produced an item.
package progress

import (
	"github.com/cerberus-dl/cerberus/internal/models"
)

// Reporter receives every event the pipeline emits. A nil Reporter is valid
// and drops events.
type Reporter func(models.ProgressEvent)

// Unifier fans pipeline signals out to a single Reporter.
type Unifier struct {
	report Reporter
}

// NewUnifier wraps a Reporter; pass nil to discard all events.
func NewUnifier(report Reporter) *Unifier {
	return &Unifier{report: report}
}

func (u *Unifier) emit(event models.ProgressEvent) {
	if u.report != nil {
		u.report(event)
	}
}

// Resolving marks the start of extraction for a source URL, before any items
// are known.
func (u *Unifier) Resolving(sourceURL string) {
	u.emit(models.ProgressEvent{
		Item:       &models.MediaItem{SourceURL: sourceURL},
		BytesDone:  0,
		BytesTotal: models.BytesUnknown,
		Phase:      models.PhaseResolving,
	})
}

// Downloading reports transferred bytes for an item. Total may be
// BytesUnknown when the server sent no length.
func (u *Unifier) Downloading(item *models.MediaItem, done, total int64) {
	u.emit(models.ProgressEvent{
		Item:       item,
		BytesDone:  done,
		BytesTotal: total,
		Phase:      models.PhaseDownloading,
	})
}

// Converting marks post-processing of a finished transfer.
func (u *Unifier) Converting(item *models.MediaItem) {
	u.emit(models.ProgressEvent{
		Item:       item,
		BytesDone:  0,
		BytesTotal: models.BytesUnknown,
		Phase:      models.PhaseConverting,
	})
}

// Done marks an item as fully finished with its final byte count.
func (u *Unifier) Done(item *models.MediaItem, written int64) {
	u.emit(models.ProgressEvent{
		Item:       item,
		BytesDone:  written,
		BytesTotal: written,
		Phase:      models.PhaseDone,
	})
}
