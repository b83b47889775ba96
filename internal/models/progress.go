package models

// Phase identifies where in its lifecycle a media item currently is.
type Phase string

const (
	PhaseResolving   Phase = "resolving"
	PhaseDownloading Phase = "downloading"
	PhaseConverting  Phase = "converting"
	PhaseDone        Phase = "done"
)

// BytesUnknown marks an unknown-length stream in ProgressEvent.BytesTotal.
const BytesUnknown int64 = -1

// ProgressEvent is a transient status update for one media item. Events are
// produced by the progress unifier regardless of which backend generated the
// underlying signal.
type ProgressEvent struct {
	Item       *MediaItem
	BytesDone  int64
	BytesTotal int64 // BytesUnknown when the stream length is not known
	Phase      Phase
}

// Fraction returns progress as 0.0..1.0, or -1 when the total is unknown.
func (e ProgressEvent) Fraction() float64 {
	if e.BytesTotal <= 0 {
		return -1
	}
	f := float64(e.BytesDone) / float64(e.BytesTotal)
	if f > 1 {
		f = 1
	}
	return f
}
