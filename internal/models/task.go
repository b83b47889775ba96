package models

// URLTask represents one input URL to be resolved into media items.
// A task is immutable once constructed and is consumed by the engine selector.
type URLTask struct {
	SourceURL        string `json:"sourceUrl"`
	RequestedQuality string `json:"requestedQuality"` // "best", "worst" or a resolution like "720p"
	ForceLibrary     bool   `json:"forceLibrary"`     // force the library engine, never fall back to sniffing
}
