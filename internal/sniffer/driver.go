package sniffer

import (
	"context"
	"time"
)

// CapturedResponse is one observed network response during a page load.
type CapturedResponse struct {
	URL        string
	MimeType   string
	ObservedAt time.Time
}

// TrafficLog is the raw result of navigating to a page and passively
// recording its network traffic for a bounded window.
type TrafficLog struct {
	PageURL   string
	PageHTML  string // rendered document, used for meta-tag parsing
	Responses []CapturedResponse
}

// BrowserDriver abstracts the live browser so the sniffer's analysis can be
// tested against fixture traffic without launching anything.
type BrowserDriver interface {
	NavigateAndCapture(ctx context.Context, pageURL string, window time.Duration) (*TrafficLog, error)
}
