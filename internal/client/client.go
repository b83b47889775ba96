package client

import (
	"net/http"

	"github.com/cerberus-dl/cerberus/internal/config"
)

// New builds the HTTP client shared by the metadata fetcher and the download
// manager. The base transport is a clone of http.DefaultTransport to preserve
// its connection pooling and timeouts, wrapped with transparent response
// decompression.
func New(settings *config.Settings) *http.Client {
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()

	return &http.Client{
		Timeout:   settings.HTTPTimeout(),
		Transport: newCompressionTransport(baseTransport),
	}
}
