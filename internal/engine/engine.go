package engine

import (
	"context"
	"net/url"
	"strings"

	"github.com/cerberus-dl/cerberus/internal/apperrors"
	"github.com/cerberus-dl/cerberus/internal/models"
)

// Kind identifies one of the two extraction strategies.
type Kind string

const (
	KindLibrary Kind = "library"
	KindSniffer Kind = "sniffer"
)

// Extractor resolves one URL task into a session of media items.
type Extractor interface {
	Extract(ctx context.Context, task models.URLTask) (*models.Session, error)
}

// defaultLibraryHosts are always served by the library engine.
var defaultLibraryHosts = []string{"youtube.com", "youtu.be"}

// CapabilityTable maps hostnames to "library-capable".
type CapabilityTable map[string]bool

// NewCapabilityTable builds the capability table from the built-in hosts plus
// any custom hosts from the configuration.
func NewCapabilityTable(customHosts []string) CapabilityTable {
	table := make(CapabilityTable, len(defaultLibraryHosts)+len(customHosts))
	for _, host := range defaultLibraryHosts {
		table[host] = true
	}
	for _, host := range customHosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			table[host] = true
		}
	}
	return table
}

// Supports reports whether the host, or any parent domain of it, is
// library-capable. The "www." prefix is ignored.
func (t CapabilityTable) Supports(host string) bool {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	for host != "" {
		if t[host] {
			return true
		}
		idx := strings.Index(host, ".")
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
	}
	return false
}

// Choice is the selector's decision for one task. Fallback is empty when the
// primary engine is the only one that should run.
type Choice struct {
	Primary  Kind
	Fallback Kind
}

// Select decides which engine handles a task. Pure and deterministic given
// the same table. Decision order: a forced library engine wins (failing when
// the host is unknown to the table), then a capability-table match, then the
// sniffer with the library engine as sequential fallback.
func Select(task models.URLTask, table CapabilityTable) (Choice, error) {
	parsed, err := url.Parse(task.SourceURL)
	if err != nil || parsed.Hostname() == "" {
		return Choice{}, apperrors.NewExtractionError(task.SourceURL, "not a valid URL")
	}
	host := parsed.Hostname()

	if task.ForceLibrary {
		if !table.Supports(host) {
			return Choice{}, apperrors.NewUnsupportedHostError(host)
		}
		return Choice{Primary: KindLibrary}, nil
	}
	if table.Supports(host) {
		return Choice{Primary: KindLibrary}, nil
	}
	return Choice{Primary: KindSniffer, Fallback: KindLibrary}, nil
}
