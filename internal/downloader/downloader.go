// Package downloader streams resolved media URLs to their final paths.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cerberus-dl/cerberus/internal/apperrors"
	"github.com/cerberus-dl/cerberus/internal/client"
	"github.com/cerberus-dl/cerberus/internal/config"
	"github.com/cerberus-dl/cerberus/internal/models"
	"github.com/cerberus-dl/cerberus/internal/progress"
)

// chunkSize is the copy buffer size; one progress event fires per chunk.
const chunkSize = 1 << 20

// Manager fetches media files one at a time over a shared HTTP client.
type Manager struct {
	httpClient *http.Client
	userAgent  string
	reporter   *progress.Unifier
}

// NewManager builds a Manager using the configured client settings.
func NewManager(settings *config.Settings, reporter *progress.Unifier) *Manager {
	return &Manager{
		httpClient: client.New(settings),
		userAgent:  settings.UserAgent,
		reporter:   reporter,
	}
}

// Fetch downloads one item to its resolved destination. The transfer goes
// through a temporary .part file which is renamed into place only once the
// body has been fully written, so an interrupted run never leaves a partial
// file under the final name.
func (m *Manager) Fetch(ctx context.Context, dest models.ResolvedDestination) *models.DownloadOutcome {
	logger := config.GetLogger()
	item := dest.Item
	finalPath := dest.Path()

	if err := os.MkdirAll(dest.Directory, 0o755); err != nil {
		return failed(item, apperrors.NewFileSystemError(dest.Directory, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.ChosenQuality.URL, nil)
	if err != nil {
		return failed(item, apperrors.NewNetworkError(item.ChosenQuality.URL, err))
	}
	req.Header.Set("User-Agent", m.userAgent)
	// Some hosts refuse media requests that do not carry the page they were
	// embedded on.
	req.Header.Set("Referer", item.SourceURL)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return failed(item, apperrors.NewNetworkError(item.ChosenQuality.URL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failed(item, apperrors.NewNetworkError(item.ChosenQuality.URL,
			fmt.Errorf("unexpected status code: %d", resp.StatusCode)))
	}

	partPath := finalPath + ".part"
	out, err := os.Create(partPath)
	if err != nil {
		return failed(item, apperrors.NewFileSystemError(partPath, err))
	}

	written, err := m.stream(item, resp.Body, out, resp.ContentLength)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(partPath)
		var fsErr *fsWriteError
		if errors.As(err, &fsErr) {
			return failed(item, apperrors.NewFileSystemError(partPath, fsErr.cause))
		}
		return failed(item, apperrors.NewNetworkError(item.ChosenQuality.URL, err))
	}

	m.reporter.Converting(item)
	if err := os.Rename(partPath, finalPath); err != nil {
		_ = os.Remove(partPath)
		return failed(item, apperrors.NewFileSystemError(finalPath, err))
	}

	m.reporter.Done(item, written)
	logger.Info().
		Str("path", filepath.Base(finalPath)).
		Int64("bytes", written).
		Msg("Download finished")

	return &models.DownloadOutcome{
		Item:         item,
		Status:       models.OutcomeSuccess,
		BytesWritten: written,
		FinalPath:    finalPath,
	}
}

// fsWriteError tags a copy failure as local so the caller can classify it
// apart from remote read errors.
type fsWriteError struct {
	cause error
}

func (e *fsWriteError) Error() string { return e.cause.Error() }

// stream copies the body in fixed chunks, emitting one progress event per
// chunk.
func (m *Manager) stream(item *models.MediaItem, body io.Reader, out io.Writer, total int64) (int64, error) {
	if total <= 0 {
		total = models.BytesUnknown
	}
	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return written, &fsWriteError{cause: writeErr}
			}
			written += int64(n)
			m.reporter.Downloading(item, written, total)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

func failed(item *models.MediaItem, err error) *models.DownloadOutcome {
	logger := config.GetLogger()
	logger.Error().Err(err).Str("title", item.Title).Msg("Download failed")
	return &models.DownloadOutcome{
		Item:   item,
		Status: models.OutcomeFailed,
		Err:    err,
	}
}
