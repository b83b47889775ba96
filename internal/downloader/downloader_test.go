package downloader

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/cerberus-dl/cerberus/internal/apperrors"
	"github.com/cerberus-dl/cerberus/internal/config"
	"github.com/cerberus-dl/cerberus/internal/models"
	"github.com/cerberus-dl/cerberus/internal/progress"
)

func testManager(reporter *progress.Unifier) *Manager {
	if reporter == nil {
		reporter = progress.NewUnifier(nil)
	}
	return NewManager(&config.Settings{UserAgent: "test-agent"}, reporter)
}

func destFor(t *testing.T, directURL, filename string) models.ResolvedDestination {
	t.Helper()
	return models.ResolvedDestination{
		Item: &models.MediaItem{
			Title:         filename,
			SourceURL:     "https://site.example/page",
			ChosenQuality: models.QualityVariant{URL: directURL},
		},
		Directory: t.TempDir(),
		Filename:  filename,
	}
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()
	payload := bytes.Repeat([]byte("media"), 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("User-Agent = %q, want %q", got, "test-agent")
		}
		if got := r.Header.Get("Referer"); got != "https://site.example/page" {
			t.Errorf("Referer = %q, want the source page", got)
		}
		w.Write(payload)
	}))
	defer server.Close()

	dest := destFor(t, server.URL+"/clip.mp4", "clip.mp4")
	outcome := testManager(nil).Fetch(context.Background(), dest)

	if outcome.Status != models.OutcomeSuccess {
		t.Fatalf("Status = %v, want Success (err: %v)", outcome.Status, outcome.Err)
	}
	if outcome.BytesWritten != int64(len(payload)) {
		t.Errorf("BytesWritten = %d, want %d", outcome.BytesWritten, len(payload))
	}

	written, err := os.ReadFile(outcome.FinalPath)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if !bytes.Equal(written, payload) {
		t.Error("downloaded content differs from the payload")
	}
	if _, err := os.Stat(outcome.FinalPath + ".part"); !os.IsNotExist(err) {
		t.Error("temporary .part file left behind after success")
	}
}

func TestFetchEmitsProgress(t *testing.T) {
	t.Parallel()
	payload := bytes.Repeat([]byte("x"), 3000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	var events []models.ProgressEvent
	reporter := progress.NewUnifier(func(event models.ProgressEvent) {
		events = append(events, event)
	})

	dest := destFor(t, server.URL+"/clip.mp4", "clip.mp4")
	outcome := testManager(reporter).Fetch(context.Background(), dest)
	if outcome.Status != models.OutcomeSuccess {
		t.Fatalf("Status = %v, want Success (err: %v)", outcome.Status, outcome.Err)
	}

	if len(events) < 3 {
		t.Fatalf("got %d events, want at least downloading, converting and done", len(events))
	}
	last := events[len(events)-1]
	if last.Phase != models.PhaseDone {
		t.Errorf("last event phase = %q, want done", last.Phase)
	}
	if last.BytesDone != int64(len(payload)) {
		t.Errorf("last event bytes = %d, want %d", last.BytesDone, len(payload))
	}
	if got := events[len(events)-2].Phase; got != models.PhaseConverting {
		t.Errorf("second-to-last phase = %q, want converting before the file is finalized", got)
	}
	for _, event := range events[:len(events)-2] {
		if event.Phase != models.PhaseDownloading {
			t.Errorf("event phase = %q, want downloading", event.Phase)
		}
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	dest := destFor(t, server.URL+"/clip.mp4", "clip.mp4")
	outcome := testManager(nil).Fetch(context.Background(), dest)

	if outcome.Status != models.OutcomeFailed {
		t.Fatalf("Status = %v, want Failed", outcome.Status)
	}
	if !errors.Is(outcome.Err, &apperrors.ErrNetwork{}) {
		t.Errorf("Err = %v, want ErrNetwork", outcome.Err)
	}
	if _, err := os.Stat(dest.Path()); !os.IsNotExist(err) {
		t.Error("no file should exist after a failed request")
	}
}

func TestFetchMidStreamFailureDiscardsPartial(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Announce more than is sent, then drop the connection.
		w.Header().Set("Content-Length", "100000")
		w.WriteHeader(http.StatusOK)
		w.Write(bytes.Repeat([]byte("y"), 100))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		conn, _, _ := w.(http.Hijacker).Hijack()
		conn.Close()
	}))
	defer server.Close()

	dest := destFor(t, server.URL+"/clip.mp4", "clip.mp4")
	outcome := testManager(nil).Fetch(context.Background(), dest)

	if outcome.Status != models.OutcomeFailed {
		t.Fatalf("Status = %v, want Failed", outcome.Status)
	}
	if !errors.Is(outcome.Err, &apperrors.ErrNetwork{}) {
		t.Errorf("Err = %v, want ErrNetwork", outcome.Err)
	}
	if _, err := os.Stat(dest.Path()); !os.IsNotExist(err) {
		t.Error("final path must not exist after a truncated transfer")
	}
	if _, err := os.Stat(dest.Path() + ".part"); !os.IsNotExist(err) {
		t.Error(".part file must be removed after a truncated transfer")
	}
}

func TestFetchCreatesSortDirectories(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	dest := destFor(t, server.URL+"/clip.mp4", "clip.mp4")
	dest.Directory = filepath.Join(dest.Directory, "Some Artist")

	outcome := testManager(nil).Fetch(context.Background(), dest)
	if outcome.Status != models.OutcomeSuccess {
		t.Fatalf("Status = %v, want Success (err: %v)", outcome.Status, outcome.Err)
	}
	if outcome.FinalPath != dest.Path() {
		t.Errorf("FinalPath = %q, want %q", outcome.FinalPath, dest.Path())
	}
}

func TestFetchOverwritesExistingFile(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fresh content"))
	}))
	defer server.Close()

	dest := destFor(t, server.URL+"/clip.mp4", "clip.mp4")
	if err := os.WriteFile(dest.Path(), []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	outcome := testManager(nil).Fetch(context.Background(), dest)
	if outcome.Status != models.OutcomeSuccess {
		t.Fatalf("Status = %v, want Success (err: %v)", outcome.Status, outcome.Err)
	}
	got, err := os.ReadFile(dest.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "fresh content" {
		t.Errorf("content = %q, want the new payload", got)
	}
}
