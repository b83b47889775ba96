package engine

import (
	"errors"
	"testing"

	"github.com/cerberus-dl/cerberus/internal/apperrors"
	"github.com/cerberus-dl/cerberus/internal/models"
)

func TestCapabilityTableSupports(t *testing.T) {
	t.Parallel()
	table := NewCapabilityTable([]string{"vimeo.com", " Dailymotion.com "})

	tests := []struct {
		name string
		host string
		want bool
	}{
		{name: "built-in host", host: "youtube.com", want: true},
		{name: "built-in short host", host: "youtu.be", want: true},
		{name: "www prefix ignored", host: "www.youtube.com", want: true},
		{name: "subdomain of built-in host", host: "music.youtube.com", want: true},
		{name: "custom host", host: "vimeo.com", want: true},
		{name: "custom host is normalized", host: "dailymotion.com", want: true},
		{name: "unknown host", host: "example.com", want: false},
		{name: "suffix is not a parent domain", host: "notyoutube.com", want: false},
		{name: "empty host", host: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := table.Supports(tt.host); got != tt.want {
				t.Errorf("Supports(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	t.Parallel()
	table := NewCapabilityTable(nil)

	tests := []struct {
		name    string
		task    models.URLTask
		want    Choice
		wantErr error
	}{
		{
			name: "known host uses the library engine only",
			task: models.URLTask{SourceURL: "https://www.youtube.com/watch?v=abc"},
			want: Choice{Primary: KindLibrary},
		},
		{
			name: "unknown host uses the sniffer with library fallback",
			task: models.URLTask{SourceURL: "https://example.com/video/1"},
			want: Choice{Primary: KindSniffer, Fallback: KindLibrary},
		},
		{
			name: "forced library on a known host",
			task: models.URLTask{SourceURL: "https://youtu.be/abc", ForceLibrary: true},
			want: Choice{Primary: KindLibrary},
		},
		{
			name:    "forced library on an unknown host fails",
			task:    models.URLTask{SourceURL: "https://example.com/video/1", ForceLibrary: true},
			wantErr: &apperrors.ErrUnsupportedHost{},
		},
		{
			name:    "invalid URL",
			task:    models.URLTask{SourceURL: "not a url"},
			wantErr: &apperrors.ErrExtraction{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Select(tt.task, table)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Select() error = %v, want %T", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Select() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	t.Parallel()
	table := NewCapabilityTable(nil)
	task := models.URLTask{SourceURL: "https://example.com/v"}

	first, err := Select(task, table)
	if err != nil {
		t.Fatalf("Select() unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Select(task, table)
		if err != nil {
			t.Fatalf("Select() unexpected error on repeat: %v", err)
		}
		if again != first {
			t.Fatalf("Select() changed between calls: %+v vs %+v", again, first)
		}
	}
}
