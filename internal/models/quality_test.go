package models

import "testing"

func variantsFixture() []QualityVariant {
	return []QualityVariant{
		{Label: "1080p", Rank: 1080, URL: "https://cdn.example.com/v/1080.mp4", Ext: "mp4"},
		{Label: "720p", Rank: 720, URL: "https://cdn.example.com/v/720.mp4", Ext: "mp4"},
		{Label: "480p", Rank: 480, URL: "https://cdn.example.com/v/480.mp4", Ext: "mp4"},
	}
}

func TestChooseVariant(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		variants  []QualityVariant
		requested string
		wantLabel string
		wantOK    bool
	}{
		{
			name:      "exact label match",
			variants:  variantsFixture(),
			requested: "720p",
			wantLabel: "720p",
			wantOK:    true,
		},
		{
			name:      "exact label match is case insensitive",
			variants:  []QualityVariant{{Label: "HD", Rank: 720}, {Label: "SD", Rank: 480}},
			requested: "hd",
			wantLabel: "HD",
			wantOK:    true,
		},
		{
			name:      "best picks the maximum rank",
			variants:  variantsFixture(),
			requested: "best",
			wantLabel: "1080p",
			wantOK:    true,
		},
		{
			name:      "worst picks the minimum rank",
			variants:  variantsFixture(),
			requested: "worst",
			wantLabel: "480p",
			wantOK:    true,
		},
		{
			name:      "empty request defaults to best",
			variants:  variantsFixture(),
			requested: "",
			wantLabel: "1080p",
			wantOK:    true,
		},
		{
			name:      "missing resolution falls back to nearest lower rank",
			variants:  variantsFixture(),
			requested: "900p",
			wantLabel: "720p",
			wantOK:    true,
		},
		{
			name:      "resolution below everything falls back to best",
			variants:  variantsFixture(),
			requested: "144p",
			wantLabel: "1080p",
			wantOK:    true,
		},
		{
			name:      "unparseable request falls back to best",
			variants:  variantsFixture(),
			requested: "ultra",
			wantLabel: "1080p",
			wantOK:    true,
		},
		{
			name:      "resolution without p suffix",
			variants:  variantsFixture(),
			requested: "480",
			wantLabel: "480p",
			wantOK:    true,
		},
		{
			name:      "single variant always wins",
			variants:  []QualityVariant{{Label: "default", Rank: 0}},
			requested: "1080p",
			wantLabel: "default",
			wantOK:    true,
		},
		{
			name:      "empty variants",
			variants:  nil,
			requested: "best",
			wantLabel: "",
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ChooseVariant(tt.variants, tt.requested)
			if ok != tt.wantOK {
				t.Fatalf("ChooseVariant() ok = %v, want %v", ok, tt.wantOK)
			}
			if got.Label != tt.wantLabel {
				t.Errorf("ChooseVariant() = %q, want %q", got.Label, tt.wantLabel)
			}
		})
	}
}

func TestChooseVariantIsIdempotent(t *testing.T) {
	t.Parallel()
	variants := variantsFixture()

	first, _ := ChooseVariant(variants, "900p")
	second, _ := ChooseVariant(variants, "900p")
	if first != second {
		t.Errorf("repeated selection differs: %+v vs %+v", first, second)
	}
}

func TestSessionAddItem(t *testing.T) {
	t.Parallel()
	session := NewSession("https://example.com/watch?v=1")
	if session.ID == "" {
		t.Fatal("NewSession() produced an empty ID")
	}
	if !session.IsEmpty() {
		t.Error("new session should be empty")
	}

	item := &MediaItem{Title: "Video"}
	session.AddItem(item)

	if item.SessionID != session.ID {
		t.Errorf("item.SessionID = %q, want %q", item.SessionID, session.ID)
	}
	if item.SourceURL != session.SourceURL {
		t.Errorf("item.SourceURL = %q, want %q", item.SourceURL, session.SourceURL)
	}
	if session.IsEmpty() {
		t.Error("session with one item reported empty")
	}
}
