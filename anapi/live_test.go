package anapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/legibot/backend/broadcast"
	"github.com/legibot/backend/testutil"
)

func TestFluxUnmarshal(t *testing.T) {
	var v struct {
		A Flux `json:"a"`
		B Flux `json:"b"`
		C Flux `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":3,"b":"12","c":null}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != "3" || v.B != "12" || v.C != "" {
		t.Errorf("got %+v", v)
	}
	if err := json.Unmarshal([]byte(`{"a":true}`), &v); err == nil {
		t.Error("expected error for boolean flux")
	}
}

func TestLiveClient_Directory(t *testing.T) {
	srv := testutil.NewMockANServer(t)
	srv.MockLiveResponse("1", "4")
	srv.MockEditoResponse([]map[string]interface{}{
		{"flux": 1, "heure": 1500, "libelle": "Séance publique", "libelle_court": "Hémicycle", "sujet": "Questions &amp; réponses<br>suite", "id_organe": "PO1"},
		{"flux": 1, "heure": 2130, "libelle": "", "libelle_court": "Hémicycle (soir)", "sujet": "", "id_organe": "PO1"},
		{"flux": 2, "heure": 1000, "libelle": "Commission", "libelle_court": "Com", "sujet": "", "id_organe": "PO2"},
	})

	c := NewLiveClient(srv.URL, nil)
	dir, err := c.Directory(context.Background())
	if err != nil {
		t.Fatalf("Directory() error = %v", err)
	}
	if len(dir.Streams) != 2 || len(dir.Edito.Diffusions) != 3 {
		t.Fatalf("unexpected directory %+v", dir)
	}

	opts := dir.Selectable()
	if len(opts) != 1 || opts[0].Value != "1" || opts[0].Label != "Hémicycle" {
		t.Errorf("Selectable() = %+v", opts)
	}
	if !dir.IsLive("4") || dir.IsLive("2") {
		t.Error("IsLive mismatch")
	}

	diffs := dir.Diffusions("1")
	if len(diffs) != 2 {
		t.Fatalf("Diffusions(1) len = %d", len(diffs))
	}
	if got := diffs[0].Subject(); got != "Questions & réponses\nsuite" {
		t.Errorf("Subject() = %q", got)
	}
	if got := diffs[1].DisplayTitle(); got != "Hémicycle (soir)" {
		t.Errorf("DisplayTitle() fallback = %q", got)
	}
	if got := diffs[0].Key(); got != "1@1500" {
		t.Errorf("Key() = %q", got)
	}
}

func TestLiveClient_DirectoryFailure(t *testing.T) {
	srv := testutil.NewMockANServer(t)
	srv.MockLiveResponse("1")
	srv.MockStatus("/edito", http.StatusServiceUnavailable)

	c := NewLiveClient(srv.URL, nil)
	_, err := c.Directory(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Endpoint != "edito" {
		t.Fatalf("expected edito StatusError, got %v", err)
	}
}

func TestSelectableNone(t *testing.T) {
	dir := Directory{
		Streams: []Stream{{Flux: "9"}},
		Edito:   Edito{Diffusions: []Diffusion{{Flux: "1", ShortLabel: "x"}}},
	}
	if opts := dir.Selectable(); opts != nil {
		t.Errorf("Selectable() = %+v, want nil", opts)
	}
}

func TestActiveDiffusion(t *testing.T) {
	diffs := []Diffusion{
		{Flux: "1", Hour: 2430, Label: "night"},
		{Flux: "1", Hour: 900, Label: "morning"},
		{Flux: "1", Hour: 1500, Label: "afternoon"},
	}
	tests := []struct {
		now  broadcast.Clock
		want string
	}{
		{1000, "morning"},
		{1500, "afternoon"},
		{15, "afternoon"},
		{100, "night"},
	}
	for _, tt := range tests {
		got, err := ActiveDiffusion(diffs, tt.now)
		if err != nil {
			t.Fatalf("now=%d: %v", tt.now, err)
		}
		if got.Label != tt.want {
			t.Errorf("now=%d: got %q, want %q", tt.now, got.Label, tt.want)
		}
	}
	if _, err := ActiveDiffusion(nil, 1000); !errors.Is(err, broadcast.ErrNoActiveBroadcast) {
		t.Errorf("empty: err = %v", err)
	}
}

func TestURLs(t *testing.T) {
	base := "https://videos.example.org/"
	if got := WatchURL(base, "3"); got != "https://videos.example.org/direct.3" {
		t.Errorf("WatchURL = %q", got)
	}
	if got := PlaylistURL(base, "3"); got != "https://videos.example.org/live/live3/playlist3.m3u8" {
		t.Errorf("PlaylistURL = %q", got)
	}
	d := Diffusion{OrganID: "PO42"}
	if got := d.ThumbnailURL(base); got != "https://videos.example.org/live/images/PO42.jpg" {
		t.Errorf("ThumbnailURL = %q", got)
	}
}
