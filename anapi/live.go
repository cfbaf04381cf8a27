package anapi

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/legibot/backend/broadcast"
)

// Flux identifies a live video stream. Upstream sends it either as a JSON number or string.
type Flux string

// UnmarshalJSON accepts numbers, strings and null.
func (f *Flux) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*f = ""
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = Flux(v)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("flux: %w", err)
		}
		*f = Flux(n.String())
	}
	return nil
}

// Stream is one currently broadcasting flux.
type Stream struct {
	Flux Flux `json:"flux"`
}

// Diffusion is one programme slot of the editorial schedule.
type Diffusion struct {
	Flux       Flux            `json:"flux"`
	Hour       broadcast.Clock `json:"heure"`
	Label      string          `json:"libelle"`
	ShortLabel string          `json:"libelle_court"`
	Topic      string          `json:"sujet"`
	OrganID    string          `json:"id_organe"`
}

// Edito is the editorial schedule of the current broadcast day.
type Edito struct {
	Diffusions []Diffusion `json:"diffusion"`
}

// DisplayTitle prefers the long label.
func (d Diffusion) DisplayTitle() string {
	if d.Label == "" {
		return d.ShortLabel
	}
	return d.Label
}

// Subject returns the topic with HTML entities decoded and line breaks restored.
func (d Diffusion) Subject() string {
	s := html.UnescapeString(d.Topic)
	s = strings.ReplaceAll(s, "<br />", "\n")
	s = strings.ReplaceAll(s, "<br/>", "\n")
	s = strings.ReplaceAll(s, "<br>", "\n")
	return s
}

// Key identifies the slot within its broadcast day.
func (d Diffusion) Key() string {
	return string(d.Flux) + "@" + strconv.Itoa(int(d.Hour))
}

// ThumbnailURL returns the organ picture under the videos site.
func (d Diffusion) ThumbnailURL(videosBase string) string {
	return strings.TrimRight(videosBase, "/") + "/live/images/" + d.OrganID + ".jpg"
}

// WatchURL is the public player page of a flux.
func WatchURL(videosBase string, f Flux) string {
	return strings.TrimRight(videosBase, "/") + "/direct." + string(f)
}

// DirectURL is the player landing page when no flux is selected.
func DirectURL(videosBase string) string {
	return strings.TrimRight(videosBase, "/") + "/direct"
}

// PlaylistURL is the HLS playlist of a flux.
func PlaylistURL(videosBase string, f Flux) string {
	base := strings.TrimRight(videosBase, "/")
	return fmt.Sprintf("%s/live/live%s/playlist%s.m3u8", base, f, f)
}

// ActiveDiffusion resolves which of the given slots is on air at now.
func ActiveDiffusion(diffs []Diffusion, now broadcast.Clock) (Diffusion, error) {
	segments := make([]broadcast.Segment, len(diffs))
	for i, d := range diffs {
		segments[i] = broadcast.Segment{ID: strconv.Itoa(i), Start: d.Hour}
	}
	seg, err := broadcast.ResolveActive(segments, now)
	if err != nil {
		return Diffusion{}, err
	}
	i, err := strconv.Atoi(seg.ID)
	if err != nil {
		return Diffusion{}, err
	}
	return diffs[i], nil
}

// Option is a selectable live session.
type Option struct {
	Label string
	Value Flux
}

// Directory couples the live streams with the editorial schedule.
type Directory struct {
	Streams []Stream
	Edito   Edito
}

// Selectable lists the live streams that have an editorial entry, or nil when none do.
func (d Directory) Selectable() []Option {
	var out []Option
	for _, s := range d.Streams {
		for _, e := range d.Edito.Diffusions {
			if e.Flux != s.Flux {
				continue
			}
			if e.Flux != "" {
				out = append(out, Option{Label: e.ShortLabel, Value: s.Flux})
			}
			break
		}
	}
	return out
}

// Diffusions returns the schedule slots for one flux in upstream order.
func (d Directory) Diffusions(f Flux) []Diffusion {
	var out []Diffusion
	for _, e := range d.Edito.Diffusions {
		if e.Flux == f {
			out = append(out, e)
		}
	}
	return out
}

// IsLive reports whether f is currently broadcasting.
func (d Directory) IsLive(f Flux) bool {
	for _, s := range d.Streams {
		if s.Flux == f {
			return true
		}
	}
	return false
}

// LiveClient fetches the live stream list and editorial schedule.
type LiveClient struct {
	baseClient
}

// NewLiveClient returns a client rooted at baseURL. A nil hc uses http.DefaultClient.
func NewLiveClient(baseURL string, hc *http.Client) *LiveClient {
	return &LiveClient{baseClient{BaseURL: baseURL, HTTPClient: hc}}
}

// Live lists the streams currently on air.
func (c *LiveClient) Live(ctx context.Context) ([]Stream, error) {
	var out []Stream
	if err := c.getJSON(ctx, "live", "/live", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Edito returns today's editorial schedule.
func (c *LiveClient) Edito(ctx context.Context) (Edito, error) {
	var out Edito
	if err := c.getJSON(ctx, "edito", "/edito", nil, &out); err != nil {
		return Edito{}, err
	}
	return out, nil
}

// Directory fetches streams and schedule concurrently.
func (c *LiveClient) Directory(ctx context.Context) (Directory, error) {
	var dir Directory
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := c.Live(gctx)
		dir.Streams = s
		return err
	})
	g.Go(func() error {
		e, err := c.Edito(gctx)
		dir.Edito = e
		return err
	})
	if err := g.Wait(); err != nil {
		return Directory{}, err
	}
	return dir, nil
}
