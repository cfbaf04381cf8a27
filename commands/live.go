package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/legibot/backend/anapi"
	"github.com/legibot/backend/broadcast"
	"github.com/legibot/backend/interaction"
	"github.com/legibot/backend/telemetry"
)

// Custom-id names of the live components.
const (
	LiveSelect = "live_seance"
	LiveListen = "live_listen"
	LiveReload = "live_reload"
)

// noSelection is the payload carried by components when no session is selected.
const noSelection = "null"

const liveTitle = "Assemblée nationale live"

// LiveSource fetches the live directory.
type LiveSource interface {
	Directory(ctx context.Context) (anapi.Directory, error)
	Live(ctx context.Context) ([]anapi.Stream, error)
}

// Live answers /live and its components.
type Live struct {
	Source LiveSource
	// VideosURL is the videos site used for player, playlist and thumbnail links.
	VideosURL string
	// Location is the zone the broadcast schedule is expressed in.
	Location *time.Location
	Now      func() time.Time
}

// Register installs the command and component handlers on r.
func (l *Live) Register(r *interaction.Router) {
	r.HandleCommand("live", l.Execute)
	r.HandleSelect(LiveSelect, l.Select)
	r.HandleButton(LiveReload, l.Reload)
	r.HandleButton(LiveListen, l.Listen)
}

// Execute handles the slash command.
func (l *Live) Execute(ctx context.Context, req *interaction.Request) (*interaction.Response, error) {
	resp := l.Message(ctx, "")
	resp.Ephemeral = true
	return resp, nil
}

// Select shows the session picked in the select menu.
func (l *Live) Select(ctx context.Context, req *interaction.Request, _ string) (*interaction.Response, error) {
	var selected anapi.Flux
	if len(req.Values) > 0 {
		selected = parseSelection(req.Values[0])
	}
	resp := l.Message(ctx, selected)
	resp.Update = true
	return resp, nil
}

// Reload refreshes the message for the flux carried in the payload.
func (l *Live) Reload(ctx context.Context, req *interaction.Request, payload string) (*interaction.Response, error) {
	resp := l.Message(ctx, parseSelection(payload))
	resp.Update = true
	return resp, nil
}

// Listen hands back the audio playlist of a live flux to a member sitting in a voice channel.
func (l *Live) Listen(ctx context.Context, req *interaction.Request, payload string) (*interaction.Response, error) {
	if req.VoiceChannelID == "" {
		return &interaction.Response{Ephemeral: true, Content: "Join a voice channel first."}, nil
	}
	flux := parseSelection(payload)
	streams, err := l.Source.Live(ctx)
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Error("live fetch failed", slog.Any("err", err))
		return &interaction.Response{Ephemeral: true, Content: "Could not reach the live service."}, nil
	}
	if flux == "" || !(anapi.Directory{Streams: streams}).IsLive(flux) {
		return &interaction.Response{Ephemeral: true, Content: "This session is not live."}, nil
	}
	return &interaction.Response{
		Ephemeral: true,
		Content:   "Joining the session: " + anapi.PlaylistURL(l.VideosURL, flux),
	}, nil
}

// Message renders the live card for the selected flux; an empty selection shows the picker.
func (l *Live) Message(ctx context.Context, selected anapi.Flux) *interaction.Response {
	dir, err := l.Source.Directory(ctx)
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Error("live directory fetch failed", slog.Any("err", err))
		return &interaction.Response{Content: "Could not reach the live service."}
	}

	options := dir.Selectable()
	if options == nil || len(dir.Streams) == 0 {
		return &interaction.Response{
			Embed: &interaction.Embed{Title: liveTitle, Description: "Nothing is live right now."},
			Components: []interaction.Row{
				{selectMenu(nil, true)},
				{
					{Kind: interaction.KindButton, CustomID: interaction.JoinCustomID(LiveListen, noSelection), Label: "Listen", Style: interaction.StylePrimary, Disabled: true},
					{Kind: interaction.KindLink, URL: anapi.DirectURL(l.VideosURL), Label: "Watch", Disabled: true},
					reloadButton(noSelection),
				},
			},
		}
	}

	embed := &interaction.Embed{Title: liveTitle, Description: "Select a session."}
	if selected != "" {
		if d, err := l.active(dir, selected); err == nil {
			embed = &interaction.Embed{
				Title:       d.DisplayTitle(),
				Description: d.Subject(),
				Thumbnail:   d.ThumbnailURL(l.VideosURL),
			}
		}
	}

	payload := noSelection
	if selected != "" {
		payload = string(selected)
	}
	return &interaction.Response{
		Embed: embed,
		Components: []interaction.Row{
			{selectMenu(options, false)},
			{
				{Kind: interaction.KindButton, CustomID: interaction.JoinCustomID(LiveListen, payload), Label: "Listen", Style: interaction.StylePrimary, Disabled: selected == ""},
				{Kind: interaction.KindLink, URL: anapi.WatchURL(l.VideosURL, anapi.Flux(payload)), Label: "Watch", Disabled: selected == ""},
				reloadButton(payload),
			},
		},
	}
}

// Summary renders the live sessions as one chat line. A non-empty flux restricts it to that
// session.
func (l *Live) Summary(ctx context.Context, flux anapi.Flux) (string, error) {
	dir, err := l.Source.Directory(ctx)
	if err != nil {
		return "", err
	}
	options := dir.Selectable()
	if len(options) == 0 {
		return "Nothing is live right now.", nil
	}
	var parts []string
	for _, o := range options {
		if flux != "" && o.Value != flux {
			continue
		}
		d, err := l.active(dir, o.Value)
		if err != nil {
			continue
		}
		parts = append(parts, o.Label+": "+oneLine(d.DisplayTitle())+" "+anapi.WatchURL(l.VideosURL, o.Value))
	}
	if len(parts) == 0 {
		return "Session " + string(flux) + " is not live.", nil
	}
	return "Live: " + strings.Join(parts, " | "), nil
}

// Active resolves the diffusion on air for flux.
func (l *Live) Active(ctx context.Context, flux anapi.Flux) (anapi.Diffusion, error) {
	dir, err := l.Source.Directory(ctx)
	if err != nil {
		return anapi.Diffusion{}, err
	}
	return l.active(dir, flux)
}

func (l *Live) active(dir anapi.Directory, flux anapi.Flux) (anapi.Diffusion, error) {
	d, err := anapi.ActiveDiffusion(dir.Diffusions(flux), broadcast.ClockOf(l.now()))
	if errors.Is(err, broadcast.ErrNoActiveBroadcast) {
		telemetry.CountResolution("none")
		return d, err
	}
	if err == nil {
		telemetry.CountResolution("active")
	}
	return d, err
}

func (l *Live) now() time.Time {
	t := time.Now()
	if l.Now != nil {
		t = l.Now()
	}
	if l.Location != nil {
		t = t.In(l.Location)
	}
	return t
}

func selectMenu(options []anapi.Option, disabled bool) interaction.Component {
	opts := make([]interaction.SelectOption, 0, len(options))
	for _, o := range options {
		opts = append(opts, interaction.SelectOption{Label: o.Label, Value: string(o.Value)})
	}
	if len(opts) == 0 {
		opts = append(opts, interaction.SelectOption{Label: "ERROR", Value: "ERROR"})
	}
	return interaction.Component{
		Kind:        interaction.KindSelect,
		CustomID:    LiveSelect,
		Placeholder: "Session",
		Options:     opts,
		Disabled:    disabled,
	}
}

func reloadButton(payload string) interaction.Component {
	return interaction.Component{
		Kind:     interaction.KindButton,
		CustomID: interaction.JoinCustomID(LiveReload, payload),
		Label:    "Refresh",
		Style:    interaction.StyleSecondary,
		Emoji:    "🔄",
	}
}

func parseSelection(s string) anapi.Flux {
	if s == noSelection {
		return ""
	}
	return anapi.Flux(s)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
