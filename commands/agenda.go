// Package commands implements the /agenda and /live interactions and their chat summaries.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/legibot/backend/anapi"
	"github.com/legibot/backend/interaction"
	"github.com/legibot/backend/nav"
	"github.com/legibot/backend/telemetry"
)

// AgendaButton is the custom-id name of the agenda navigation buttons.
const AgendaButton = "agenda_button"

// InputDateLayout is the date format users type.
const InputDateLayout = "02/01/2006"

// DefaultFilters are the filters applied when the user leaves them unset.
var DefaultFilters = nav.Filters{Public: true, Committees: true, Meetings: false}

// AgendaSource fetches agenda entries for a navigation state.
type AgendaSource interface {
	Fetch(ctx context.Context, s nav.State) ([]anapi.Entry, error)
}

// Agenda answers /agenda and its navigation buttons.
type Agenda struct {
	Source AgendaSource
	// Location is the zone "today" and entry times are expressed in.
	Location *time.Location
	// PublicBaseURL enables the calendar link button when set.
	PublicBaseURL string
	Now           func() time.Time
}

// Register installs the command and button handlers on r.
func (a *Agenda) Register(r *interaction.Router) {
	r.HandleCommand("agenda", a.Execute)
	r.HandleButton(AgendaButton, a.Button)
}

// ParseInputDate parses a DD/MM/YYYY date as typed by users.
func ParseInputDate(s string, loc *time.Location) (nav.Date, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(InputDateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return nav.Date{}, err
	}
	return nav.DateOf(t), nil
}

// Today is the current date in the configured zone.
func (a *Agenda) Today() nav.Date {
	return nav.DateOf(a.now().In(a.location()))
}

// DefaultState is today's day view with default filters.
func (a *Agenda) DefaultState() nav.State {
	return nav.State{Date: a.Today(), Period: nav.Day, Filters: DefaultFilters}
}

// Execute handles the slash command.
func (a *Agenda) Execute(ctx context.Context, req *interaction.Request) (*interaction.Response, error) {
	period, ok := nav.ParsePeriod(req.Subcommand)
	if !ok {
		period = nav.Day
	}
	state := nav.State{
		Date:   a.Today(),
		Period: period,
		Filters: nav.Filters{
			Committees: req.BoolOption("commission", DefaultFilters.Committees),
			Public:     req.BoolOption("public", DefaultFilters.Public),
			Meetings:   req.BoolOption("meetings", DefaultFilters.Meetings),
		},
	}
	if s, ok := req.StringOption("date"); ok && s != "" {
		d, err := ParseInputDate(s, a.location())
		if err != nil {
			return &interaction.Response{Ephemeral: true, Content: "Invalid date, expected DD/MM/YYYY."}, nil
		}
		state.Date = d
	}
	resp := a.Message(ctx, state)
	resp.Ephemeral = true
	return resp, nil
}

// Button handles the previous/next buttons. A payload that does not decode falls back to
// today's default view.
func (a *Agenda) Button(ctx context.Context, req *interaction.Request, payload string) (*interaction.Response, error) {
	state, err := nav.Decode(payload)
	if err != nil {
		telemetry.CountMalformedToken()
		telemetry.LoggerWithCorr(ctx).Warn("malformed agenda token", slog.String("token", payload), slog.Any("err", err))
		state = a.DefaultState()
	}
	resp := a.Message(ctx, state)
	resp.Update = true
	return resp, nil
}

// Message renders the agenda for state with its navigation row.
func (a *Agenda) Message(ctx context.Context, state nav.State) *interaction.Response {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\n", agendaTitle(state))

	entries, err := a.Source.Fetch(ctx, state)
	switch {
	case err != nil:
		telemetry.LoggerWithCorr(ctx).Error("agenda fetch failed", slog.String("token", nav.Encode(state)), slog.Any("err", err))
		b.WriteString("*The agenda is unavailable right now.*")
	case len(entries) == 0:
		b.WriteString("*No events.*")
	default:
		for i, e := range entries {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(a.entryLine(e, state.Period))
		}
	}

	return &interaction.Response{Content: b.String(), Components: []interaction.Row{a.navRow(state)}}
}

func (a *Agenda) navRow(state nav.State) interaction.Row {
	unit := "day"
	if state.Period == nav.Week {
		unit = "week"
	}
	row := interaction.Row{
		{
			Kind:     interaction.KindButton,
			CustomID: interaction.JoinCustomID(AgendaButton, nav.Encode(nav.Advance(state, nav.Previous))),
			Label:    "Previous " + unit,
			Style:    interaction.StylePrimary,
		},
		{
			Kind:     interaction.KindButton,
			CustomID: interaction.JoinCustomID(AgendaButton, nav.Encode(nav.Advance(state, nav.Next))),
			Label:    "Next " + unit,
			Style:    interaction.StylePrimary,
		},
	}
	if link := a.CalendarURL(state); link != "" {
		row = append(row, interaction.Component{Kind: interaction.KindLink, Label: "Calendar", URL: link})
	}
	return row
}

// CalendarURL is the iCalendar export link of state, or "" when no public URL is configured.
func (a *Agenda) CalendarURL(state nav.State) string {
	if a.PublicBaseURL == "" {
		return ""
	}
	return strings.TrimRight(a.PublicBaseURL, "/") + "/agenda.ics?token=" + url.QueryEscape(nav.Encode(state))
}

// Summary renders the agenda as one chat line.
func (a *Agenda) Summary(ctx context.Context, state nav.State) (string, error) {
	entries, err := a.Source.Fetch(ctx, state)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return agendaTitle(state) + ": no events", nil
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = a.entryLine(e, state.Period)
	}
	return agendaTitle(state) + ": " + strings.Join(parts, "; "), nil
}

func (a *Agenda) entryLine(e anapi.Entry, p nav.Period) string {
	start := e.Start.In(a.location())
	when := start.Format("15:04")
	if p == nav.Week {
		when = start.Format("Mon 02/01 15:04")
	}
	line := when + " " + e.Title
	if e.Organ != "" {
		line += " (" + e.Organ + ")"
	}
	if e.Location != "" {
		line += " - " + e.Location
	}
	return line
}

func agendaTitle(state nav.State) string {
	if state.Period == nav.Week {
		return "Agenda for the week of " + state.Date.Format(InputDateLayout)
	}
	return "Agenda for " + state.Date.Format(InputDateLayout)
}

func (a *Agenda) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Agenda) location() *time.Location {
	if a.Location != nil {
		return a.Location
	}
	return time.UTC
}
