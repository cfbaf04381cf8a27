package server

import (
	"log/slog"
	"net/http"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/legibot/backend/anapi"
	"github.com/legibot/backend/nav"
	"github.com/legibot/backend/telemetry"
)

// HandleAgendaICS exports the agenda view encoded in ?token= as an iCalendar feed.
func (h *Handlers) HandleAgendaICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.deps.Agenda == nil {
		http.Error(w, "agenda disabled", http.StatusServiceUnavailable)
		return
	}

	token := r.URL.Query().Get("token")
	state, err := nav.Decode(token)
	if err != nil {
		telemetry.CountMalformedToken()
		http.Error(w, "malformed token", http.StatusBadRequest)
		return
	}

	entries, err := h.deps.Agenda.Fetch(r.Context(), state)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("agenda fetch failed", slog.String("token", token), slog.Any("err", err), slog.String("component", "ics"))
		http.Error(w, "agenda unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="agenda.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(buildCalendar(state, entries, time.Now(), h.deps.Location))) //nolint:errcheck // client went away
}

// buildCalendar renders entries as a VCALENDAR with one VEVENT each.
func buildCalendar(state nav.State, entries []anapi.Entry, stamp time.Time, loc *time.Location) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//LegiBot//Agenda//EN")
	cal.SetXWRCalName("Agenda " + nav.Encode(state))
	if loc != nil {
		cal.SetXWRTimezone(loc.String())
	}

	for _, e := range entries {
		uid := e.ID
		if uid == "" {
			uid = e.Start.UTC().Format("20060102T150405Z") + "-" + e.Title
		}
		ev := cal.AddEvent(uid + "@legibot")
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(e.Start)
		end := e.End
		if end.IsZero() || end.Before(e.Start) {
			end = e.Start.Add(time.Hour)
		}
		ev.SetEndAt(end)
		ev.SetSummary(e.Title)
		if e.Location != "" {
			ev.SetLocation(e.Location)
		}
		if e.Organ != "" {
			ev.SetDescription(e.Organ)
		}
	}
	return cal.Serialize()
}
