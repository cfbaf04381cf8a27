package anapi

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/legibot/backend/nav"
)

// Kind classifies an agenda entry; each kind maps to one agenda filter.
type Kind string

const (
	KindPublicSession Kind = "public"
	KindCommittee     Kind = "committee"
	KindMeeting       Kind = "meeting"
)

// Entry is one item of the parliamentary agenda.
type Entry struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Organ    string    `json:"organ"`
	Location string    `json:"location"`
	Kind     Kind      `json:"kind"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// AgendaClient fetches agenda entries for a date range.
type AgendaClient struct {
	baseClient
}

// NewAgendaClient returns a client rooted at baseURL. A nil hc uses http.DefaultClient.
func NewAgendaClient(baseURL string, hc *http.Client) *AgendaClient {
	return &AgendaClient{baseClient{BaseURL: baseURL, HTTPClient: hc}}
}

// Day returns the entries of a single day.
func (c *AgendaClient) Day(ctx context.Context, d nav.Date, f nav.Filters) ([]Entry, error) {
	return c.Range(ctx, d, d, f)
}

// Week returns the entries of the Monday to Sunday week containing d.
func (c *AgendaClient) Week(ctx context.Context, d nav.Date, f nav.Filters) ([]Entry, error) {
	from := WeekStart(d)
	return c.Range(ctx, from, from.AddDays(6), f)
}

// Fetch dispatches to Day or Week according to the period.
func (c *AgendaClient) Fetch(ctx context.Context, s nav.State) ([]Entry, error) {
	if s.Period == nav.Week {
		return c.Week(ctx, s.Date, s.Filters)
	}
	return c.Day(ctx, s.Date, s.Filters)
}

// Range returns entries between from and to inclusive, sorted by start.
func (c *AgendaClient) Range(ctx context.Context, from, to nav.Date, f nav.Filters) ([]Entry, error) {
	q := url.Values{}
	q.Set("from", from.String())
	q.Set("to", to.String())
	q.Set("public", boolParam(f.Public))
	q.Set("committees", boolParam(f.Committees))
	q.Set("meetings", boolParam(f.Meetings))

	var body struct {
		Entries []Entry `json:"entries"`
	}
	if err := c.getJSON(ctx, "agenda", "/agenda", q, &body); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(body.Entries))
	for _, e := range body.Entries {
		if Allowed(e.Kind, f) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// Allowed reports whether entries of kind k pass the filters. Unknown kinds always pass.
func Allowed(k Kind, f nav.Filters) bool {
	switch k {
	case KindPublicSession:
		return f.Public
	case KindCommittee:
		return f.Committees
	case KindMeeting:
		return f.Meetings
	}
	return true
}

// WeekStart returns the Monday on or before d.
func WeekStart(d nav.Date) nav.Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
