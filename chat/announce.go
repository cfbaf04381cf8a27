package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/legibot/backend/anapi"
	"github.com/legibot/backend/broadcast"
	"github.com/legibot/backend/telemetry"
)

// DefaultSchedule is used when the configured cron spec does not parse.
const DefaultSchedule = "@every 1m"

// Store persists the last announced segment per flux.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// DirectorySource fetches the live directory.
type DirectorySource interface {
	Directory(ctx context.Context) (anapi.Directory, error)
}

// Announcer posts a chat message whenever the segment on air changes on a live flux.
type Announcer struct {
	Source    DirectorySource
	Store     Store
	Say       func(text string)
	VideosURL string
	Location  *time.Location
	Now       func() time.Time
	// Schedule is a robfig/cron spec such as "@every 1m" or "*/5 * * * *".
	Schedule string

	mu          sync.Mutex
	last        map[anapi.Flux]string
	storeFailed bool
	cron        *cron.Cron
}

func announceKey(f anapi.Flux) string { return "announce:" + string(f) }

// Tick checks every live flux once and announces the ones whose active segment changed.
// It returns the number of announcements made.
func (a *Announcer) Tick(ctx context.Context) (int, error) {
	dir, err := a.Source.Directory(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch live directory: %w", err)
	}
	now := broadcast.ClockOf(a.now())

	sent := 0
	for _, o := range dir.Selectable() {
		d, err := anapi.ActiveDiffusion(dir.Diffusions(o.Value), now)
		if errors.Is(err, broadcast.ErrNoActiveBroadcast) {
			telemetry.CountResolution("none")
			continue
		}
		if err != nil {
			return sent, err
		}
		telemetry.CountResolution("active")

		key := d.Key()
		if prev, ok := a.lastAnnounced(ctx, o.Value); ok && prev == key {
			continue
		}
		a.say(fmt.Sprintf("Now live on %s: %s %s", o.Label, oneLine(d.DisplayTitle()), anapi.WatchURL(a.VideosURL, o.Value)))
		telemetry.CountAnnouncement()
		a.remember(ctx, o.Value, key)
		sent++
	}
	return sent, nil
}

func (a *Announcer) lastAnnounced(ctx context.Context, f anapi.Flux) (string, bool) {
	a.mu.Lock()
	v, ok := a.last[f]
	a.mu.Unlock()
	if ok || a.Store == nil {
		return v, ok
	}
	v, ok, err := a.Store.Get(ctx, announceKey(f))
	if err != nil {
		a.storeError("get", err)
		return "", false
	}
	return v, ok
}

func (a *Announcer) remember(ctx context.Context, f anapi.Flux, key string) {
	a.mu.Lock()
	if a.last == nil {
		a.last = make(map[anapi.Flux]string)
	}
	a.last[f] = key
	a.mu.Unlock()
	if a.Store == nil {
		return
	}
	if err := a.Store.Set(ctx, announceKey(f), key); err != nil {
		a.storeError("set", err)
	}
}

// storeError logs the first store failure as a warning and later ones at debug level.
func (a *Announcer) storeError(op string, err error) {
	a.mu.Lock()
	first := !a.storeFailed
	a.storeFailed = true
	a.mu.Unlock()
	if first {
		slog.Warn("announce store failed; keeping state in memory", slog.String("op", op), slog.Any("err", err), slog.String("component", "announce"))
		return
	}
	slog.Debug("announce store failed", slog.String("op", op), slog.Any("err", err), slog.String("component", "announce"))
}

// Start schedules Tick on the cron spec. Call Stop to drain it.
func (a *Announcer) Start(ctx context.Context) {
	run := func() {
		if _, err := a.Tick(ctx); err != nil {
			slog.Warn("announce tick failed", slog.Any("err", err), slog.String("component", "announce"))
		}
	}
	c := cron.New()
	spec := a.Schedule
	if spec == "" {
		spec = DefaultSchedule
	}
	if _, err := c.AddFunc(spec, run); err != nil {
		slog.Warn("invalid announce schedule; falling back", slog.String("spec", spec), slog.String("fallback", DefaultSchedule), slog.Any("err", err), slog.String("component", "announce"))
		c = cron.New()
		_, _ = c.AddFunc(DefaultSchedule, run) //nolint:errcheck // constant spec
	}
	c.Start()
	a.mu.Lock()
	a.cron = c
	a.mu.Unlock()
	slog.Info("announcer started", slog.String("spec", spec), slog.String("component", "announce"))
}

// Stop stops the schedule and waits for a running tick to finish.
func (a *Announcer) Stop() {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Run starts the announcer and blocks until ctx is cancelled.
func (a *Announcer) Run(ctx context.Context) {
	a.Start(ctx)
	<-ctx.Done()
	a.Stop()
}

func (a *Announcer) say(text string) {
	if a.Say != nil {
		a.Say(text)
	}
}

func (a *Announcer) now() time.Time {
	t := time.Now()
	if a.Now != nil {
		t = a.Now()
	}
	if a.Location != nil {
		t = t.In(a.Location)
	}
	return t
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
