// Command backend is the main entrypoint for the LegiBot interactions API and chat workers.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs migrations.
//   - Exposes the HTTP server with /interactions, /agenda.ics, /healthz, /readyz and /metrics.
//   - Starts the Twitch chat bot and the live announcer when Twitch credentials are set.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/legibot/backend/anapi"
	"github.com/legibot/backend/chat"
	"github.com/legibot/backend/commands"
	"github.com/legibot/backend/config"
	"github.com/legibot/backend/db"
	"github.com/legibot/backend/interaction"
	"github.com/legibot/backend/server"
	"github.com/legibot/backend/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("legibot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Versioned migrations first; fall back to the idempotent embedded schema.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
			slog.Any("err", err),
			slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hc := &http.Client{Timeout: 10 * time.Second}
	agendaClient := anapi.NewAgendaClient(cfg.AgendaURL, hc)
	liveClient := anapi.NewLiveClient(cfg.LiveURL, hc)

	agenda := &commands.Agenda{Source: agendaClient, Location: cfg.Location, PublicBaseURL: cfg.PublicBaseURL, Now: cfg.Now}
	live := &commands.Live{Source: liveClient, VideosURL: cfg.VideosURL, Location: cfg.Location, Now: cfg.Now}

	router := interaction.NewRouter()
	agenda.Register(router)
	live.Register(router)
	slog.Info("interaction handlers registered", slog.Any("commands", router.Commands()))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(gctx, server.Deps{
			DB:                database,
			Router:            router,
			Agenda:            agendaClient,
			Location:          cfg.Location,
			InteractionsToken: cfg.InteractionsToken,
			Checks: []server.Check{
				{Name: "live", Fn: func(ctx context.Context) error { _, err := liveClient.Live(ctx); return err }},
			},
		}, cfg.HTTPAddr)
	})

	if err := cfg.ValidateChatReady(); err != nil {
		slog.Info("chat bot disabled", slog.Any("reason", err))
	} else {
		bot := &chat.Bot{
			Channel:  cfg.TwitchChannel,
			Username: cfg.TwitchBotUsername,
			OAuth:    cfg.TwitchOAuthToken,
			Live:     live,
			Agenda:   agenda,
			Location: cfg.Location,
		}
		announcer := &chat.Announcer{
			Source:    liveClient,
			Store:     &db.KVStore{DB: database},
			Say:       bot.Say,
			VideosURL: cfg.VideosURL,
			Location:  cfg.Location,
			Now:       cfg.Now,
			Schedule:  cfg.AnnounceSchedule,
		}
		// Chat errors are logged, not propagated.
		g.Go(func() error {
			if err := bot.Run(gctx); err != nil {
				slog.Error("twitch chat exited with error", slog.Any("err", err), slog.String("component", "chat"))
			}
			return nil
		})
		g.Go(func() error { announcer.Run(gctx); return nil })
	}

	if err := g.Wait(); err != nil {
		slog.Error("worker exited with error", slog.Any("err", err))
		stop()
		return
	}
	slog.Info("shutting down")
}
