// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	Interactions         *prometheus.CounterVec // kind, handler, outcome
	TokensMalformed      prometheus.Counter
	Announcements        prometheus.Counter
	BroadcastResolutions *prometheus.CounterVec // outcome
	ChatCommands         *prometheus.CounterVec // command

	// Histograms (seconds)
	UpstreamDuration *prometheus.HistogramVec // endpoint
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		Interactions = promauto.NewCounterVec(prometheus.CounterOpts{Name: "legibot_interactions_total", Help: "Interactions dispatched by kind, handler and outcome"}, []string{"kind", "handler", "outcome"})
		TokensMalformed = promauto.NewCounter(prometheus.CounterOpts{Name: "legibot_tokens_malformed_total", Help: "Navigation tokens that failed to decode"})
		Announcements = promauto.NewCounter(prometheus.CounterOpts{Name: "legibot_announcements_total", Help: "Live segment announcements sent to chat"})
		BroadcastResolutions = promauto.NewCounterVec(prometheus.CounterOpts{Name: "legibot_broadcast_resolutions_total", Help: "Active broadcast resolutions by outcome"}, []string{"outcome"})
		ChatCommands = promauto.NewCounterVec(prometheus.CounterOpts{Name: "legibot_chat_commands_total", Help: "Chat commands answered"}, []string{"command"})
		UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "legibot_upstream_duration_seconds", Help: "Upstream API request duration seconds", Buckets: prometheus.DefBuckets}, []string{"endpoint"})
	})
}

// CountInteraction records one dispatched interaction.
func CountInteraction(kind, handler, outcome string) {
	if Interactions != nil {
		Interactions.WithLabelValues(kind, handler, outcome).Inc()
	}
}

// CountMalformedToken records a token that could not be decoded.
func CountMalformedToken() {
	if TokensMalformed != nil {
		TokensMalformed.Inc()
	}
}

// CountAnnouncement records an announcement sent to chat.
func CountAnnouncement() {
	if Announcements != nil {
		Announcements.Inc()
	}
}

// CountResolution records the outcome ("active" or "none") of an active broadcast lookup.
func CountResolution(outcome string) {
	if BroadcastResolutions != nil {
		BroadcastResolutions.WithLabelValues(outcome).Inc()
	}
}

// CountChatCommand records an answered chat command.
func CountChatCommand(cmd string) {
	if ChatCommands != nil {
		ChatCommands.WithLabelValues(cmd).Inc()
	}
}

// ObserveUpstream records the duration of one upstream request.
func ObserveUpstream(endpoint string, d time.Duration) {
	if UpstreamDuration != nil {
		UpstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
