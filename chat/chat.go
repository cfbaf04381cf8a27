package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/legibot/backend/anapi"
	"github.com/legibot/backend/commands"
	"github.com/legibot/backend/nav"
	"github.com/legibot/backend/telemetry"
)

// LiveSummarizer renders the live sessions as one line.
type LiveSummarizer interface {
	Summary(ctx context.Context, flux anapi.Flux) (string, error)
}

// AgendaSummarizer renders an agenda view as one line.
type AgendaSummarizer interface {
	Summary(ctx context.Context, state nav.State) (string, error)
	DefaultState() nav.State
}

// Bot answers chat commands in a single Twitch channel.
type Bot struct {
	Channel  string
	Username string
	OAuth    string
	Live     LiveSummarizer
	Agenda   AgendaSummarizer
	// Location is used to parse user-typed dates.
	Location *time.Location

	mu     sync.Mutex
	client *twitch.Client
}

// Reply returns the answer to message, or false when it is not a bot command.
func (b *Bot) Reply(ctx context.Context, message string) (string, bool) {
	fields := strings.Fields(message)
	if len(fields) == 0 {
		return "", false
	}
	switch strings.ToLower(fields[0]) {
	case "!live":
		var flux anapi.Flux
		if len(fields) > 1 {
			flux = anapi.Flux(fields[1])
		}
		telemetry.CountChatCommand("live")
		s, err := b.Live.Summary(ctx, flux)
		if err != nil {
			slog.Error("chat live summary failed", slog.Any("err", err), slog.String("component", "chat"))
			return "Could not reach the live service.", true
		}
		return s, true
	case "!agenda":
		telemetry.CountChatCommand("agenda")
		state, ok := b.agendaState(fields[1:])
		if !ok {
			return "Usage: !agenda [day|week] [DD/MM/YYYY]", true
		}
		s, err := b.Agenda.Summary(ctx, state)
		if err != nil {
			slog.Error("chat agenda summary failed", slog.Any("err", err), slog.String("component", "chat"))
			return "The agenda is unavailable right now.", true
		}
		return s, true
	}
	return "", false
}

func (b *Bot) agendaState(args []string) (nav.State, bool) {
	state := b.Agenda.DefaultState()
	for _, a := range args {
		if p, ok := nav.ParsePeriod(a); ok {
			state.Period = p
			continue
		}
		d, err := commands.ParseInputDate(a, b.Location)
		if err != nil {
			return nav.State{}, false
		}
		state.Date = d
	}
	return state, true
}

// Say posts text to the channel. It is a no-op until Run has connected.
func (b *Bot) Say(text string) {
	b.mu.Lock()
	c := b.client
	b.mu.Unlock()
	if c == nil {
		slog.Debug("chat not connected; dropping message", slog.String("component", "chat"))
		return
	}
	c.Say(b.Channel, text)
}

// Run connects to Twitch IRC and answers commands until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	client := twitch.NewClient(b.Username, b.OAuth)
	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		if reply, ok := b.Reply(ctx, msg.Message); ok {
			client.Say(msg.Channel, reply)
		}
	})
	client.OnConnect(func() {
		slog.Info("twitch chat connected", slog.String("channel", b.Channel), slog.String("component", "chat"))
	})

	b.mu.Lock()
	b.client = client
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.client = nil
		b.mu.Unlock()
	}()

	// Handle context cancellation by closing the client
	go func() {
		<-ctx.Done()
		_ = client.Disconnect() //nolint:errcheck // shutting down
	}()

	client.Join(b.Channel)
	err := client.Connect()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
