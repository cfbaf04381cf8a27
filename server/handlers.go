// Package server exposes the HTTP API handlers.
package server

import (
	"context"
	"time"

	"github.com/legibot/backend/anapi"
	"github.com/legibot/backend/interaction"
	"github.com/legibot/backend/nav"
)

// Pinger reports database connectivity. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// AgendaSource fetches agenda entries for a navigation state.
type AgendaSource interface {
	Fetch(ctx context.Context, s nav.State) ([]anapi.Entry, error)
}

// Check is one named readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Deps are the collaborators of the HTTP handlers. Nil fields disable the routes or checks
// that need them.
type Deps struct {
	DB                Pinger
	Router            *interaction.Router
	Agenda            AgendaSource
	Location          *time.Location
	InteractionsToken string
	// Checks are extra readiness probes, typically upstream reachability.
	Checks []Check
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	deps Deps
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(deps Deps) *Handlers {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &Handlers{deps: deps}
}
