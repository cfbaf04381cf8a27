package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownHandler is returned when no handler is registered for an interaction.
var ErrUnknownHandler = errors.New("unknown interaction handler")

// CommandHandler answers a slash command.
type CommandHandler func(ctx context.Context, req *Request) (*Response, error)

// ComponentHandler answers a button click or select choice. payload is the custom id with
// the handler name removed.
type ComponentHandler func(ctx context.Context, req *Request, payload string) (*Response, error)

// Router dispatches interactions by command or custom-id name.
type Router struct {
	mu       sync.RWMutex
	commands map[string]CommandHandler
	buttons  map[string]ComponentHandler
	selects  map[string]ComponentHandler
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{
		commands: make(map[string]CommandHandler),
		buttons:  make(map[string]ComponentHandler),
		selects:  make(map[string]ComponentHandler),
	}
}

// HandleCommand registers h for the named slash command.
func (r *Router) HandleCommand(name string, h CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = h
}

// HandleButton registers h for buttons whose custom id starts with name.
func (r *Router) HandleButton(name string, h ComponentHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buttons[name] = h
}

// HandleSelect registers h for select menus whose custom id starts with name.
func (r *Router) HandleSelect(name string, h ComponentHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selects[name] = h
}

// Commands lists the registered command names.
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.commands))
	for name := range r.commands {
		out = append(out, name)
	}
	return out
}

// HandlerName returns the name a request dispatches on.
func HandlerName(req *Request) string {
	if req.Type == TypeCommand {
		return req.Command
	}
	name, _ := SplitCustomID(req.CustomID)
	return name
}

// Dispatch routes req to its handler.
func (r *Router) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	switch req.Type {
	case TypeCommand:
		r.mu.RLock()
		h, ok := r.commands[req.Command]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: command %q", ErrUnknownHandler, req.Command)
		}
		return h(ctx, req)
	case TypeButton, TypeSelect:
		name, payload := SplitCustomID(req.CustomID)
		r.mu.RLock()
		table := r.buttons
		if req.Type == TypeSelect {
			table = r.selects
		}
		h, ok := table[name]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s %q", ErrUnknownHandler, req.Type, name)
		}
		return h(ctx, req, payload)
	}
	return nil, fmt.Errorf("%w: interaction type %q", ErrUnknownHandler, req.Type)
}
