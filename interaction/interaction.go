// Package interaction models chat-platform interactions (slash commands, button clicks,
// select-menu choices) and routes them to handlers registered by name.
//
// Component custom ids have the form "<handler>,<payload>". The router strips the handler
// name and hands the payload to the handler untouched.
package interaction

import (
	"strings"
)

// Type distinguishes the interaction kinds the router understands.
type Type string

const (
	TypeCommand Type = "command"
	TypeButton  Type = "button"
	TypeSelect  Type = "select"
)

// Request is an inbound interaction.
type Request struct {
	Type       Type           `json:"type"`
	Command    string         `json:"command,omitempty"`
	Subcommand string         `json:"subcommand,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
	CustomID   string         `json:"custom_id,omitempty"`
	Values     []string       `json:"values,omitempty"`
	Locale     string         `json:"locale,omitempty"`
	User       string         `json:"user,omitempty"`
	// VoiceChannelID is the voice channel the invoking member sits in, if any.
	VoiceChannelID string `json:"voice_channel_id,omitempty"`
}

// StringOption returns a string option and whether it was supplied.
func (r *Request) StringOption(name string) (string, bool) {
	v, ok := r.Options[name]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// BoolOption returns a boolean option, or def when absent or not a boolean.
func (r *Request) BoolOption(name string, def bool) bool {
	v, ok := r.Options[name]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// Response is what a handler wants shown. Update means the originating message is edited
// in place instead of posting a new one.
type Response struct {
	Ephemeral  bool   `json:"ephemeral,omitempty"`
	Update     bool   `json:"update,omitempty"`
	Content    string `json:"content,omitempty"`
	Embed      *Embed `json:"embed,omitempty"`
	Components []Row  `json:"components,omitempty"`
}

// Embed is a titled card.
type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

// Row is one horizontal line of components.
type Row []Component

// ComponentKind is the kind of an interactive element.
type ComponentKind string

const (
	KindButton ComponentKind = "button"
	KindLink   ComponentKind = "link"
	KindSelect ComponentKind = "select"
)

// Style is a button style.
type Style string

const (
	StylePrimary   Style = "primary"
	StyleSecondary Style = "secondary"
)

// Component is a button, link or select menu.
type Component struct {
	Kind        ComponentKind  `json:"kind"`
	CustomID    string         `json:"custom_id,omitempty"`
	Label       string         `json:"label,omitempty"`
	Style       Style          `json:"style,omitempty"`
	URL         string         `json:"url,omitempty"`
	Emoji       string         `json:"emoji,omitempty"`
	Disabled    bool           `json:"disabled,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	Options     []SelectOption `json:"options,omitempty"`
}

// SelectOption is one choice of a select menu.
type SelectOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// SplitCustomID splits a custom id at its first comma.
func SplitCustomID(id string) (name, payload string) {
	name, payload, _ = strings.Cut(id, ",")
	return name, payload
}

// JoinCustomID builds a custom id for the named handler.
func JoinCustomID(name, payload string) string {
	return name + "," + payload
}
