// Package event defines the console line and event types produced by the
// classifier.
//
// It is kept separate from the main mcconsole package so that
// internal/parser and internal/dispatch can share these types without an
// import cycle.
package event

import (
	"sort"
	"strings"
	"time"
)

// Type identifies the kind of a classified console event.
type Type string

const (
	// Started is emitted when the server prints its boot-complete banner.
	Started Type = "started"

	// Joined is emitted when a player joins the game.
	Joined Type = "joined"

	// Left is emitted when a player leaves the game.
	Left Type = "left"

	// LostConnection is emitted when a player's connection drops.
	LostConnection Type = "lost_connection"

	// Said is a chat message.
	Said Type = "said"

	// Action is an emote ("/me") message.
	Action Type = "action"

	// EarnedAchievement is emitted when a player earns an achievement.
	EarnedAchievement Type = "earned_achievement"

	// Died is emitted for a death message naming a known player.
	Died Type = "died"
)

// allTypes lists every event type in classification priority order.
var allTypes = []Type{
	Started,
	Joined,
	Left,
	LostConnection,
	Said,
	Action,
	EarnedAchievement,
	Died,
}

// Types returns all event types in classification priority order.
func Types() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

// TypeNames returns a sorted list of all valid event type names.
// This is the single source of truth for event type enumeration.
func TypeNames() []string {
	names := make([]string, len(allTypes))
	for i, t := range allTypes {
		names[i] = string(t)
	}
	sort.Strings(names)
	return names
}

var typeByName = func() map[string]Type {
	m := make(map[string]Type, len(allTypes))
	for _, t := range allTypes {
		m[string(t)] = t
	}
	return m
}()

// ParseType converts a string to Type if valid.
// It is case-insensitive and trims leading/trailing whitespace.
func ParseType(name string) (Type, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	t, ok := typeByName[name]
	return t, ok
}

// ClockTime is the bracketed time prefix of a console line. Components are
// kept exactly as printed; they are not range checked.
type ClockTime struct {
	Hours   string `json:"hours"`
	Minutes string `json:"minutes"`
	Seconds string `json:"seconds"`
}

// String formats the clock time as HH:MM:SS using the captured components.
func (c ClockTime) String() string {
	return c.Hours + ":" + c.Minutes + ":" + c.Seconds
}

// Line is a console line that matched the console grammar
// "[HH:MM:SS] [source/level]: body".
type Line struct {
	Time   ClockTime `json:"time"`
	Source string    `json:"source"`
	Level  string    `json:"level"`
	Body   string    `json:"body"`
	Raw    string    `json:"raw"`
}

// Event is a classified console event. Type selects which of the optional
// fields are meaningful.
type Event struct {
	// Type is the event type.
	Type Type `json:"type"`

	// Timestamp is the wall-clock time the line was received.
	Timestamp time.Time `json:"timestamp,omitzero"`

	// Time is the console clock printed on the line.
	Time ClockTime `json:"time"`

	// Player is the player name (all types except Started).
	Player string `json:"player,omitempty"`

	// Text is the chat or action text (Said, Action).
	Text string `json:"text,omitempty"`

	// Achievement is the achievement title (EarnedAchievement).
	Achievement string `json:"achievement,omitempty"`

	// Cause is the remainder of a death message (Died).
	Cause string `json:"cause,omitempty"`

	// BootSeconds is the boot duration reported by the server (Started).
	BootSeconds float64 `json:"boot_seconds,omitempty"`

	// RawLine is the original console line (only included if requested).
	RawLine string `json:"raw_line,omitempty"`
}
