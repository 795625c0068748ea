package mcconsole

import (
	"github.com/mcconsole/mcconsole-go/internal/dispatch"
	"github.com/mcconsole/mcconsole-go/pkg/mcconsole/event"
)

// Re-export event types so users can import just
// "github.com/mcconsole/mcconsole-go/pkg/mcconsole".

// Event is a classified console event.
type Event = event.Event

// EventType identifies the kind of an Event.
type EventType = event.Type

// Line is a console line that matched the console grammar.
type Line = event.Line

// ClockTime is the console clock printed at the start of a line.
type ClockTime = event.ClockTime

// State is the lifecycle state of a Server.
type State = event.State

// Transition describes a lifecycle state change.
type Transition = event.Transition

// Exit describes how the server process terminated.
type Exit = event.Exit

// Subscription identifies a registered handler.
type Subscription = dispatch.ID

// Event type constants.
const (
	EventStarted           = event.Started
	EventJoined            = event.Joined
	EventLeft              = event.Left
	EventLostConnection    = event.LostConnection
	EventSaid              = event.Said
	EventAction            = event.Action
	EventEarnedAchievement = event.EarnedAchievement
	EventDied              = event.Died
)

// Lifecycle states.
const (
	StateIdle     = event.StateIdle
	StateStarting = event.StateStarting
	StateRunning  = event.StateRunning
	StateStopped  = event.StateStopped
	StateFailed   = event.StateFailed
)
