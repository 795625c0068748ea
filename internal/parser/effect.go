package parser

import "github.com/mcconsole/mcconsole-go/pkg/mcconsole/event"

// Effect is the change an event makes to the set of online players.
type Effect int

const (
	EffectNone Effect = iota
	EffectReset
	EffectAdd
	EffectRemove
)

// EffectOf returns the roster effect of an event type. A fresh boot empties
// the roster; an achievement can be the first evidence of a player.
func EffectOf(t event.Type) Effect {
	switch t {
	case event.Started:
		return EffectReset
	case event.Joined, event.EarnedAchievement:
		return EffectAdd
	case event.Left, event.LostConnection:
		return EffectRemove
	default:
		return EffectNone
	}
}

// overlay records roster effects of matchers that already fired on the
// current line, on top of the caller's roster.
type overlay struct {
	base    Membership
	reset   bool
	changes map[string]bool
}

func (o *overlay) Contains(player string) bool {
	if present, ok := o.changes[player]; ok {
		return present
	}
	if o.reset || o.base == nil {
		return false
	}
	return o.base.Contains(player)
}

func (o *overlay) apply(ev event.Event) {
	switch EffectOf(ev.Type) {
	case EffectReset:
		o.reset = true
		o.changes = nil
	case EffectAdd:
		o.set(ev.Player, true)
	case EffectRemove:
		o.set(ev.Player, false)
	}
}

func (o *overlay) set(player string, present bool) {
	if o.changes == nil {
		o.changes = make(map[string]bool, 1)
	}
	o.changes[player] = present
}
