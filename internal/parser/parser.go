// Package parser classifies server console lines into events.
//
// A line is first matched against the console grammar
// "[HH:MM:SS] [source/level]: body". The body is then run through every
// matcher in priority order. Matchers never mutate caller state; roster
// effects of earlier matchers on the same line are tracked in a per-line
// overlay so that later matchers observe them.
package parser

import (
	"regexp"
	"strconv"

	"github.com/mcconsole/mcconsole-go/pkg/mcconsole/event"
)

var linePattern = regexp.MustCompile(`^\[(\d+):(\d+):(\d+)\]\s+\[([^/\]]+)/([^\]]+)\]:\s(.*)$`)

// Membership answers whether a player is currently known to be online.
type Membership interface {
	Contains(player string) bool
}

// Result is the outcome of classifying one line.
type Result struct {
	// Line is nil when the raw text does not match the console grammar.
	Line *event.Line

	// Events holds the classified events in matcher priority order.
	Events []event.Event
}

// Recognized reports whether the line matched the console grammar.
func (r Result) Recognized() bool { return r.Line != nil }

// Classified reports whether any matcher produced an event.
func (r Result) Classified() bool { return len(r.Events) > 0 }

// ParseLine applies only the console grammar to raw.
func ParseLine(raw string) (*event.Line, bool) {
	m := linePattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	return &event.Line{
		Time: event.ClockTime{
			Hours:   m[1],
			Minutes: m[2],
			Seconds: m[3],
		},
		Source: m[4],
		Level:  m[5],
		Body:   m[6],
		Raw:    raw,
	}, true
}

// Classify parses raw and runs every matcher over its body. roster may be
// nil, in which case no player is considered online.
func Classify(raw string, roster Membership) Result {
	line, ok := ParseLine(raw)
	if !ok {
		return Result{}
	}

	c := &classification{
		roster:  overlay{base: roster},
		claimed: make(map[event.Type]bool, 2),
	}

	var events []event.Event
	for _, mt := range matchers {
		m := mt.pattern.FindStringSubmatch(line.Body)
		if m == nil {
			continue
		}
		ev, ok := mt.build(m, c)
		if !ok {
			continue
		}
		ev.Type = mt.typ
		ev.Time = line.Time
		c.claimed[mt.typ] = true
		c.roster.apply(ev)
		events = append(events, ev)
	}

	return Result{Line: line, Events: events}
}

// classification carries per-line state shared between matchers.
type classification struct {
	roster  overlay
	claimed map[event.Type]bool
}

// claimedByAny reports whether any of the given matchers already produced
// an event for this line.
func (c *classification) claimedByAny(types ...event.Type) bool {
	for _, t := range types {
		if c.claimed[t] {
			return true
		}
	}
	return false
}

// matcher pairs a body pattern with a builder. build may reject a match,
// in which case the matcher is treated as not having matched.
type matcher struct {
	typ     event.Type
	pattern *regexp.Regexp
	build   func(m []string, c *classification) (event.Event, bool)
}

// diedExclusions are the matchers whose bodies also fit the generic
// "<player> <rest>" death shape.
var diedExclusions = []event.Type{
	event.Joined,
	event.LostConnection,
	event.Left,
	event.EarnedAchievement,
}

// matchers is evaluated in full, in this order, for every body.
var matchers = []matcher{
	{
		typ:     event.Started,
		pattern: regexp.MustCompile(`^Done \(([\d.]+)s\)! For help, type "help" or "\?"`),
		build: func(m []string, _ *classification) (event.Event, bool) {
			secs, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return event.Event{}, false
			}
			return event.Event{BootSeconds: secs}, true
		},
	},
	{
		typ:     event.Joined,
		pattern: regexp.MustCompile(`^(\S+) joined the game`),
		build:   playerOnly,
	},
	{
		typ:     event.Left,
		pattern: regexp.MustCompile(`^(\S+) left the game`),
		build:   playerOnly,
	},
	{
		typ:     event.LostConnection,
		pattern: regexp.MustCompile(`^(\S+) lost connection`),
		build:   playerOnly,
	},
	{
		typ:     event.Said,
		pattern: regexp.MustCompile(`^<([^>]+)> (.*)$`),
		build: func(m []string, _ *classification) (event.Event, bool) {
			return event.Event{Player: m[1], Text: m[2]}, true
		},
	},
	{
		typ:     event.Action,
		pattern: regexp.MustCompile(`^\* (\S+) (.*)$`),
		build: func(m []string, _ *classification) (event.Event, bool) {
			return event.Event{Player: m[1], Text: m[2]}, true
		},
	},
	{
		typ:     event.EarnedAchievement,
		pattern: regexp.MustCompile(`^(\S+) has just earned the achievement \[([^\]]+)\]`),
		build: func(m []string, _ *classification) (event.Event, bool) {
			return event.Event{Player: m[1], Achievement: m[2]}, true
		},
	},
	{
		typ:     event.Died,
		pattern: regexp.MustCompile(`^(\S+) (.*)$`),
		build: func(m []string, c *classification) (event.Event, bool) {
			if c.claimedByAny(diedExclusions...) {
				return event.Event{}, false
			}
			if !c.roster.Contains(m[1]) {
				return event.Event{}, false
			}
			return event.Event{Player: m[1], Cause: m[2]}, true
		},
	},
}

func playerOnly(m []string, _ *classification) (event.Event, bool) {
	return event.Event{Player: m[1]}, true
}
