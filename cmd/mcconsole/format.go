package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcconsole/mcconsole-go/pkg/mcconsole"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = map[string]bool{
	"jsonl":  true,
	"pretty": true,
	"yaml":   true,
}

// OutputEvent writes ev to w in the given format.
func OutputEvent(format string, ev mcconsole.Event, w io.Writer) error {
	switch format {
	case "jsonl":
		return OutputJSON(ev, w)
	case "pretty":
		return OutputPretty(ev, w)
	case "yaml":
		return OutputYAML(ev, w)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// OutputJSON writes ev as a single JSON line.
func OutputJSON(ev mcconsole.Event, w io.Writer) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// OutputPretty writes ev in a human-readable one-line form.
func OutputPretty(ev mcconsole.Event, w io.Writer) error {
	ts := ev.Time.String()
	if !ev.Timestamp.IsZero() {
		ts = ev.Timestamp.Format(time.DateTime)
	}

	var msg string
	switch ev.Type {
	case mcconsole.EventStarted:
		msg = fmt.Sprintf("# Server started (%.3fs)", ev.BootSeconds)
	case mcconsole.EventJoined:
		msg = fmt.Sprintf("+ %s joined", ev.Player)
	case mcconsole.EventLeft:
		msg = fmt.Sprintf("- %s left", ev.Player)
	case mcconsole.EventLostConnection:
		msg = fmt.Sprintf("~ %s lost connection", ev.Player)
	case mcconsole.EventSaid:
		msg = fmt.Sprintf("<%s> %s", ev.Player, ev.Text)
	case mcconsole.EventAction:
		msg = fmt.Sprintf("* %s %s", ev.Player, ev.Text)
	case mcconsole.EventEarnedAchievement:
		msg = fmt.Sprintf("! %s earned [%s]", ev.Player, ev.Achievement)
	case mcconsole.EventDied:
		msg = fmt.Sprintf("x %s %s", ev.Player, ev.Cause)
	default:
		msg = string(ev.Type)
	}

	_, err := fmt.Fprintf(w, "[%s] %s\n", ts, msg)
	return err
}

// yamlEvent is the YAML view of an event.
type yamlEvent struct {
	Type        string    `yaml:"type"`
	Timestamp   time.Time `yaml:"timestamp,omitempty"`
	Time        string    `yaml:"time"`
	Player      string    `yaml:"player,omitempty"`
	Text        string    `yaml:"text,omitempty"`
	Achievement string    `yaml:"achievement,omitempty"`
	Cause       string    `yaml:"cause,omitempty"`
	BootSeconds float64   `yaml:"boot_seconds,omitempty"`
	RawLine     string    `yaml:"raw_line,omitempty"`
}

// OutputYAML writes ev as one YAML document.
func OutputYAML(ev mcconsole.Event, w io.Writer) error {
	data, err := yaml.Marshal(yamlEvent{
		Type:        string(ev.Type),
		Timestamp:   ev.Timestamp,
		Time:        ev.Time.String(),
		Player:      ev.Player,
		Text:        ev.Text,
		Achievement: ev.Achievement,
		Cause:       ev.Cause,
		BootSeconds: ev.BootSeconds,
		RawLine:     ev.RawLine,
	})
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, "---\n"); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// printer serializes event output from subscriber callbacks.
type printer struct {
	mu     sync.Mutex
	format string
	w      io.Writer
}

func (p *printer) print(ev mcconsole.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := OutputEvent(p.format, ev, p.w); err != nil {
		logger.Error("output error", "error", err)
	}
}
