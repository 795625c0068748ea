package event

import (
	"fmt"
	"time"
)

// State is the coarse run phase of a supervised server.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

func (s State) String() string { return string(s) }

// Terminal reports whether s ends a process run.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}

// Exit describes how a supervised process terminated.
// Code is -1 when the process was killed by a signal or the code is unknown.
type Exit struct {
	Code   int    `json:"code"`
	Signal string `json:"signal,omitempty"`
}

func (e Exit) String() string {
	if e.Signal != "" {
		return fmt.Sprintf("signal %s", e.Signal)
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

// Transition is published every time the lifecycle state changes.
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`

	// Exit is set when the transition was caused by process exit.
	Exit *Exit `json:"exit,omitempty"`

	// Err is set for launch failures and unexpected exits.
	Err error `json:"-"`
}
