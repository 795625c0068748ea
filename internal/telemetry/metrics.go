package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mcconsole/mcconsole-go/pkg/mcconsole/event"
)

// Source reports the live state observed by the gauges.
// mcconsole.Server implements it.
type Source interface {
	State() event.State
	Players() []string
}

var states = []event.State{
	event.StateIdle,
	event.StateStarting,
	event.StateRunning,
	event.StateStopped,
	event.StateFailed,
}

// Metrics records:
//
//	mcconsole.events              counter, by type
//	mcconsole.transitions         counter, by target state
//	mcconsole.players.online      gauge
//	mcconsole.server.state        gauge, 1 for the current state else 0
type Metrics struct {
	events      metric.Int64Counter
	transitions metric.Int64Counter
	reg         metric.Registration
}

// NewMetrics creates the instruments on mp and registers the gauge
// callback reading src.
func NewMetrics(mp metric.MeterProvider, src Source) (*Metrics, error) {
	meter := mp.Meter(ScopeName)

	events, err := meter.Int64Counter("mcconsole.events",
		metric.WithDescription("Classified console events."),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, fmt.Errorf("events counter: %w", err)
	}
	transitions, err := meter.Int64Counter("mcconsole.transitions",
		metric.WithDescription("Lifecycle state changes."),
		metric.WithUnit("{transition}"))
	if err != nil {
		return nil, fmt.Errorf("transitions counter: %w", err)
	}
	players, err := meter.Int64ObservableGauge("mcconsole.players.online",
		metric.WithDescription("Players currently on the roster."),
		metric.WithUnit("{player}"))
	if err != nil {
		return nil, fmt.Errorf("players gauge: %w", err)
	}
	state, err := meter.Int64ObservableGauge("mcconsole.server.state",
		metric.WithDescription("Current lifecycle state."))
	if err != nil {
		return nil, fmt.Errorf("state gauge: %w", err)
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(players, int64(len(src.Players())))
		current := src.State()
		for _, s := range states {
			var v int64
			if s == current {
				v = 1
			}
			o.ObserveInt64(state, v, metric.WithAttributes(attribute.String("state", string(s))))
		}
		return nil
	}, players, state)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	return &Metrics{events: events, transitions: transitions, reg: reg}, nil
}

// OnEvent counts ev.
func (m *Metrics) OnEvent(ev event.Event) {
	m.events.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", string(ev.Type))))
}

// OnTransition counts tr.
func (m *Metrics) OnTransition(tr event.Transition) {
	m.transitions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("state", string(tr.To))))
}

// Close unregisters the gauge callback.
func (m *Metrics) Close() error {
	return m.reg.Unregister()
}
