package telemetry

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"

	"github.com/mcconsole/mcconsole-go/pkg/mcconsole/event"
)

// EventLogger emits events and lifecycle transitions as OTel log records.
// The record body is the event type; event fields become attributes.
type EventLogger struct {
	logger otellog.Logger
	now    func() time.Time
}

// NewEventLogger returns an EventLogger using lp's logger for ScopeName.
func NewEventLogger(lp otellog.LoggerProvider) *EventLogger {
	return &EventLogger{
		logger: lp.Logger(ScopeName),
		now:    time.Now,
	}
}

// OnEvent emits ev.
func (l *EventLogger) OnEvent(ev event.Event) {
	var attrs []otellog.KeyValue
	attrs = append(attrs, otellog.String("console_time", ev.Time.String()))
	if ev.Player != "" {
		attrs = append(attrs, otellog.String("player", ev.Player))
	}
	if ev.Text != "" {
		attrs = append(attrs, otellog.String("text", ev.Text))
	}
	if ev.Achievement != "" {
		attrs = append(attrs, otellog.String("achievement", ev.Achievement))
	}
	if ev.Cause != "" {
		attrs = append(attrs, otellog.String("cause", ev.Cause))
	}
	if ev.Type == event.Started {
		attrs = append(attrs, otellog.Float64("boot_seconds", ev.BootSeconds))
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = l.now()
	}
	l.emit(ts, otellog.SeverityInfo, string(ev.Type), attrs...)
}

// OnTransition emits tr with body "state_<to>". Failures are logged at
// error severity.
func (l *EventLogger) OnTransition(tr event.Transition) {
	attrs := []otellog.KeyValue{
		otellog.String("from", string(tr.From)),
		otellog.String("to", string(tr.To)),
	}
	if tr.Exit != nil {
		attrs = append(attrs, otellog.Int("exit_code", tr.Exit.Code))
		if tr.Exit.Signal != "" {
			attrs = append(attrs, otellog.String("signal", tr.Exit.Signal))
		}
	}
	if tr.Err != nil {
		attrs = append(attrs, otellog.String("error", tr.Err.Error()))
	}

	severity := otellog.SeverityInfo
	if tr.To == event.StateFailed {
		severity = otellog.SeverityError
	}

	ts := tr.At
	if ts.IsZero() {
		ts = l.now()
	}
	l.emit(ts, severity, "state_"+string(tr.To), attrs...)
}

func (l *EventLogger) emit(ts time.Time, severity otellog.Severity, body string, attrs ...otellog.KeyValue) {
	var r otellog.Record
	r.SetTimestamp(ts)
	r.SetObservedTimestamp(l.now())
	r.SetSeverity(severity)
	r.SetBody(otellog.StringValue(body))
	r.AddAttributes(attrs...)
	l.logger.Emit(context.Background(), r)
}
