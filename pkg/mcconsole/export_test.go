package mcconsole

// WithClock exposes withClock to external tests.
var WithClock = withClock
