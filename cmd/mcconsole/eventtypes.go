package main

import (
	"fmt"
	"strings"

	"github.com/mcconsole/mcconsole-go/pkg/mcconsole"
	"github.com/mcconsole/mcconsole-go/pkg/mcconsole/event"
)

// ValidEventTypeNames returns a sorted list of valid event type names.
func ValidEventTypeNames() []string {
	return event.TypeNames()
}

// NormalizeEventTypes converts CLI string values to mcconsole.EventType.
// It handles case-insensitivity, whitespace trimming, and duplicate removal.
func NormalizeEventTypes(values []string) ([]mcconsole.EventType, error) {
	if len(values) == 0 {
		return nil, nil
	}

	result := make([]mcconsole.EventType, 0, len(values))
	seen := make(map[mcconsole.EventType]struct{})

	for _, raw := range values {
		if strings.TrimSpace(raw) == "" {
			return nil, fmt.Errorf("empty event type provided (input: %q); valid types: %s", raw, strings.Join(ValidEventTypeNames(), ", "))
		}

		t, ok := event.ParseType(raw)
		if !ok {
			return nil, fmt.Errorf("unknown event type %q (valid: %s)", raw, strings.Join(ValidEventTypeNames(), ", "))
		}

		if _, dup := seen[t]; dup {
			continue // ignore duplicates silently
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}

	return result, nil
}

// RejectOverlap returns an error if any event type is in both includes and excludes.
func RejectOverlap(includes, excludes []mcconsole.EventType) error {
	ex := make(map[mcconsole.EventType]struct{}, len(excludes))
	for _, t := range excludes {
		ex[t] = struct{}{}
	}
	for _, t := range includes {
		if _, ok := ex[t]; ok {
			return fmt.Errorf("event type %q cannot be both included and excluded", t)
		}
	}
	return nil
}

// eventFilter validates --include-types and --exclude-types.
func eventFilter(include, exclude []string) ([]mcconsole.EventType, []mcconsole.EventType, error) {
	includes, err := NormalizeEventTypes(include)
	if err != nil {
		return nil, nil, err
	}
	excludes, err := NormalizeEventTypes(exclude)
	if err != nil {
		return nil, nil, err
	}
	if err := RejectOverlap(includes, excludes); err != nil {
		return nil, nil, err
	}
	return includes, excludes, nil
}
