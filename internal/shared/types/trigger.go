package types

import "strings"

// Trigger selects when a subscriber is notified about a value update
type Trigger int

const (
	TriggerAny Trigger = iota
	TriggerChanged
	TriggerGreater
	TriggerLesser
	TriggerEqual
)

// DefaultTrigger is used when a subscription does not name one
const DefaultTrigger = TriggerChanged

// String returns the string representation of the trigger
func (t Trigger) String() string {
	switch t {
	case TriggerAny:
		return "any"
	case TriggerChanged:
		return "changed"
	case TriggerGreater:
		return "greater"
	case TriggerLesser:
		return "lesser"
	case TriggerEqual:
		return "equal"
	default:
		return "unknown"
	}
}

// ParseTrigger parses a trigger name (case-insensitive)
func ParseTrigger(name string) (Trigger, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "any":
		return TriggerAny, true
	case "changed":
		return TriggerChanged, true
	case "greater":
		return TriggerGreater, true
	case "lesser":
		return TriggerLesser, true
	case "equal":
		return TriggerEqual, true
	}
	return DefaultTrigger, false
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
